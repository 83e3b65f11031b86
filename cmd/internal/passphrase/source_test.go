package passphrase

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func testSource(env map[string]string, terminal bool, input string, readErr error) (*Source, *bytes.Buffer) {
	prompt := new(bytes.Buffer)
	reads := 0
	s := &Source{
		envVar: "ADAPTERD_JWT_SECRET",
		label:  "signing secret",
		lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
		terminal: func() bool { return terminal },
		read: func() ([]byte, error) {
			reads++
			if reads > 1 {
				return nil, errors.New("read twice")
			}
			return []byte(input), readErr
		},
		prompt: prompt,
	}
	return s, prompt
}

func TestEnvironmentWins(t *testing.T) {
	s, prompt := testSource(map[string]string{"ADAPTERD_JWT_SECRET": " s3cret "}, true, "ignored", nil)
	got, err := s.Get()
	if err != nil || got != " s3cret " {
		t.Fatalf("expected env value verbatim, got %q %v", got, err)
	}
	if prompt.Len() != 0 {
		t.Fatalf("unexpected prompt %q", prompt.String())
	}
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	s, _ := testSource(map[string]string{"ADAPTERD_JWT_SECRET": "  "}, true, "x", nil)
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected empty env error, got %v", err)
	}
}

func TestPromptIsCached(t *testing.T) {
	s, prompt := testSource(nil, true, "typed", nil)
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		if err != nil || got != "typed" {
			t.Fatalf("call %d: got %q %v", i, got, err)
		}
	}
	if !strings.Contains(prompt.String(), "Enter signing secret") {
		t.Fatalf("unexpected prompt %q", prompt.String())
	}
}

func TestNoTerminal(t *testing.T) {
	s, _ := testSource(nil, false, "", nil)
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), "ADAPTERD_JWT_SECRET") {
		t.Fatalf("expected hint about env var, got %v", err)
	}
}

func TestBlankPromptRejected(t *testing.T) {
	s, _ := testSource(nil, true, "   ", nil)
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected blank secret to be rejected")
	}
}

func TestReadError(t *testing.T) {
	s, _ := testSource(nil, true, "", errors.New("tty gone"))
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), "tty gone") {
		t.Fatalf("expected read error, got %v", err)
	}
}
