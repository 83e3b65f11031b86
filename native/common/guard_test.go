package common

import (
	"errors"
	"testing"
)

func TestGuardNilViewAllows(t *testing.T) {
	if err := Guard(nil, "adapter"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestPauseSetToggles(t *testing.T) {
	set := NewPauseSet(" Adapter ")
	if err := Guard(set, "adapter"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	set.Set("adapter", false)
	if err := Guard(set, "adapter"); err != nil {
		t.Fatalf("expected unpaused, got %v", err)
	}
	set.Set("b", true)
	set.Set("a", true)
	if got := set.Paused(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected paused list %v", got)
	}
}
