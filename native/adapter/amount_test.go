package adapter

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		full bool
		want uint64
	}{
		{in: "max", full: true},
		{in: " FULL ", full: true},
		{in: "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", full: true},
		{in: "115792089237316195423570985008687907853269984665640564039457584007913129639935", full: true},
		{in: "1000", want: 1000},
		{in: "0x10", want: 16},
		{in: "0", want: 0},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tc.in, err)
		}
		if got.IsFull() != tc.full {
			t.Fatalf("ParseAmount(%q): full=%v", tc.in, got.IsFull())
		}
		if !tc.full {
			v, ok := got.Value()
			if !ok || v.Uint64() != tc.want {
				t.Fatalf("ParseAmount(%q) = %v", tc.in, got)
			}
		}
	}
	for _, bad := range []string{"", "-1", "1.5", "lots"} {
		if _, err := ParseAmount(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %v", bad, err)
		}
	}
}

func TestAmountValueIsCopied(t *testing.T) {
	src := uint256.NewInt(5)
	a := Exact(src)
	src.SetUint64(6)
	v, _ := a.Value()
	if v.Uint64() != 5 {
		t.Fatalf("Exact must copy its input")
	}
	v.SetUint64(7)
	again, _ := a.Value()
	if again.Uint64() != 5 {
		t.Fatalf("Value must return a copy")
	}
}

func TestAmountJSON(t *testing.T) {
	var body struct {
		Amount Amount `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"max"}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body.Amount.IsFull() {
		t.Fatalf("expected Full")
	}
	out, err := json.Marshal(struct {
		Amount Amount `json:"amount"`
	}{Exact(uint256.NewInt(42))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount":"42"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestResolveOnlyQueriesForFull(t *testing.T) {
	called := false
	query := func() (*uint256.Int, error) {
		called = true
		return uint256.NewInt(9), nil
	}
	v, _ := Exact(uint256.NewInt(3)).resolve(query)
	if called || v.Uint64() != 3 {
		t.Fatalf("exact amount must not query state")
	}
	v, _ = Full().resolve(query)
	if !called || v.Uint64() != 9 {
		t.Fatalf("full amount must resolve from state")
	}
}
