package adapter

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Amount is either an exact quantity or Full, which settles the whole
// balance that applies to the operation (debt for repay, the caller's balance
// for supply and withdraw). Full is resolved from live state when the
// operation starts.
type Amount struct {
	full  bool
	value uint256.Int
}

// Exact returns an amount of exactly v. A nil v is zero.
func Exact(v *uint256.Int) Amount {
	var a Amount
	if v != nil {
		a.value.Set(v)
	}
	return a
}

// Full returns the "settle everything" amount.
func Full() Amount {
	return Amount{full: true}
}

// AmountFromUint256 decodes a wire value where the all-ones word is the
// conventional "maximum" marker.
func AmountFromUint256(v *uint256.Int) Amount {
	if v != nil && v.Eq(maxUint256) {
		return Full()
	}
	return Exact(v)
}

// ParseAmount accepts a base-10 or 0x-prefixed integer, or "max"/"full".
func ParseAmount(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "":
		return Amount{}, fmt.Errorf("%w: amount required", ErrInvalidAmount)
	case "max", "full":
		return Full(), nil
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		v, err = uint256.FromHex(trimmed)
	} else {
		v, err = uint256.FromDecimal(trimmed)
	}
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return AmountFromUint256(v), nil
}

func (a Amount) IsFull() bool { return a.full }

// Value returns the exact quantity; ok is false for Full.
func (a Amount) Value() (*uint256.Int, bool) {
	if a.full {
		return nil, false
	}
	return new(uint256.Int).Set(&a.value), true
}

func (a Amount) String() string {
	if a.full {
		return "max"
	}
	return a.value.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// resolve turns the amount into a concrete quantity, querying full only for Full.
func (a Amount) resolve(full func() (*uint256.Int, error)) (*uint256.Int, error) {
	if !a.full {
		return new(uint256.Int).Set(&a.value), nil
	}
	return full()
}

var maxUint256 = new(uint256.Int).SetAllOne()
