package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidUnits = errors.New("config: invalid amount")

	mantissaScale = decimal.New(1, 18)
)

// ParseUnits converts a human-readable amount such as "12.5" into base units
// of a token with the given decimals. Fractions finer than one base unit are
// rejected rather than rounded.
func ParseUnits(amount string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnits, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidUnits, amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidUnits, amount, decimals)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows", ErrInvalidUnits, amount)
	}
	return out, nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}

// Mantissa converts a decimal fraction such as "0.75" into a 1e18 mantissa.
func Mantissa(value string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnits, value)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidUnits, value)
	}
	return d.Mul(mantissaScale).Truncate(0).BigInt(), nil
}

// PriceMantissa converts a USD price per whole token into the oracle's
// mantissa, scaled by 10^(36-decimals) so that price*amount/1e18 is a USD
// mantissa for amounts in base units.
func PriceMantissa(priceUSD string, decimals uint8) (*big.Int, error) {
	if decimals > 36 {
		return nil, fmt.Errorf("%w: %d decimals", ErrInvalidUnits, decimals)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(priceUSD))
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ErrInvalidUnits, priceUSD)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: price %q must be positive", ErrInvalidUnits, priceUSD)
	}
	return d.Shift(int32(36 - int(decimals))).Truncate(0).BigInt(), nil
}
