package venus

import (
	"math/big"

	"github.com/holiman/uint256"
)

var (
	expScale   = mustBigInt("1000000000000000000") // 1e18 mantissa
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// collateral factors above 90% are refused, as the comptroller does.
	maxCollateralFactor = mustBigInt("900000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulExp multiplies a mantissa by a scalar and truncates the 1e18 scale away.
func mulExp(exp, scalar *big.Int) *big.Int {
	if exp == nil || scalar == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(exp, scalar)
	return product.Quo(product, expScale)
}

// divScalarByExp computes scalar / exp with truncation.
func divScalarByExp(scalar, exp *big.Int) *big.Int {
	if scalar == nil || exp == nil || exp.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(scalar, expScale)
	return numerator.Quo(numerator, exp)
}

// subFloor returns a-b, or zero when b exceeds a.
func subFloor(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(a, b)
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.ToBig()
}

func toU256(v *big.Int) *uint256.Int {
	if v == nil || v.Sign() <= 0 {
		return new(uint256.Int)
	}
	return uint256.MustFromBig(v)
}
