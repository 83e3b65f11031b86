package venus

import "math/big"

// BlocksPerYear matches BNB Smart Chain's three second block time.
const BlocksPerYear = 10_512_000

// InterestModel is a linear utilisation model: the per-block borrow rate is
// base + multiplier * utilisation.
type InterestModel struct {
	BaseRatePerBlock   *big.Int
	MultiplierPerBlock *big.Int
}

// NewInterestModel converts yearly mantissas into per-block rates.
func NewInterestModel(baseRatePerYear, multiplierPerYear *big.Int) InterestModel {
	blocks := big.NewInt(BlocksPerYear)
	return InterestModel{
		BaseRatePerBlock:   new(big.Int).Quo(nonNil(baseRatePerYear), blocks),
		MultiplierPerBlock: new(big.Int).Quo(nonNil(multiplierPerYear), blocks),
	}
}

// Utilisation returns borrows / (cash + borrows - reserves) as a mantissa.
func Utilisation(cash, borrows, reserves *big.Int) *big.Int {
	if borrows == nil || borrows.Sign() == 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(cash, borrows)
	denominator = subFloor(denominator, reserves)
	if denominator.Sign() == 0 {
		return big.NewInt(0)
	}
	return divScalarByExp(borrows, denominator)
}

func (m InterestModel) BorrowRatePerBlock(cash, borrows, reserves *big.Int) *big.Int {
	util := Utilisation(cash, borrows, reserves)
	rate := mulExp(util, nonNil(m.MultiplierPerBlock))
	return rate.Add(rate, nonNil(m.BaseRatePerBlock))
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
