package adapter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/types"
)

const (
	OpSupply           = "supply"
	OpSupplyNative     = "supplyNative"
	OpWithdraw         = "withdraw"
	OpRepay            = "repay"
	OpRepayNative      = "repayNative"
	OpRepayAndWithdraw = "repayAndWithdraw"
)

// Leg is one market interaction performed by an operation.
type Leg struct {
	Kind          string         `json:"kind"`
	Market        common.Address `json:"market"`
	Underlying    *uint256.Int   `json:"underlying"`
	MarketTokens  *uint256.Int   `json:"marketTokens,omitempty"`
	RemainingDebt *uint256.Int   `json:"remainingDebt,omitempty"`
	Returned      *uint256.Int   `json:"returned,omitempty"`
}

// Receipt summarises a successful operation.
type Receipt struct {
	Operation string         `json:"operation"`
	Caller    common.Address `json:"caller"`
	Value     *uint256.Int   `json:"value"`
	Block     uint64         `json:"block"`
	Legs      []Leg          `json:"legs"`
	Refunded  *uint256.Int   `json:"refunded"`
	Events    []*types.Event `json:"events"`
}
