// Package api holds the JSON bodies exchanged with adapterd. Amounts are
// base-unit decimal strings; "max" selects the full balance or debt.
package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/native/adapter"
)

// Scopes carried in bearer tokens.
const (
	ScopeWrite = "adapter:write"
	ScopeAdmin = "sandbox:admin"
)

// SupplyRequest deposits into a market.
type SupplyRequest struct {
	Caller common.Address `json:"caller"`
	Market string         `json:"market"`
	Amount adapter.Amount `json:"amount"`
}

// SupplyNativeRequest deposits the attached value into the native market.
type SupplyNativeRequest struct {
	Caller common.Address `json:"caller"`
	Value  *uint256.Int   `json:"value"`
}

// WithdrawRequest redeems underlying from a market.
type WithdrawRequest struct {
	Caller common.Address `json:"caller"`
	Market string         `json:"market"`
	Amount adapter.Amount `json:"amount"`
}

// RepayRequest repays caller's debt. Value is only accepted when Market is
// the native market.
type RepayRequest struct {
	Caller common.Address `json:"caller"`
	Market string         `json:"market"`
	Amount adapter.Amount `json:"amount"`
	Value  *uint256.Int   `json:"value,omitempty"`
}

// RepayNativeRequest repays native debt from the attached value.
type RepayNativeRequest struct {
	Caller common.Address `json:"caller"`
	Amount adapter.Amount `json:"amount"`
	Value  *uint256.Int   `json:"value"`
}

// RepayAndWithdrawRequest repays on one market and withdraws from another
// in a single atomic call.
type RepayAndWithdrawRequest struct {
	Caller         common.Address `json:"caller"`
	RepayMarket    string         `json:"repayMarket"`
	RepayAmount    adapter.Amount `json:"repayAmount"`
	WithdrawMarket string         `json:"withdrawMarket"`
	WithdrawAmount adapter.Amount `json:"withdrawAmount"`
	Value          *uint256.Int   `json:"value,omitempty"`
}

// OperationResponse is returned by every adapter operation.
type OperationResponse struct {
	ID      string           `json:"id"`
	Digest  string           `json:"digest"`
	Receipt *adapter.Receipt `json:"receipt"`
}

// ApproveRequest sets an allowance on a token or market. Contract accepts
// an address or a token/market symbol; Spender defaults to the adapter.
type ApproveRequest struct {
	Caller   common.Address  `json:"caller"`
	Contract string          `json:"contract"`
	Spender  *common.Address `json:"spender,omitempty"`
	Amount   adapter.Amount  `json:"amount"`
}

// EnterMarketsRequest adds markets to the caller's collateral.
type EnterMarketsRequest struct {
	Caller  common.Address `json:"caller"`
	Markets []string       `json:"markets"`
}

// BorrowRequest borrows directly from a market.
type BorrowRequest struct {
	Caller common.Address `json:"caller"`
	Market string         `json:"market"`
	Amount *uint256.Int   `json:"amount"`
}

// MineRequest advances the sandbox block height.
type MineRequest struct {
	Blocks uint64 `json:"blocks"`
}

// MineResponse reports the new height.
type MineResponse struct {
	Block uint64 `json:"block"`
}

// ConfigResponse describes the adapter deployment.
type ConfigResponse struct {
	Address      common.Address `json:"address"`
	Comptroller  common.Address `json:"comptroller"`
	NativeMarket common.Address `json:"nativeMarket"`
	NativeSymbol string         `json:"nativeSymbol"`
	Block        uint64         `json:"block"`
	AuthEnabled  bool           `json:"authEnabled"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StreamMessage is pushed to /v1/stream subscribers after each operation.
type StreamMessage struct {
	ID      string           `json:"id"`
	Digest  string           `json:"digest"`
	Receipt *adapter.Receipt `json:"receipt"`
}
