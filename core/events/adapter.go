package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/types"
)

const (
	// TypeAdapterSupplied is emitted after underlying is minted into a market on behalf of an account.
	TypeAdapterSupplied = "adapter.supplied"
	// TypeAdapterWithdrawn is emitted after market tokens are redeemed and the underlying forwarded.
	TypeAdapterWithdrawn = "adapter.withdrawn"
	// TypeAdapterRepaid is emitted after debt is repaid on behalf of an account.
	TypeAdapterRepaid = "adapter.repaid"
	// TypeAdapterRefunded is emitted whenever unspent funds are returned to the caller.
	TypeAdapterRefunded = "adapter.refunded"
)

type AdapterSupplied struct {
	Account      common.Address
	Market       common.Address
	Amount       *uint256.Int
	MarketTokens *uint256.Int
}

func (AdapterSupplied) EventType() string { return TypeAdapterSupplied }

func (e AdapterSupplied) Event() *types.Event {
	return &types.Event{Type: TypeAdapterSupplied, Attributes: map[string]string{
		"account":      formatAddress(e.Account),
		"market":       formatAddress(e.Market),
		"amount":       formatAmount(e.Amount),
		"marketTokens": formatAmount(e.MarketTokens),
	}}
}

type AdapterWithdrawn struct {
	Account      common.Address
	Market       common.Address
	MarketTokens *uint256.Int
	Amount       *uint256.Int
}

func (AdapterWithdrawn) EventType() string { return TypeAdapterWithdrawn }

func (e AdapterWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeAdapterWithdrawn, Attributes: map[string]string{
		"account":      formatAddress(e.Account),
		"market":       formatAddress(e.Market),
		"marketTokens": formatAmount(e.MarketTokens),
		"amount":       formatAmount(e.Amount),
	}}
}

type AdapterRepaid struct {
	Account       common.Address
	Market        common.Address
	Amount        *uint256.Int
	RemainingDebt *uint256.Int
}

func (AdapterRepaid) EventType() string { return TypeAdapterRepaid }

func (e AdapterRepaid) Event() *types.Event {
	return &types.Event{Type: TypeAdapterRepaid, Attributes: map[string]string{
		"account":       formatAddress(e.Account),
		"market":        formatAddress(e.Market),
		"amount":        formatAmount(e.Amount),
		"remainingDebt": formatAmount(e.RemainingDebt),
	}}
}

type AdapterRefunded struct {
	Account common.Address
	Asset   string
	Amount  *uint256.Int
}

func (AdapterRefunded) EventType() string { return TypeAdapterRefunded }

func (e AdapterRefunded) Event() *types.Event {
	attrs := map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
	}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	return &types.Event{Type: TypeAdapterRefunded, Attributes: attrs}
}
