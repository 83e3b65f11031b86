package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/types"
)

const (
	// TypeTransfer is emitted for token balance movements (underlying and market tokens).
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an allowance is set.
	TypeApproval = "token.approval"
	// TypeNativeTransfer is emitted for native currency movements.
	TypeNativeTransfer = "transfer.native"
)

type Transfer struct {
	Token  common.Address
	Symbol string
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"token":  formatAddress(e.Token),
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if symbol := normalizeAsset(e.Symbol); symbol != "" {
		attrs["symbol"] = symbol
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Approval struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *uint256.Int
}

func (Approval) EventType() string { return TypeApproval }

func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"token":   formatAddress(e.Token),
		"owner":   formatAddress(e.Owner),
		"spender": formatAddress(e.Spender),
		"amount":  formatAmount(e.Amount),
	}}
}

type NativeTransfer struct {
	From   common.Address
	To     common.Address
	Amount *uint256.Int
}

func (NativeTransfer) EventType() string { return TypeNativeTransfer }

func (e NativeTransfer) Event() *types.Event {
	return &types.Event{Type: TypeNativeTransfer, Attributes: map[string]string{
		"asset":  "BNB",
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}
