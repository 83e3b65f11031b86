package adapter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Each transfer method comes in two shapes: one reports success with a bool,
// the other only through its error.
type (
	boolTransfer interface {
		Transfer(caller, to common.Address, amount *uint256.Int) (bool, error)
	}
	voidTransfer interface {
		Transfer(caller, to common.Address, amount *uint256.Int) error
	}
	boolTransferFrom interface {
		TransferFrom(caller, from, to common.Address, amount *uint256.Int) (bool, error)
	}
	voidTransferFrom interface {
		TransferFrom(caller, from, to common.Address, amount *uint256.Int) error
	}
	boolApprove interface {
		Approve(caller, spender common.Address, amount *uint256.Int) (bool, error)
	}
	voidApprove interface {
		Approve(caller, spender common.Address, amount *uint256.Int) error
	}
	allowanceReader interface {
		Allowance(owner, spender common.Address) *uint256.Int
	}
)

// transferHelper moves assets on behalf of the adapter address. A false
// return and an error are both reported as ErrTransferFailed.
type transferHelper struct {
	self common.Address
}

// pull moves amount from owner into the adapter using the adapter's allowance.
func (h transferHelper) pull(asset Asset, owner common.Address, amount *uint256.Int) error {
	if reader, ok := asset.(allowanceReader); ok {
		if allowance := reader.Allowance(owner, h.self); allowance.Lt(amount) {
			return fmt.Errorf("%w: %s allows %s, need %s", ErrInsufficientAllowance, asset.Address().Hex(), allowance.Dec(), amount.Dec())
		}
	}
	switch t := asset.(type) {
	case boolTransferFrom:
		ok, err := t.TransferFrom(h.self, owner, h.self, amount)
		return transferOutcome("transferFrom", asset, ok, err)
	case voidTransferFrom:
		return transferOutcome("transferFrom", asset, true, t.TransferFrom(h.self, owner, h.self, amount))
	default:
		return fmt.Errorf("%w: %s has no transferFrom", ErrTransferFailed, asset.Address().Hex())
	}
}

// push moves amount from the adapter to recipient.
func (h transferHelper) push(asset Asset, recipient common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	switch t := asset.(type) {
	case boolTransfer:
		ok, err := t.Transfer(h.self, recipient, amount)
		return transferOutcome("transfer", asset, ok, err)
	case voidTransfer:
		return transferOutcome("transfer", asset, true, t.Transfer(h.self, recipient, amount))
	default:
		return fmt.Errorf("%w: %s has no transfer", ErrTransferFailed, asset.Address().Hex())
	}
}

// approve lets spender pull amount of asset from the adapter.
func (h transferHelper) approve(asset Asset, spender common.Address, amount *uint256.Int) error {
	switch t := asset.(type) {
	case boolApprove:
		ok, err := t.Approve(h.self, spender, amount)
		return transferOutcome("approve", asset, ok, err)
	case voidApprove:
		return transferOutcome("approve", asset, true, t.Approve(h.self, spender, amount))
	default:
		return fmt.Errorf("%w: %s has no approve", ErrTransferFailed, asset.Address().Hex())
	}
}

func transferOutcome(method string, asset Asset, ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransferFailed, asset.Address().Hex(), method, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s returned false", ErrTransferFailed, asset.Address().Hex(), method)
	}
	return nil
}
