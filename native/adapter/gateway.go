package adapter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeAsset is the placeholder address under which native currency is
// reported alongside token assets.
var NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// nativeGateway presents native currency through the same Asset surface as
// tokens, so the transfer helper and residual checks treat it uniformly.
type nativeGateway struct {
	ledger Ledger
	self   common.Address
}

func (g nativeGateway) Address() common.Address { return NativeAsset }

func (g nativeGateway) BalanceOf(account common.Address) *uint256.Int {
	return g.ledger.NativeBalance(account)
}

// Transfer sends native currency from caller, which is always the adapter.
func (g nativeGateway) Transfer(caller, to common.Address, amount *uint256.Int) error {
	return g.ledger.TransferNative(caller, to, amount)
}

// wrap takes custody of value attached by from.
func (g nativeGateway) wrap(from common.Address, value *uint256.Int) error {
	if value == nil || value.IsZero() {
		return nil
	}
	if err := g.ledger.TransferNative(from, g.self, value); err != nil {
		return fmt.Errorf("adapter: attach value: %w", err)
	}
	return nil
}

// unwrap releases native currency held by the adapter to to.
func (g nativeGateway) unwrap(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := g.ledger.TransferNative(g.self, to, amount); err != nil {
		return fmt.Errorf("%w: native: %w", ErrTransferFailed, err)
	}
	return nil
}
