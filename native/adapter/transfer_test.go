package adapter

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// balanceOnly has balances but no transfer capability at all.
type balanceOnly struct{}

func (balanceOnly) Address() common.Address               { return common.HexToAddress("0x0b") }
func (balanceOnly) BalanceOf(common.Address) *uint256.Int { return uint256.NewInt(100) }

// erroringToken returns true alongside an error, which must still count as failure.
type erroringToken struct{ balanceOnly }

func (erroringToken) Transfer(caller, to common.Address, amount *uint256.Int) (bool, error) {
	return true, errors.New("boom")
}

func TestTransferHelperRequiresCapability(t *testing.T) {
	h := transferHelper{self: adapterAddr}
	if err := h.pull(balanceOnly{}, user, uint256.NewInt(1)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("pull: expected ErrTransferFailed, got %v", err)
	}
	if err := h.push(balanceOnly{}, user, uint256.NewInt(1)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("push: expected ErrTransferFailed, got %v", err)
	}
	if err := h.approve(balanceOnly{}, user, uint256.NewInt(1)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("approve: expected ErrTransferFailed, got %v", err)
	}
}

func TestTransferHelperTreatsErrorAsFailure(t *testing.T) {
	h := transferHelper{self: adapterAddr}
	if err := h.push(erroringToken{}, user, uint256.NewInt(1)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if err := h.push(erroringToken{}, user, new(uint256.Int)); err != nil {
		t.Fatalf("zero push must be a no-op, got %v", err)
	}
}
