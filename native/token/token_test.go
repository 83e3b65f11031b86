package token

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/state"
)

var (
	owner   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender = common.HexToAddress("0x0000000000000000000000000000000000000002")
	sink    = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func newToken(behaviour Behaviour) (*BEP20, *state.Ledger) {
	ledger := state.NewLedger()
	tok := NewBEP20(ledger, Metadata{
		Address:  common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
		Symbol:   "USDT",
		Decimals: 18,
	}, behaviour)
	tok.Mint(owner, uint256.NewInt(1000))
	return tok, ledger
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	tok, _ := newToken(Reverting)
	if ok, err := tok.Approve(owner, spender, uint256.NewInt(300)); !ok || err != nil {
		t.Fatalf("approve failed: %v %v", ok, err)
	}
	ok, err := tok.TransferFrom(spender, owner, sink, uint256.NewInt(200))
	if !ok || err != nil {
		t.Fatalf("transferFrom failed: %v %v", ok, err)
	}
	if got := tok.Allowance(owner, spender).Uint64(); got != 100 {
		t.Fatalf("expected allowance 100, got %d", got)
	}
	if got := tok.BalanceOf(sink).Uint64(); got != 200 {
		t.Fatalf("expected sink balance 200, got %d", got)
	}
}

func TestUnlimitedAllowanceIsNotDecremented(t *testing.T) {
	tok, _ := newToken(Reverting)
	if _, err := tok.Approve(owner, spender, maxUint256); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := tok.TransferFrom(spender, owner, sink, uint256.NewInt(10)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if !tok.Allowance(owner, spender).Eq(maxUint256) {
		t.Fatalf("unlimited allowance changed")
	}
}

func TestRevertingTokenReturnsErrors(t *testing.T) {
	tok, _ := newToken(Reverting)
	_, err := tok.TransferFrom(spender, owner, sink, uint256.NewInt(1))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	_, err = tok.Transfer(owner, sink, uint256.NewInt(1001))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected balance error, got %v", err)
	}
}

func TestReturnsFalseTokenLeavesStateUntouched(t *testing.T) {
	tok, ledger := newToken(ReturnsFalse)
	before := ledger.EventCount()
	ok, err := tok.Transfer(owner, sink, uint256.NewInt(5000))
	if ok || err != nil {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if got := tok.BalanceOf(owner).Uint64(); got != 1000 {
		t.Fatalf("balance changed on failed transfer: %d", got)
	}
	if ledger.EventCount() != before {
		t.Fatalf("failed transfer emitted events")
	}
}

func TestNoReturnWrapper(t *testing.T) {
	ledger := state.NewLedger()
	tok := NewNoReturn(ledger, Metadata{Address: common.HexToAddress("0xdead"), Symbol: "NR"})
	tok.Mint(owner, uint256.NewInt(10))
	if err := tok.Transfer(owner, sink, uint256.NewInt(4)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := tok.TransferFrom(spender, owner, sink, uint256.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
}

func TestParseBehaviour(t *testing.T) {
	cases := map[string]Behaviour{"": Reverting, "standard": Reverting, "Returns-False": ReturnsFalse}
	for in, want := range cases {
		got, err := ParseBehaviour(in)
		if err != nil || got != want {
			t.Fatalf("ParseBehaviour(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseBehaviour("weird"); err == nil {
		t.Fatalf("expected error for unknown behaviour")
	}
}
