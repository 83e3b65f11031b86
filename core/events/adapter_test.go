package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestAdapterRepaidEvent(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	market := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	evt := AdapterRepaid{
		Account:       account,
		Market:        market,
		Amount:        uint256.NewInt(1000),
		RemainingDebt: new(uint256.Int),
	}.Event()
	if evt.Type != TypeAdapterRepaid {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["account"] != account.Hex() || evt.Attributes["market"] != market.Hex() {
		t.Fatalf("unexpected addresses: %+v", evt.Attributes)
	}
	if evt.Attributes["amount"] != "1000" || evt.Attributes["remainingDebt"] != "0" {
		t.Fatalf("unexpected amounts: %+v", evt.Attributes)
	}
}

func TestRefundNormalizesAsset(t *testing.T) {
	evt := AdapterRefunded{Asset: " bnb ", Amount: nil}.Event()
	if evt.Attributes["asset"] != "BNB" {
		t.Fatalf("unexpected asset attr: %q", evt.Attributes["asset"])
	}
	if evt.Attributes["amount"] != "0" {
		t.Fatalf("nil amount should render as zero, got %q", evt.Attributes["amount"])
	}
}

func TestTransferOmitsEmptySymbol(t *testing.T) {
	evt := Transfer{Amount: uint256.NewInt(5)}.Event()
	if _, ok := evt.Attributes["symbol"]; ok {
		t.Fatalf("symbol should be omitted when empty")
	}
	clone := evt.Clone()
	clone.Attributes["amount"] = "6"
	if evt.Attributes["amount"] != "5" {
		t.Fatalf("clone must not alias attributes")
	}
}
