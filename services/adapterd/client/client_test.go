package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"venusadapter/native/adapter"
	"venusadapter/services/adapterd/api"
	"venusadapter/services/adapterd/receipts"
	"venusadapter/services/adapterd/sandbox"
	"venusadapter/services/adapterd/server"
	"venusadapter/storage"
)

func TestClientSendsTokenAndDecodesErrors(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"adapter: no outstanding debt","code":"no_outstanding_debt"}`))
	}))
	defer stub.Close()

	c, err := New(Config{URL: stub.URL + "/", Token: "tok"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Repay(context.Background(), api.RepayRequest{Market: "vUSDT", Amount: adapter.Full()})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "no_outstanding_debt" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotPath != "/v1/repay" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["amount"] != "max" {
		t.Fatalf("expected amount max, got %v", gotBody["amount"])
	}
}

func TestClientPlainTextError(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer stub.Close()

	c, err := New(Config{URL: stub.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Markets(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Msg != "boom" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{URL: "  "}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestClientAgainstDaemon(t *testing.T) {
	world, err := sandbox.Open(sandbox.DevConfig(), storage.NewMemDB(), nil)
	if err != nil {
		t.Fatalf("open world: %v", err)
	}
	defer world.Close()
	store, err := receipts.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	if err != nil {
		t.Fatalf("open receipts: %v", err)
	}
	defer store.Close()
	srv, err := server.New(server.Config{World: world, Receipts: store, RateLimit: server.RateLimit{RequestsPerSecond: 100, Burst: 100}})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, err := New(Config{URL: ts.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()
	alice := common.HexToAddress(sandbox.DevAlice)
	bob := common.HexToAddress(sandbox.DevBob)

	cfg, err := c.Config(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.NativeMarket != common.HexToAddress(sandbox.DevVBNB) {
		t.Fatalf("unexpected native market %s", cfg.NativeMarket.Hex())
	}

	ether := new(uint256.Int).Mul(uint256.NewInt(10), uint256.NewInt(1e18))
	if _, err := c.SupplyNative(ctx, api.SupplyNativeRequest{Caller: alice, Value: ether}); err != nil {
		t.Fatalf("supply native: %v", err)
	}

	// bob borrows native against USDC, then settles and withdraws atomically
	collateral := new(uint256.Int).Mul(uint256.NewInt(1000), uint256.NewInt(1e18))
	if err := c.Approve(ctx, api.ApproveRequest{Caller: bob, Contract: "USDC", Amount: adapter.Full()}); err != nil {
		t.Fatalf("approve usdc: %v", err)
	}
	if err := c.Approve(ctx, api.ApproveRequest{Caller: bob, Contract: "vUSDC", Amount: adapter.Full()}); err != nil {
		t.Fatalf("approve vusdc: %v", err)
	}
	if _, err := c.Supply(ctx, api.SupplyRequest{Caller: bob, Market: "vUSDC", Amount: adapter.Exact(collateral)}); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := c.EnterMarkets(ctx, api.EnterMarketsRequest{Caller: bob, Markets: []string{"vUSDC"}}); err != nil {
		t.Fatalf("enter markets: %v", err)
	}
	if _, err := c.Borrow(ctx, api.BorrowRequest{Caller: bob, Market: "vBNB", Amount: uint256.NewInt(1e18)}); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	height, err := c.Mine(ctx, 10)
	if err != nil || height != 10 {
		t.Fatalf("mine: height %d err %v", height, err)
	}

	two := uint256.NewInt(2e18)
	resp, err := c.RepayAndWithdraw(ctx, api.RepayAndWithdrawRequest{
		Caller:         bob,
		RepayMarket:    "vBNB",
		RepayAmount:    adapter.Full(),
		WithdrawMarket: "vUSDC",
		WithdrawAmount: adapter.Full(),
		Value:          two,
	})
	if err != nil {
		t.Fatalf("repay and withdraw: %v", err)
	}
	if len(resp.Receipt.Legs) != 2 || resp.Receipt.Refunded.IsZero() {
		t.Fatalf("unexpected receipt %+v", resp.Receipt)
	}

	view, err := c.Account(ctx, bob)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	for _, p := range view.Positions {
		if !p.Borrow.IsZero() || !p.VTokens.IsZero() {
			t.Fatalf("expected bob to be fully closed out, got %+v", p)
		}
	}

	list, err := c.Receipts(ctx, bob, 10)
	if err != nil {
		t.Fatalf("receipts: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two receipts for bob, got %+v", list)
	}
	got, err := c.Receipt(ctx, resp.ID)
	if err != nil || got.Digest != resp.Digest {
		t.Fatalf("receipt lookup: %+v %v", got, err)
	}
}
