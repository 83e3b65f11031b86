package adapter

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/state"
	"venusadapter/native/token"
	"venusadapter/native/venus"
)

var (
	adapterAddr     = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	comptrollerAddr = common.HexToAddress("0xfD36E2c2a6789Db23113685031d7F16329158384")

	usdtAddr = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	usdcAddr = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	fusdAddr = common.HexToAddress("0x00000000000000000000000000000000000f05d0")
	nusdAddr = common.HexToAddress("0x0000000000000000000000000000000000005d00")

	vUSDTAddr = common.HexToAddress("0xfD5840Cd36d94D7229439859C0112a4185BC0255")
	vUSDCAddr = common.HexToAddress("0xecA88125a5ADbe82614ffC12D0DB554E2e2867C8")
	vBNBAddr  = common.HexToAddress("0xA07c5b74C9B40447a954e1466938b865b6BBea36")
	vFUSDAddr = common.HexToAddress("0x000000000000000000000000000000000000f0f0")
	vNUSDAddr = common.HexToAddress("0x000000000000000000000000000000000000e0e0")

	user   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	lender = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func ctx() context.Context { return context.Background() }

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

func mantissa(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad mantissa " + s)
	}
	return v
}

type testDirectory struct {
	comp   *venus.Comptroller
	assets map[common.Address]Asset
}

func (d testDirectory) Market(addr common.Address) (Market, bool) {
	m, ok := d.comp.Market(addr)
	if !ok {
		return nil, false
	}
	return m, true
}

func (d testDirectory) Asset(addr common.Address) (Asset, bool) {
	a, ok := d.assets[addr]
	return a, ok
}

type testWorld struct {
	ledger  *state.Ledger
	comp    *venus.Comptroller
	usdt    *token.BEP20
	usdc    *token.BEP20
	fusd    *token.BEP20
	nusd    *token.NoReturn
	vUSDT   *venus.Market
	vUSDC   *venus.Market
	vBNB    *venus.Market
	vFUSD   *venus.Market
	vNUSD   *venus.Market
	dir     testDirectory
	adapter *Adapter
}

func newTestWorld(t *testing.T, opts ...Option) *testWorld {
	t.Helper()
	ledger := state.NewLedger()
	w := &testWorld{ledger: ledger}
	w.usdt = token.NewBEP20(ledger, token.Metadata{Address: usdtAddr, Symbol: "USDT", Decimals: 18}, token.Reverting)
	w.usdc = token.NewBEP20(ledger, token.Metadata{Address: usdcAddr, Symbol: "USDC", Decimals: 18}, token.Reverting)
	w.fusd = token.NewBEP20(ledger, token.Metadata{Address: fusdAddr, Symbol: "FUSD", Decimals: 18}, token.ReturnsFalse)
	w.nusd = token.NewNoReturn(ledger, token.Metadata{Address: nusdAddr, Symbol: "NUSD", Decimals: 18})

	w.comp = venus.NewComptroller(ledger, comptrollerAddr)
	model := venus.NewInterestModel(mantissa("20000000000000000"), mantissa("100000000000000000"))
	newMarket := func(addr common.Address, symbol string, underlying any, price string) *venus.Market {
		m, err := venus.NewMarket(ledger, venus.MarketConfig{
			Address:             addr,
			Symbol:              symbol,
			Decimals:            8,
			Underlying:          underlying,
			InitialExchangeRate: mantissa("200000000000000000000000000"),
			ReserveFactor:       mantissa("100000000000000000"),
			Model:               model,
		})
		if err != nil {
			t.Fatalf("new market %s: %v", symbol, err)
		}
		if err := w.comp.SupportMarket(m, mantissa("800000000000000000")); err != nil {
			t.Fatalf("support %s: %v", symbol, err)
		}
		if err := w.comp.SetUnderlyingPrice(addr, mantissa(price)); err != nil {
			t.Fatalf("price %s: %v", symbol, err)
		}
		return m
	}
	w.vUSDT = newMarket(vUSDTAddr, "vUSDT", w.usdt, "1000000000000000000")
	w.vUSDC = newMarket(vUSDCAddr, "vUSDC", w.usdc, "1000000000000000000")
	w.vBNB = newMarket(vBNBAddr, "vBNB", nil, "300000000000000000000")
	w.vFUSD = newMarket(vFUSDAddr, "vFUSD", w.fusd, "1000000000000000000")
	w.vNUSD = newMarket(vNUSDAddr, "vNUSD", w.nusd, "1000000000000000000")

	w.dir = testDirectory{comp: w.comp, assets: map[common.Address]Asset{
		usdtAddr: w.usdt,
		usdcAddr: w.usdc,
		fusdAddr: w.fusd,
		nusdAddr: w.nusd,
	}}

	w.usdt.Mint(user, e18(10_000))
	w.usdc.Mint(lender, e18(50_000))
	ledger.AddNative(user, e18(1_000))
	ledger.AddNative(lender, e18(1_000))

	// lender seeds borrowable liquidity in USDC and BNB
	if _, err := w.usdc.Approve(lender, vUSDCAddr, e18(50_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if code, err := w.vUSDC.Mint(lender, e18(50_000)); err != nil || code != venus.NoError {
		t.Fatalf("seed usdc: %s %v", code, err)
	}
	if code, err := w.vBNB.Mint(lender, e18(500)); err != nil || code != venus.NoError {
		t.Fatalf("seed bnb: %s %v", code, err)
	}
	ledger.Finalise()

	a, err := New(Config{Address: adapterAddr, Comptroller: comptrollerAddr, NativeMarket: vBNBAddr}, ledger, w.comp, w.dir, opts...)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(a.Close)
	w.adapter = a
	return w
}

func (w *testWorld) approve(t *testing.T, tok interface {
	Approve(caller, spender common.Address, amount *uint256.Int) (bool, error)
}, amount *uint256.Int) {
	t.Helper()
	if ok, err := tok.Approve(user, adapterAddr, amount); !ok || err != nil {
		t.Fatalf("approve: %v %v", ok, err)
	}
}

// supplyAndBorrow supplies all of the user's USDT as collateral and borrows
// USDC directly from the market.
func (w *testWorld) supplyAndBorrow(t *testing.T, borrowMarket *venus.Market, borrow *uint256.Int) {
	t.Helper()
	w.approve(t, w.usdt, e18(10_000))
	if _, err := w.adapter.Supply(ctx(), Call{Caller: user}, vUSDTAddr, Exact(e18(10_000))); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if _, err := w.comp.EnterMarkets(user, []common.Address{vUSDTAddr}); err != nil {
		t.Fatalf("enter markets: %v", err)
	}
	if code, err := borrowMarket.Borrow(user, borrow); err != nil || code != venus.NoError {
		t.Fatalf("borrow: %s %v", code, err)
	}
	w.ledger.Finalise()
}

func (w *testWorld) assertAdapterEmpty(t *testing.T) {
	t.Helper()
	for _, asset := range []Asset{w.usdt, w.usdc, w.fusd, w.nusd, w.vUSDT, w.vUSDC, w.vBNB, w.vFUSD, w.vNUSD} {
		if bal := asset.BalanceOf(adapterAddr); !bal.IsZero() {
			t.Fatalf("adapter holds %s of %s", bal, asset.Address().Hex())
		}
	}
	if bal := w.ledger.NativeBalance(adapterAddr); !bal.IsZero() {
		t.Fatalf("adapter holds %s native", bal)
	}
}
