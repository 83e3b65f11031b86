package sandbox

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"venusadapter/config"
	"venusadapter/native/adapter"
	nativecommon "venusadapter/native/common"
	"venusadapter/storage"
)

var (
	alice  = common.HexToAddress(DevAlice)
	bob    = common.HexToAddress(DevBob)
	vUSDT  = common.HexToAddress(DevVUSDT)
	vUSDC  = common.HexToAddress(DevVUSDC)
	vBNB   = common.HexToAddress(DevVBNB)
	vFUSD  = common.HexToAddress(DevVFUSD)
	usdt   = common.HexToAddress(DevUSDT)
	usdc   = common.HexToAddress(DevUSDC)
	adaptr = common.HexToAddress(DevAdapter)
)

func units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

func openWorld(t *testing.T, cfg *config.Config, db storage.Database) *World {
	t.Helper()
	require.NoError(t, config.Validate(cfg))
	w, err := Open(cfg, db, nil)
	require.NoError(t, err)
	return w
}

func TestDevConfigIsValid(t *testing.T) {
	require.NoError(t, config.Validate(DevConfig()))
}

func TestOpenFundsGenesisOnce(t *testing.T) {
	db := storage.NewMemDB()
	w := openWorld(t, DevConfig(), db)
	require.True(t, w.Genesis())
	require.Equal(t, units(1000), w.Ledger().NativeBalance(alice))
	usdtInfo, ok := w.Token(usdt)
	require.True(t, ok)
	require.Equal(t, units(10_000), usdtInfo.contract.BalanceOf(alice))

	// spend some, commit, and reopen on the same store
	require.NoError(t, w.Ledger().TransferNative(alice, bob, units(1)))
	w.Mine(7)
	require.NoError(t, w.Commit())
	w.adapter.Close()

	again := openWorld(t, DevConfig(), db)
	t.Cleanup(func() { _ = again.Close() })
	require.False(t, again.Genesis())
	require.Equal(t, units(999), again.Ledger().NativeBalance(alice))
	require.Equal(t, uint64(7), again.Ledger().BlockNumber())
}

func TestDirectory(t *testing.T) {
	w := openWorld(t, DevConfig(), storage.NewMemDB())
	t.Cleanup(func() { _ = w.Close() })

	m, ok := w.Market(vUSDT)
	require.True(t, ok)
	require.Equal(t, usdt, m.Underlying())
	_, ok = w.Market(usdt)
	require.False(t, ok)

	a, ok := w.Asset(usdc)
	require.True(t, ok)
	require.Equal(t, usdc, a.Address())
	_, ok = w.Asset(vUSDC)
	require.False(t, ok)

	addr, err := w.ResolveMarket("vbnb")
	require.NoError(t, err)
	require.Equal(t, vBNB, addr)
	_, err = w.ResolveMarket("vDAI")
	require.ErrorIs(t, err, adapter.ErrUnknownMarket)

	require.Equal(t, uint8(6), w.UnderlyingDecimals(vFUSD))
	require.Equal(t, uint8(18), w.UnderlyingDecimals(vBNB))
}

func TestSupplyBorrowRepayThroughWorld(t *testing.T) {
	w := openWorld(t, DevConfig(), storage.NewMemDB())
	t.Cleanup(func() { _ = w.Close() })
	ctx := context.Background()
	ad := w.Adapter()

	// bob provides USDC liquidity
	require.NoError(t, w.Approve(bob, usdc, adaptr, units(50_000)))
	_, err := ad.Supply(ctx, adapter.Call{Caller: bob}, vUSDC, adapter.Exact(units(50_000)))
	require.NoError(t, err)

	// alice cannot borrow before posting collateral
	err = w.Borrow(alice, vUSDC, units(100))
	require.ErrorIs(t, err, ErrRejected)

	require.NoError(t, w.Approve(alice, usdt, adaptr, units(10_000)))
	_, err = ad.Supply(ctx, adapter.Call{Caller: alice}, vUSDT, adapter.Full())
	require.NoError(t, err)
	require.NoError(t, w.EnterMarkets(alice, []common.Address{vUSDT}))
	require.NoError(t, w.Borrow(alice, vUSDC, units(1_000)))

	view := w.Account(alice)
	require.True(t, view.Liquidity.Sign() > 0)
	require.True(t, view.Shortfall.IsZero())
	var borrowed bool
	for _, p := range view.Positions {
		if p.Market == vUSDC {
			borrowed = p.Borrow.Eq(units(1_000))
		}
		if p.Market == vUSDT {
			require.True(t, p.Entered)
			require.False(t, p.VTokens.IsZero())
		}
	}
	require.True(t, borrowed)

	w.Mine(100)
	market, err := w.VenusMarket(vUSDC)
	require.NoError(t, err)
	require.True(t, market.TotalBorrows().Gt(units(1_000)), "mining accrues interest on open borrows")
	require.True(t, market.TotalReserves().Sign() > 0)
	require.NoError(t, w.Approve(alice, usdc, adaptr, units(500)))
	receipt, err := ad.Repay(ctx, adapter.Call{Caller: alice}, vUSDC, adapter.Exact(units(500)))
	require.NoError(t, err)
	require.Equal(t, adapter.OpRepay, receipt.Operation)
	require.NotEmpty(t, receipt.Events)
}

func TestApproveUnknownContract(t *testing.T) {
	w := openWorld(t, DevConfig(), storage.NewMemDB())
	t.Cleanup(func() { _ = w.Close() })
	err := w.Approve(alice, common.HexToAddress("0x1234"), adaptr, units(1))
	require.ErrorIs(t, err, ErrUnknownContract)

	require.NoError(t, w.Approve(alice, vUSDT, adaptr, units(1)))
	m, _ := w.VenusMarket(vUSDT)
	require.Equal(t, units(1), m.Allowance(alice, adaptr))
}

func TestMarketsViewReportsPauses(t *testing.T) {
	cfg := DevConfig()
	cfg.Pauses = []config.Pause{{Market: "vFUSD", Action: "borrow"}}
	w := openWorld(t, cfg, storage.NewMemDB())
	t.Cleanup(func() { _ = w.Close() })

	views, err := w.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 5)
	require.Equal(t, "vUSDT", views[0].Symbol)
	require.Equal(t, "USDT", views[0].UnderlyingSymbol)
	require.True(t, views[2].Native)
	require.Equal(t, "BNB", views[2].UnderlyingSymbol)
	require.Equal(t, []string{"borrow"}, views[3].PausedActions)
	require.Equal(t, "200000000000000", views[3].ExchangeRate.Dec())
}

func TestPausedAdapterConfig(t *testing.T) {
	cfg := DevConfig()
	cfg.Adapter.Paused = true
	w := openWorld(t, cfg, storage.NewMemDB())
	t.Cleanup(func() { _ = w.Close() })

	_, err := w.Adapter().SupplyNative(context.Background(), adapter.Call{Caller: alice, Value: units(1)})
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)

	w.Pauses().Set(adapter.ModuleName, false)
	_, err = w.Adapter().SupplyNative(context.Background(), adapter.Call{Caller: alice, Value: units(1)})
	require.NoError(t, err)
}
