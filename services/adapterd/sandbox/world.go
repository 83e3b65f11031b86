// Package sandbox assembles an in-process Venus deployment from
// configuration: tokens, markets, the comptroller, a journaled ledger backed
// by storage, and the adapter operating on top of them.
package sandbox

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/config"
	"venusadapter/core/state"
	"venusadapter/native/adapter"
	nativecommon "venusadapter/native/common"
	"venusadapter/native/token"
	"venusadapter/native/venus"
	"venusadapter/storage"
)

// TokenInfo describes a deployed underlying token.
type TokenInfo struct {
	Symbol    string
	Address   common.Address
	Decimals  uint8
	Behaviour string
	contract  adapter.Asset
}

// World is the assembled sandbox. It is not safe for concurrent use; callers
// serialize access the way a block producer would.
type World struct {
	cfg         *config.Config
	db          storage.Database
	logger      *slog.Logger
	ledger      *state.Ledger
	comptroller *venus.Comptroller
	pauses      *nativecommon.PauseSet
	adapter     *adapter.Adapter

	tokens       []*TokenInfo
	tokensByAddr map[common.Address]*TokenInfo
	markets      map[common.Address]*venus.Market
	nativeMarket common.Address
	genesis      bool
	onCommit     func(height uint64, took time.Duration)
}

// Open builds the world described by cfg. A ledger previously committed to db
// is resumed; otherwise the configured accounts are funded and the genesis
// state is committed.
func Open(cfg *config.Config, db storage.Database, logger *slog.Logger) (*World, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("sandbox: config and database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ledger, found, err := state.LoadLedger(db)
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:          cfg,
		db:           db,
		logger:       logger.With("component", "sandbox"),
		ledger:       ledger,
		pauses:       nativecommon.NewPauseSet(),
		tokensByAddr: make(map[common.Address]*TokenInfo),
		markets:      make(map[common.Address]*venus.Market),
		nativeMarket: common.HexToAddress(cfg.Adapter.NativeMarket),
		genesis:      !found,
	}
	w.comptroller = venus.NewComptroller(ledger, common.HexToAddress(cfg.Adapter.Comptroller))

	if err := w.deployTokens(); err != nil {
		return nil, err
	}
	if err := w.deployMarkets(); err != nil {
		return nil, err
	}
	for _, p := range cfg.Pauses {
		m, _ := cfg.MarketBySymbol(p.Market)
		action, err := venus.ParseAction(strings.TrimSpace(p.Action))
		if err != nil {
			return nil, fmt.Errorf("sandbox: %w", err)
		}
		w.comptroller.SetActionPaused(common.HexToAddress(m.Address), action, true)
	}
	w.pauses.Set(adapter.ModuleName, cfg.Adapter.Paused)

	if w.genesis {
		if err := w.fund(); err != nil {
			return nil, err
		}
	}
	if err := w.Commit(); err != nil {
		return nil, err
	}
	w.ledger.TrimEvents()

	w.adapter, err = adapter.New(adapter.Config{
		Address:      common.HexToAddress(cfg.Adapter.Address),
		Comptroller:  w.comptroller.Address(),
		NativeMarket: w.nativeMarket,
	}, ledger, w.comptroller, w, adapter.WithLogger(logger), adapter.WithPauses(w.pauses))
	if err != nil {
		return nil, err
	}
	w.logger.Info("sandbox ready",
		"genesis", w.genesis,
		"block", ledger.BlockNumber(),
		"markets", len(w.markets),
		"tokens", len(w.tokens))
	return w, nil
}

func (w *World) deployTokens() error {
	for _, t := range w.cfg.Tokens {
		meta := token.Metadata{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
		}
		info := &TokenInfo{Symbol: t.Symbol, Address: meta.Address, Decimals: t.Decimals, Behaviour: strings.ToLower(t.Behaviour)}
		if info.Behaviour == "no-return" {
			info.contract = token.NewNoReturn(w.ledger, meta)
		} else {
			behaviour, err := token.ParseBehaviour(t.Behaviour)
			if err != nil {
				return fmt.Errorf("sandbox: token %s: %w", t.Symbol, err)
			}
			info.contract = token.NewBEP20(w.ledger, meta, behaviour)
		}
		w.tokens = append(w.tokens, info)
		w.tokensByAddr[info.Address] = info
	}
	return nil
}

func (w *World) deployMarkets() error {
	for _, mc := range w.cfg.Markets {
		rate, err := w.cfg.ExchangeRate(mc)
		if err != nil {
			return err
		}
		reserveFactor, err := config.Mantissa(mc.ReserveFactor)
		if err != nil {
			return err
		}
		base, err := config.Mantissa(mc.BaseRatePerYear)
		if err != nil {
			return err
		}
		multiplier, err := config.Mantissa(mc.MultiplierPerYear)
		if err != nil {
			return err
		}
		var underlying any
		underlyingDecimals := uint8(18)
		if !mc.IsNative() {
			t, ok := w.cfg.TokenBySymbol(mc.Underlying)
			if !ok {
				return fmt.Errorf("sandbox: market %s: unknown underlying %s", mc.Symbol, mc.Underlying)
			}
			underlying = w.tokensByAddr[common.HexToAddress(t.Address)].contract
			underlyingDecimals = t.Decimals
		}
		market, err := venus.NewMarket(w.ledger, venus.MarketConfig{
			Address:             common.HexToAddress(mc.Address),
			Symbol:              mc.Symbol,
			Decimals:            mc.Decimals,
			Underlying:          underlying,
			InitialExchangeRate: rate,
			ReserveFactor:       reserveFactor,
			Model:               venus.NewInterestModel(base, multiplier),
		})
		if err != nil {
			return fmt.Errorf("sandbox: market %s: %w", mc.Symbol, err)
		}
		cf, err := config.Mantissa(mc.CollateralFactor)
		if err != nil {
			return err
		}
		if err := w.comptroller.SupportMarket(market, cf); err != nil {
			return fmt.Errorf("sandbox: list %s: %w", mc.Symbol, err)
		}
		price, err := config.PriceMantissa(mc.PriceUSD, underlyingDecimals)
		if err != nil {
			return err
		}
		if err := w.comptroller.SetUnderlyingPrice(market.Address(), price); err != nil {
			return err
		}
		w.markets[market.Address()] = market
	}
	return nil
}

type minter interface {
	Mint(to common.Address, amount *uint256.Int)
}

func (w *World) fund() error {
	for _, acct := range w.cfg.Accounts {
		addr := common.HexToAddress(acct.Address)
		if acct.Native != "" {
			amount, err := config.ParseUnits(acct.Native, 18)
			if err != nil {
				return fmt.Errorf("sandbox: fund %s: %w", acct.Label, err)
			}
			w.ledger.AddNative(addr, amount)
		}
		for symbol, raw := range acct.Tokens {
			t, ok := w.cfg.TokenBySymbol(symbol)
			if !ok {
				return fmt.Errorf("sandbox: fund %s: unknown token %s", acct.Label, symbol)
			}
			amount, err := config.ParseUnits(raw, t.Decimals)
			if err != nil {
				return fmt.Errorf("sandbox: fund %s: %w", acct.Label, err)
			}
			info := w.tokensByAddr[common.HexToAddress(t.Address)]
			m, ok := info.contract.(minter)
			if !ok {
				return fmt.Errorf("sandbox: token %s cannot mint", symbol)
			}
			m.Mint(addr, amount)
		}
		w.logger.Info("funded account", "label", acct.Label, "caller", addr.Hex())
	}
	return nil
}

// Commit persists the ledger and drops the in-memory event log.
func (w *World) Commit() error {
	start := time.Now()
	if err := w.ledger.Commit(w.db); err != nil {
		return err
	}
	w.ledger.TrimEvents()
	if w.onCommit != nil {
		w.onCommit(w.ledger.BlockNumber(), time.Since(start))
	}
	return nil
}

// OnCommit registers a hook called after every successful commit.
func (w *World) OnCommit(fn func(height uint64, took time.Duration)) {
	w.onCommit = fn
}

// Apply runs fn and commits its effects. If fn or the commit fails the
// ledger is rolled back to where it was before fn.
func (w *World) Apply(fn func() error) error {
	snapshot := w.ledger.Snapshot()
	if err := fn(); err != nil {
		w.ledger.RevertToSnapshot(snapshot)
		return err
	}
	if err := w.Commit(); err != nil {
		w.ledger.RevertToSnapshot(snapshot)
		return fmt.Errorf("sandbox: commit: %w", err)
	}
	return nil
}

// Close releases the adapter cache and the database.
func (w *World) Close() error {
	if w.adapter != nil {
		w.adapter.Close()
	}
	return w.db.Close()
}

func (w *World) Adapter() *adapter.Adapter       { return w.adapter }
func (w *World) Ledger() *state.Ledger           { return w.ledger }
func (w *World) Comptroller() *venus.Comptroller { return w.comptroller }
func (w *World) Pauses() *nativecommon.PauseSet  { return w.pauses }
func (w *World) Config() *config.Config          { return w.cfg }
func (w *World) Genesis() bool                   { return w.genesis }
func (w *World) NativeMarket() common.Address    { return w.nativeMarket }
func (w *World) Tokens() []*TokenInfo            { return w.tokens }
func (w *World) Token(addr common.Address) (*TokenInfo, bool) {
	t, ok := w.tokensByAddr[addr]
	return t, ok
}

// Market implements adapter.Directory.
func (w *World) Market(addr common.Address) (adapter.Market, bool) {
	m, ok := w.markets[addr]
	if !ok {
		return nil, false
	}
	return m, true
}

// Asset implements adapter.Directory.
func (w *World) Asset(addr common.Address) (adapter.Asset, bool) {
	t, ok := w.tokensByAddr[addr]
	if !ok {
		return nil, false
	}
	return t.contract, true
}

// VenusMarket returns the concrete market at addr.
func (w *World) VenusMarket(addr common.Address) (*venus.Market, error) {
	m, ok := w.markets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", adapter.ErrUnknownMarket, addr.Hex())
	}
	return m, nil
}

// ResolveMarket accepts a market address or symbol.
func (w *World) ResolveMarket(ref string) (common.Address, error) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	if m, ok := w.cfg.MarketBySymbol(ref); ok {
		return common.HexToAddress(m.Address), nil
	}
	return common.Address{}, fmt.Errorf("%w: %q", adapter.ErrUnknownMarket, ref)
}

// UnderlyingDecimals returns the decimals of the asset a market lends.
func (w *World) UnderlyingDecimals(market common.Address) uint8 {
	m, ok := w.markets[market]
	if !ok || m.IsNative() {
		return 18
	}
	if t, ok := w.tokensByAddr[m.Underlying()]; ok {
		return t.Decimals
	}
	return 18
}

// ResolveContract accepts an address or a token or market symbol.
func (w *World) ResolveContract(ref string) (common.Address, error) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	if t, ok := w.cfg.TokenBySymbol(ref); ok {
		return common.HexToAddress(t.Address), nil
	}
	if m, ok := w.cfg.MarketBySymbol(ref); ok {
		return common.HexToAddress(m.Address), nil
	}
	return common.Address{}, fmt.Errorf("%w: %q", ErrUnknownContract, ref)
}
