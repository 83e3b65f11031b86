package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/native/token"
	"venusadapter/native/venus"
)

var (
	// ErrRejected reports a soft failure code from a market or comptroller.
	ErrRejected = errors.New("sandbox: rejected")
	// ErrUnknownContract is returned for addresses that are neither a token
	// nor a market.
	ErrUnknownContract = errors.New("sandbox: unknown contract")
)

// atomically runs fn inside a ledger snapshot, reverting on error.
func (w *World) atomically(fn func() error) (err error) {
	snapshot := w.ledger.Snapshot()
	defer func() {
		if err != nil {
			w.ledger.RevertToSnapshot(snapshot)
		}
	}()
	return fn()
}

// Approve sets caller's allowance for spender on a token or market contract.
func (w *World) Approve(caller, contract, spender common.Address, amount *uint256.Int) error {
	return w.atomically(func() error {
		var (
			ok  = true
			err error
		)
		if info, found := w.tokensByAddr[contract]; found {
			switch t := info.contract.(type) {
			case token.Standard:
				ok, err = t.Approve(caller, spender, amount)
			case token.NonStandard:
				err = t.Approve(caller, spender, amount)
			default:
				return fmt.Errorf("%w: %s cannot approve", ErrUnknownContract, contract.Hex())
			}
		} else if m, found := w.markets[contract]; found {
			ok, err = m.Approve(caller, spender, amount)
		} else {
			return fmt.Errorf("%w: %s", ErrUnknownContract, contract.Hex())
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: approve on %s returned false", ErrRejected, contract.Hex())
		}
		return nil
	})
}

// EnterMarkets adds markets to caller's collateral set.
func (w *World) EnterMarkets(caller common.Address, markets []common.Address) error {
	return w.atomically(func() error {
		codes, err := w.comptroller.EnterMarkets(caller, markets)
		if err != nil {
			return err
		}
		for i, code := range codes {
			if code != venus.ComptrollerNoError {
				return fmt.Errorf("%w: enter %s: comptroller code %d", ErrRejected, markets[i].Hex(), uint64(code))
			}
		}
		return nil
	})
}

// Borrow borrows amount of a market's underlying for caller.
func (w *World) Borrow(caller, market common.Address, amount *uint256.Int) error {
	m, err := w.VenusMarket(market)
	if err != nil {
		return err
	}
	return w.atomically(func() error {
		code, err := m.Borrow(caller, amount)
		if err != nil {
			return err
		}
		if code != venus.NoError {
			return fmt.Errorf("%w: borrow on %s: %s", ErrRejected, market.Hex(), code)
		}
		return nil
	})
}

// Mine advances the block height, letting interest accrue.
func (w *World) Mine(blocks uint64) uint64 {
	w.ledger.AdvanceBlocks(blocks)
	// Markets accrue on the new height so views report current totals.
	for _, m := range w.markets {
		m.AccrueInterest()
	}
	return w.ledger.BlockNumber()
}

// MarketView is a read-only snapshot of one listed market.
type MarketView struct {
	Address            common.Address `json:"address"`
	Symbol             string         `json:"symbol"`
	Decimals           uint8          `json:"decimals"`
	Native             bool           `json:"native"`
	Underlying         common.Address `json:"underlying"`
	UnderlyingSymbol   string         `json:"underlyingSymbol"`
	UnderlyingDecimals uint8          `json:"underlyingDecimals"`
	ExchangeRate       *uint256.Int   `json:"exchangeRate"`
	TotalSupply        *uint256.Int   `json:"totalSupply"`
	TotalBorrows       *uint256.Int   `json:"totalBorrows"`
	TotalReserves      *uint256.Int   `json:"totalReserves"`
	Cash               *uint256.Int   `json:"cash"`
	PausedActions      []string       `json:"pausedActions,omitempty"`
}

// Markets lists every market the adapter reports, in listing order.
func (w *World) Markets(ctx context.Context) ([]MarketView, error) {
	addrs, err := w.adapter.GetAllReservesTokens(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MarketView, 0, len(addrs))
	for _, addr := range addrs {
		m, ok := w.markets[addr]
		if !ok {
			continue
		}
		view := MarketView{
			Address:            addr,
			Symbol:             m.Symbol(),
			Decimals:           m.Decimals(),
			Native:             m.IsNative(),
			Underlying:         m.Underlying(),
			UnderlyingSymbol:   w.cfg.Adapter.NativeSymbol,
			UnderlyingDecimals: w.UnderlyingDecimals(addr),
			ExchangeRate:       m.ExchangeRateStored(),
			TotalSupply:        m.TotalSupply(),
			TotalBorrows:       m.TotalBorrows(),
			TotalReserves:      m.TotalReserves(),
			Cash:               m.GetCash(),
		}
		if t, ok := w.tokensByAddr[m.Underlying()]; ok && !m.IsNative() {
			view.UnderlyingSymbol = t.Symbol
		}
		for a := venus.ActionMint; a <= venus.ActionEnterMarket; a++ {
			if w.comptroller.ActionPaused(addr, a) {
				view.PausedActions = append(view.PausedActions, a.String())
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// TokenBalance is an account's balance of one underlying token.
type TokenBalance struct {
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
	Balance *uint256.Int   `json:"balance"`
}

// Position is an account's standing in one market.
type Position struct {
	Market     common.Address `json:"market"`
	Symbol     string         `json:"symbol"`
	VTokens    *uint256.Int   `json:"vTokens"`
	Underlying *uint256.Int   `json:"underlying"`
	Borrow     *uint256.Int   `json:"borrow"`
	Entered    bool           `json:"entered"`
}

// AccountView summarises an account across the sandbox.
type AccountView struct {
	Address   common.Address `json:"address"`
	Block     uint64         `json:"block"`
	Native    *uint256.Int   `json:"native"`
	Tokens    []TokenBalance `json:"tokens"`
	Positions []Position     `json:"positions"`
	Liquidity *uint256.Int   `json:"liquidity"`
	Shortfall *uint256.Int   `json:"shortfall"`
}

// Account reports balances, positions and liquidity for addr. Borrow balances
// are as of the last accrual.
func (w *World) Account(addr common.Address) AccountView {
	view := AccountView{
		Address: addr,
		Block:   w.ledger.BlockNumber(),
		Native:  w.ledger.NativeBalance(addr),
	}
	for _, t := range w.tokens {
		view.Tokens = append(view.Tokens, TokenBalance{Symbol: t.Symbol, Address: t.Address, Balance: t.contract.BalanceOf(addr)})
	}
	for _, mc := range w.cfg.Markets {
		m := w.markets[common.HexToAddress(mc.Address)]
		if m == nil {
			continue
		}
		view.Positions = append(view.Positions, Position{
			Market:     m.Address(),
			Symbol:     m.Symbol(),
			VTokens:    m.BalanceOf(addr),
			Underlying: m.BalanceOfUnderlying(addr),
			Borrow:     m.BorrowBalanceStored(addr),
			Entered:    w.comptroller.CheckMembership(addr, m.Address()),
		})
	}
	_, liquidity, shortfall := w.comptroller.GetAccountLiquidity(addr)
	view.Liquidity = liquidity
	view.Shortfall = shortfall
	return view
}
