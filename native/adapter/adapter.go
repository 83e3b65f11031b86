package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	nativecommon "venusadapter/native/common"
)

// ModuleName is the pause key checked before every operation.
const ModuleName = "adapter"

// Config fixes the adapter's identity and collaborators. It is immutable
// after construction.
type Config struct {
	Address      common.Address
	Comptroller  common.Address
	NativeMarket common.Address
}

// Call is the caller and attached native value of one operation.
type Call struct {
	Caller common.Address
	Value  *uint256.Int
}

func (c Call) value() *uint256.Int {
	if c.Value == nil {
		return new(uint256.Int)
	}
	return c.Value
}

// Adapter supplies, withdraws and repays on Venus markets on behalf of its
// callers. It never keeps funds: every operation leaves the adapter's
// balances as it found them, and any failure reverts the ledger to the state
// before the call. Adapter is not safe for concurrent use; operations run
// one at a time against the ledger.
type Adapter struct {
	cfg       Config
	ledger    Ledger
	registry  *registry
	gateway   nativeGateway
	transfers transferHelper
	pauses    nativecommon.PauseView
	logger    *slog.Logger
}

// Option configures optional adapter dependencies.
type Option func(*Adapter)

// WithLogger overrides the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPauses wires the pause view consulted before every operation.
func WithPauses(p nativecommon.PauseView) Option {
	return func(a *Adapter) {
		a.pauses = p
	}
}

// New constructs an adapter. The comptroller must be the one named in cfg.
func New(cfg Config, ledger Ledger, comptroller Comptroller, directory Directory, opts ...Option) (*Adapter, error) {
	switch {
	case cfg.Address == (common.Address{}):
		return nil, fmt.Errorf("%w: adapter address required", ErrInvalidConfig)
	case cfg.Comptroller == (common.Address{}):
		return nil, fmt.Errorf("%w: comptroller address required", ErrInvalidConfig)
	case cfg.NativeMarket == (common.Address{}):
		return nil, fmt.Errorf("%w: native market address required", ErrInvalidConfig)
	case ledger == nil || comptroller == nil || directory == nil:
		return nil, fmt.Errorf("%w: ledger, comptroller and directory required", ErrInvalidConfig)
	case comptroller.Address() != cfg.Comptroller:
		return nil, fmt.Errorf("%w: comptroller %s does not match configured %s", ErrInvalidConfig, comptroller.Address().Hex(), cfg.Comptroller.Hex())
	}
	gateway := nativeGateway{ledger: ledger, self: cfg.Address}
	reg, err := newRegistry(comptroller, directory, gateway, cfg.NativeMarket)
	if err != nil {
		return nil, err
	}
	a := &Adapter{
		cfg:       cfg,
		ledger:    ledger,
		registry:  reg,
		gateway:   gateway,
		transfers: transferHelper{self: cfg.Address},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Close releases the market cache.
func (a *Adapter) Close() {
	if a == nil {
		return
	}
	a.registry.close()
}

func (a *Adapter) Address() common.Address      { return a.cfg.Address }
func (a *Adapter) Comptroller() common.Address  { return a.cfg.Comptroller }
func (a *Adapter) NativeMarket() common.Address { return a.cfg.NativeMarket }

// GetAllReservesTokens returns the markets listed by the comptroller, in order.
func (a *Adapter) GetAllReservesTokens(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.registry.markets(ctx)
}

// Supply deposits the caller's underlying into market and forwards the
// minted market tokens to the caller. Full supplies the caller's whole
// underlying balance.
func (a *Adapter) Supply(ctx context.Context, call Call, market common.Address, amount Amount) (*Receipt, error) {
	return a.execute(ctx, OpSupply, call, false, func(x *execution) error {
		m, err := x.resolve(market)
		if err != nil {
			return err
		}
		if m.native {
			return ErrNativeMarketRequiresValue
		}
		value, err := amount.resolve(func() (*uint256.Int, error) {
			return m.underlying.BalanceOf(call.Caller), nil
		})
		if err != nil {
			return err
		}
		if value.IsZero() {
			return fmt.Errorf("%w: supply amount is zero", ErrInvalidAmount)
		}
		return x.supply(m, value)
	})
}

// SupplyNative deposits the attached value into the native market.
func (a *Adapter) SupplyNative(ctx context.Context, call Call) (*Receipt, error) {
	if call.value().IsZero() {
		return nil, ErrZeroValue
	}
	return a.execute(ctx, OpSupplyNative, call, true, func(x *execution) error {
		m, err := x.resolve(a.cfg.NativeMarket)
		if err != nil {
			return err
		}
		return x.supply(m, call.value())
	})
}

// Withdraw redeems the caller's market tokens and forwards the underlying,
// as native currency for the native market. Full withdraws the caller's whole
// market token balance.
func (a *Adapter) Withdraw(ctx context.Context, call Call, market common.Address, amount Amount) (*Receipt, error) {
	return a.execute(ctx, OpWithdraw, call, false, func(x *execution) error {
		return x.withdraw(market, amount)
	})
}

// Repay settles the caller's debt in market. Repaying the native market
// takes the attached value, exactly as RepayNative.
func (a *Adapter) Repay(ctx context.Context, call Call, market common.Address, amount Amount) (*Receipt, error) {
	if market == a.cfg.NativeMarket {
		return a.execute(ctx, OpRepay, call, true, func(x *execution) error {
			return x.repay(market, amount)
		})
	}
	return a.execute(ctx, OpRepay, call, false, func(x *execution) error {
		return x.repay(market, amount)
	})
}

// RepayNative settles native market debt with the attached value and refunds
// whatever was not needed.
func (a *Adapter) RepayNative(ctx context.Context, call Call, amount Amount) (*Receipt, error) {
	return a.execute(ctx, OpRepayNative, call, true, func(x *execution) error {
		return x.repay(a.cfg.NativeMarket, amount)
	})
}

// RepayAndWithdraw repays then withdraws as one unit: if either half fails
// neither takes effect.
func (a *Adapter) RepayAndWithdraw(ctx context.Context, call Call, repayMarket common.Address, repayAmount Amount, withdrawMarket common.Address, withdrawAmount Amount) (*Receipt, error) {
	payable := repayMarket == a.cfg.NativeMarket
	return a.execute(ctx, OpRepayAndWithdraw, call, payable, func(x *execution) error {
		if err := x.repay(repayMarket, repayAmount); err != nil {
			return err
		}
		return x.withdraw(withdrawMarket, withdrawAmount)
	})
}

// --- operation bodies ---

func (x *execution) supply(m *resolvedMarket, value *uint256.Int) error {
	a := x.adapter
	caller := x.call.Caller
	if !m.native {
		if err := a.transfers.pull(m.underlying, caller, value); err != nil {
			return err
		}
		if err := a.transfers.approve(m.underlying, m.address, value); err != nil {
			return err
		}
	}
	before := m.market.BalanceOf(a.cfg.Address)
	code, err := m.market.Mint(a.cfg.Address, value)
	if err := checkMarket(OpSupply, m.address, code, err, ErrMarketRejected); err != nil {
		return err
	}
	minted := new(uint256.Int).Sub(m.market.BalanceOf(a.cfg.Address), before)
	if minted.IsZero() {
		return &MarketError{Op: x.receipt.Operation, Market: m.address, Err: ErrMarketRejected, Cause: errors.New("deposit minted no market tokens")}
	}
	if err := a.transfers.push(m.market, caller, minted); err != nil {
		return err
	}
	a.ledger.Emit(events.AdapterSupplied{Account: caller, Market: m.address, Amount: value, MarketTokens: minted})
	x.receipt.Legs = append(x.receipt.Legs, Leg{Kind: "supply", Market: m.address, Underlying: value, MarketTokens: minted})
	return nil
}

func (x *execution) withdraw(market common.Address, amount Amount) error {
	a := x.adapter
	caller := x.call.Caller
	m, err := x.resolve(market)
	if err != nil {
		return err
	}
	tokens, err := amount.resolve(func() (*uint256.Int, error) {
		return m.market.BalanceOf(caller), nil
	})
	if err != nil {
		return err
	}
	if tokens.IsZero() {
		return fmt.Errorf("%w: withdraw amount is zero", ErrInvalidAmount)
	}
	if err := a.transfers.pull(m.market, caller, tokens); err != nil {
		// A refused market token transfer is the comptroller refusing to
		// release collateral, which is a failed redemption.
		if !errors.Is(err, ErrInsufficientAllowance) {
			return &MarketError{Op: OpWithdraw, Market: m.address, Err: ErrRedemptionFailed, Cause: err}
		}
		return err
	}
	before := m.underlying.BalanceOf(a.cfg.Address)
	code, err := m.market.Redeem(a.cfg.Address, tokens)
	if err := checkMarket(OpWithdraw, m.address, code, err, ErrRedemptionFailed); err != nil {
		return err
	}
	received := new(uint256.Int).Sub(m.underlying.BalanceOf(a.cfg.Address), before)
	if m.native {
		err = a.gateway.unwrap(caller, received)
	} else {
		err = a.transfers.push(m.underlying, caller, received)
	}
	if err != nil {
		return err
	}
	a.ledger.Emit(events.AdapterWithdrawn{Account: caller, Market: m.address, MarketTokens: tokens, Amount: received})
	x.receipt.Legs = append(x.receipt.Legs, Leg{Kind: "withdraw", Market: m.address, Underlying: received, MarketTokens: tokens})
	return nil
}

func (x *execution) repay(market common.Address, amount Amount) error {
	a := x.adapter
	caller := x.call.Caller
	m, err := x.resolve(market)
	if err != nil {
		return err
	}
	if value, ok := amount.Value(); ok && value.IsZero() {
		return fmt.Errorf("%w: repay amount is zero", ErrInvalidAmount)
	}
	debt, err := m.market.BorrowBalanceCurrent(x.ctx, caller)
	if err != nil {
		return &MarketError{Op: OpRepay, Market: m.address, Err: ErrRepaymentFailed, Cause: err}
	}
	if debt.IsZero() {
		return ErrNoOutstandingDebt
	}
	resolved, err := amount.resolve(func() (*uint256.Int, error) {
		return new(uint256.Int).Set(debt), nil
	})
	if err != nil {
		return err
	}
	pay := new(uint256.Int).Set(resolved)
	if pay.Gt(debt) {
		pay.Set(debt)
	}

	if m.native {
		if x.call.value().Lt(resolved) {
			return fmt.Errorf("%w: attached %s, need %s", ErrInsufficientValue, x.call.value().Dec(), resolved.Dec())
		}
	} else {
		if err := a.transfers.pull(m.underlying, caller, resolved); err != nil {
			return err
		}
		if err := a.transfers.approve(m.underlying, m.address, pay); err != nil {
			return err
		}
	}

	code, err := m.market.RepayBorrowBehalf(a.cfg.Address, caller, pay)
	if err := checkMarket(OpRepay, m.address, code, err, ErrRepaymentFailed); err != nil {
		return err
	}

	// Native surplus is refunded once the whole operation is done.
	returned := new(uint256.Int)
	if !m.native {
		returned.Sub(resolved, pay)
		if err := a.transfers.push(m.underlying, caller, returned); err != nil {
			return err
		}
		if !returned.IsZero() {
			a.ledger.Emit(events.AdapterRefunded{Account: caller, Asset: m.underlying.Address().Hex(), Amount: returned})
		}
	}
	remaining, err := m.market.BorrowBalanceCurrent(x.ctx, caller)
	if err != nil {
		return &MarketError{Op: OpRepay, Market: m.address, Err: ErrRepaymentFailed, Cause: err}
	}
	a.ledger.Emit(events.AdapterRepaid{Account: caller, Market: m.address, Amount: pay, RemainingDebt: remaining})
	x.receipt.Legs = append(x.receipt.Legs, Leg{Kind: "repay", Market: m.address, Underlying: pay, RemainingDebt: remaining, Returned: returned})
	return nil
}
