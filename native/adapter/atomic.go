package adapter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	nativecommon "venusadapter/native/common"
)

// execution is the state of one in-flight operation.
type execution struct {
	ctx     context.Context
	adapter *Adapter
	call    Call
	receipt *Receipt

	watched []Asset
	before  map[common.Address]*uint256.Int
}

// watch records the adapter's balance of asset the first time it is seen.
func (x *execution) watch(asset Asset) {
	addr := asset.Address()
	if _, ok := x.before[addr]; ok {
		return
	}
	x.before[addr] = asset.BalanceOf(x.adapter.cfg.Address)
	x.watched = append(x.watched, asset)
}

func (x *execution) resolve(market common.Address) (*resolvedMarket, error) {
	m, err := x.adapter.registry.resolve(x.ctx, market)
	if err != nil {
		return nil, err
	}
	x.watch(m.market)
	x.watch(m.underlying)
	return m, nil
}

// execute runs body as a single unit of work: attached value is taken into
// custody, body runs, unspent value is refunded and the adapter's balances
// are checked against their values before the call. Any failure reverts the
// ledger to the snapshot taken on entry.
func (a *Adapter) execute(ctx context.Context, op string, call Call, payable bool, body func(*execution) error) (receipt *Receipt, err error) {
	if a == nil {
		return nil, fmt.Errorf("%w: adapter not configured", ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(a.pauses, ModuleName); err != nil {
		return nil, err
	}
	value := call.value()
	if !payable && !value.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedValue, op)
	}

	snapshot := a.ledger.Snapshot()
	mark := a.ledger.EventCount()
	defer func() {
		if err != nil {
			a.ledger.RevertToSnapshot(snapshot)
			receipt = nil
			a.logger.Warn("adapter operation reverted",
				"op", op,
				"caller", call.Caller.Hex(),
				"value", value.Dec(),
				"error", err)
		}
	}()

	x := &execution{
		ctx:     ctx,
		adapter: a,
		call:    call,
		receipt: &Receipt{
			Operation: op,
			Caller:    call.Caller,
			Value:     new(uint256.Int).Set(value),
			Block:     a.ledger.BlockNumber(),
			Refunded:  new(uint256.Int),
		},
		before: make(map[common.Address]*uint256.Int),
	}
	x.watch(a.gateway)
	if err := a.gateway.wrap(call.Caller, value); err != nil {
		return nil, err
	}

	if err := body(x); err != nil {
		return nil, err
	}

	// Whatever attached value the body did not spend goes back to the caller.
	held := a.gateway.BalanceOf(a.cfg.Address)
	if held.Gt(x.before[NativeAsset]) {
		surplus := new(uint256.Int).Sub(held, x.before[NativeAsset])
		if err := a.gateway.unwrap(call.Caller, surplus); err != nil {
			return nil, err
		}
		a.ledger.Emit(events.AdapterRefunded{Account: call.Caller, Asset: "BNB", Amount: surplus})
		x.receipt.Refunded = surplus
	}

	for _, asset := range x.watched {
		after := asset.BalanceOf(a.cfg.Address)
		if !after.Eq(x.before[asset.Address()]) {
			return nil, fmt.Errorf("%w: %s holds %s, had %s", ErrResidualBalance, asset.Address().Hex(), after.Dec(), x.before[asset.Address()].Dec())
		}
	}

	x.receipt.Events = a.ledger.EventsSince(mark)
	a.logger.Debug("adapter operation applied",
		"op", op,
		"caller", call.Caller.Hex(),
		"legs", len(x.receipt.Legs),
		"refunded", x.receipt.Refunded.Dec())
	return x.receipt, nil
}
