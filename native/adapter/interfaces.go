package adapter

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"venusadapter/core/events"
	"venusadapter/core/types"
	"venusadapter/native/venus"
)

// Ledger is the host state the adapter executes against.
type Ledger interface {
	Snapshot() int
	RevertToSnapshot(revid int)
	BlockNumber() uint64
	NativeBalance(addr common.Address) *uint256.Int
	TransferNative(from, to common.Address, amount *uint256.Int) error
	Emit(evt events.Event)
	EventCount() int
	EventsSince(mark int) []*types.Event
}

// Asset is anything with balances: an underlying token, a market token or
// the native gateway. Transfer capabilities are discovered at call time.
type Asset interface {
	Address() common.Address
	BalanceOf(account common.Address) *uint256.Int
}

// Comptroller enumerates listed markets.
type Comptroller interface {
	Address() common.Address
	GetAllMarkets(ctx context.Context) ([]common.Address, error)
}

// Market is a market token contract.
type Market interface {
	Asset
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(caller, to common.Address, amount *uint256.Int) (bool, error)
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) (bool, error)
	IsNative() bool
	Underlying() common.Address
	Mint(caller common.Address, amount *uint256.Int) (venus.Code, error)
	Redeem(caller common.Address, tokens *uint256.Int) (venus.Code, error)
	RepayBorrowBehalf(caller, borrower common.Address, amount *uint256.Int) (venus.Code, error)
	BorrowBalanceCurrent(ctx context.Context, account common.Address) (*uint256.Int, error)
}

// Directory resolves contract addresses to callable contracts.
type Directory interface {
	Market(addr common.Address) (Market, bool)
	Asset(addr common.Address) (Asset, bool)
}
