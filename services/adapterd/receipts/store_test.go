package receipts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"venusadapter/core/types"
	"venusadapter/native/adapter"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var caller = common.HexToAddress("0x00000000000000000000000000000000000A11CE")

func sampleReceipt() *adapter.Receipt {
	return &adapter.Receipt{
		Operation: adapter.OpRepayNative,
		Caller:    caller,
		Value:     uint256.NewInt(1_000),
		Block:     12,
		Refunded:  uint256.NewInt(40),
		Legs: []adapter.Leg{{
			Kind:          "repay",
			Market:        common.HexToAddress("0xA07c5b74C9B40447a954e1466938b865b6BBea36"),
			Underlying:    uint256.NewInt(960),
			RemainingDebt: new(uint256.Int),
		}},
		Events: []*types.Event{{Type: "adapter.repaid", Attributes: map[string]string{"amount": "960"}}},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, sampleReceipt())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	require.Equal(t, "1000", saved.Value)
	require.Equal(t, "40", saved.Refunded)
	require.Len(t, saved.Digest, 64)

	loaded, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, saved.Digest, loaded.Digest)
	require.Equal(t, caller.Hex(), loaded.Caller)

	receipt, err := loaded.Receipt()
	require.NoError(t, err)
	require.Equal(t, adapter.OpRepayNative, receipt.Operation)
	require.Equal(t, uint64(960), receipt.Legs[0].Underlying.Uint64())
	require.Equal(t, "960", receipt.Events[0].Attributes["amount"])
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDigestIsStableAndSensitive(t *testing.T) {
	events := sampleReceipt().Events
	a, err := Digest(events)
	require.NoError(t, err)
	b, err := Digest([]*types.Event{events[0].Clone()})
	require.NoError(t, err)
	require.Equal(t, a, b)

	changed := events[0].Clone()
	changed.Attributes["amount"] = "961"
	c, err := Digest([]*types.Event{changed})
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	empty, err := Digest(nil)
	require.NoError(t, err)
	require.Len(t, empty, 64)
}

func TestListByCallerNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		rec, err := store.Save(ctx, sampleReceipt())
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	other := sampleReceipt()
	other.Caller = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
	_, err := store.Save(ctx, other)
	require.NoError(t, err)

	list, err := store.ListByCaller(ctx, caller.Hex(), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, ids[1], list[1].ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	store, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
