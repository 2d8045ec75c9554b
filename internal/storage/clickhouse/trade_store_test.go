package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(conn)

	trade := createTestTrade("t1", "ACC-1", 0)
	trade.ScenarioID = "scn-1"
	trade.ScenarioType = domain.ScenarioWashTrading
	trade.WashRingID = "RING-ABCD1234"
	trade.CounterpartAccount = "ACC-2"
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "ACC-2", got.CounterpartAccount)
	assert.True(t, got.ExecutionPrice.Valid)
	assert.True(t, trade.ExecutionPrice.Decimal.Equal(got.ExecutionPrice.Decimal))
	assert.True(t, trade.TradeCost.Equal(got.TradeCost))
	assert.True(t, trade.ExecutionTimestamp.Equal(got.ExecutionTimestamp))
	assert.Nil(t, got.AnnouncementTime)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(conn)

	require.NoError(t, store.Insert(ctx, createTestTrade("t1", "ACC-1", 0)))
	assert.ErrorIs(t, store.Insert(ctx, createTestTrade("t1", "ACC-1", 0)), storage.ErrDuplicateKey)

	err := store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t2", "ACC-1", 0),
		createTestTrade("t2", "ACC-1", 0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTradeStore_Queries(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(conn)

	c := domain.NewCancelledTrade("t0", "ACC-2", "AAPL", domain.TradeBuy, domain.OrderLimit, 5, testTime.Add(-time.Hour))
	c.ScenarioID = "scn-7"
	trades := []*domain.Trade{
		createTestTrade("t2", "ACC-1", time.Minute),
		createTestTrade("t1", "ACC-1", 0),
		&c,
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t0", "t1", "t2"}, []string{all[0].TradeID, all[1].TradeID, all[2].TradeID})
	assert.False(t, all[0].ExecutionPrice.Valid)

	acc, err := store.GetByAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Len(t, acc, 2)

	scn, err := store.GetByScenario(ctx, "scn-7")
	require.NoError(t, err)
	require.Len(t, scn, 1)
	assert.Equal(t, "t0", scn[0].TradeID)
}

func TestHoldingStore_ReplaceAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHoldingStore(conn)

	require.NoError(t, store.ReplaceAll(ctx, []*domain.Holding{
		{HoldingID: "h2", AccountID: "ACC-2", Symbol: "AAPL", Quantity: 3},
		{HoldingID: "h1", AccountID: "ACC-1", Symbol: "AAPL", Quantity: -7},
	}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "h1", all[0].HoldingID)

	require.NoError(t, store.ReplaceAll(ctx, []*domain.Holding{
		{HoldingID: "h3", AccountID: "ACC-3", Symbol: "MSFT", Quantity: 0},
	}))
	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "h3", all[0].HoldingID)

	acc, err := store.GetByAccount(ctx, "ACC-3")
	require.NoError(t, err)
	assert.Len(t, acc, 1)
}
