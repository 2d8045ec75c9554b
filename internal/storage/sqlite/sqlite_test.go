package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

var testTime = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestTrade(id, account string, offset time.Duration) *domain.Trade {
	t := domain.NewExecutedTrade(id, account, "MSFT", domain.TradeShort, domain.OrderStop, 40,
		decimal.RequireFromString("409.87"), testTime.Add(offset))
	return &t
}

func TestOpen_SchemaCreated(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','holdings')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["holdings"])
}

func TestTradeStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTradeStore(newTestDB(t))

	trade := createTestTrade("t1", "ACC-1", 0)
	at := testTime.Add(6 * time.Hour)
	trade.AnnouncementTime = &at
	trade.ScenarioID = "scn-1"
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TradeShort, got.TradeType)
	assert.Equal(t, domain.OrderStop, got.OrderType)
	assert.True(t, trade.TradeCost.Equal(got.TradeCost))
	assert.True(t, trade.ExecutionPrice.Decimal.Equal(got.ExecutionPrice.Decimal))
	assert.True(t, trade.ExecutionTimestamp.Equal(got.ExecutionTimestamp))
	require.NotNil(t, got.AnnouncementTime)
	assert.True(t, at.Equal(*got.AnnouncementTime))

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Insert(ctx, trade), storage.ErrDuplicateKey)
}

func TestTradeStore_InsertBulk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTradeStore(newTestDB(t))

	// Sub-second offsets check that text ordering matches time ordering.
	c := domain.NewCancelledTrade("t0", "ACC-2", "MSFT", domain.TradeBuy, domain.OrderLimit, 5, testTime.Add(500*time.Millisecond))
	c.ScenarioID = "scn-2"
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t2", "ACC-1", 10*time.Second),
		createTestTrade("t1", "ACC-1", 0),
		&c,
	}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t1", "t0", "t2"}, []string{all[0].TradeID, all[1].TradeID, all[2].TradeID})
	assert.False(t, all[1].ExecutionPrice.Valid)

	acc, err := store.GetByAccount(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Len(t, acc, 2)

	scn, err := store.GetByScenario(ctx, "scn-2")
	require.NoError(t, err)
	assert.Len(t, scn, 1)

	err = store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t9", "ACC-1", 0),
		createTestTrade("t1", "ACC-1", 0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	_, err = store.GetByID(ctx, "t9")
	assert.ErrorIs(t, err, storage.ErrNotFound, "batch must be rolled back")
}

func TestHoldingStore_ReplaceAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewHoldingStore(newTestDB(t))

	require.NoError(t, store.ReplaceAll(ctx, []*domain.Holding{
		{HoldingID: "h2", AccountID: "ACC-2", Symbol: "AAPL", Quantity: 3},
		{HoldingID: "h1", AccountID: "ACC-1", Symbol: "MSFT", Quantity: -40},
	}))

	err := store.ReplaceAll(ctx, []*domain.Holding{
		{HoldingID: "x", AccountID: "A", Symbol: "S"},
		{HoldingID: "x", AccountID: "A", Symbol: "S"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "failed replace must keep previous set")
	assert.Equal(t, "h1", all[0].HoldingID)
	assert.Equal(t, int64(-40), all[0].Quantity)

	acc, err := store.GetByAccount(ctx, "ACC-2")
	require.NoError(t, err)
	assert.Len(t, acc, 1)
}

func TestTradeStore_WriteRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	trades := NewTradeStore(db)
	holdings := NewHoldingStore(db)

	require.NoError(t, trades.WriteRun(ctx,
		[]*domain.Trade{createTestTrade("t1", "ACC-1", 0)},
		[]*domain.Holding{{HoldingID: "h1", AccountID: "ACC-1", Symbol: "MSFT", Quantity: -40}},
	))

	// t1 already exists, so neither the new trade nor the new holdings may land.
	err := trades.WriteRun(ctx,
		[]*domain.Trade{createTestTrade("t2", "ACC-2", time.Second), createTestTrade("t1", "ACC-1", 0)},
		[]*domain.Holding{{HoldingID: "h9", AccountID: "ACC-2", Symbol: "MSFT", Quantity: -40}},
	)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	var recErr *storage.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "t1", recErr.ID)

	_, err = trades.GetByID(ctx, "t2")
	assert.ErrorIs(t, err, storage.ErrNotFound, "run must be rolled back")

	hs, err := holdings.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "h1", hs[0].HoldingID)
}
