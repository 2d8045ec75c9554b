package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

var t0 = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func newTrade(id, account string, offset time.Duration) *domain.Trade {
	t := domain.NewExecutedTrade(id, account, "AAPL", domain.TradeBuy, domain.OrderMarket, 10,
		decimal.RequireFromString("190.5"), t0.Add(offset))
	return &t
}

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newTrade("trade1", "ACC-1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TradeCost.String() != "1905" {
		t.Errorf("TradeCost mismatch: got %s, want 1905", got.TradeCost)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := newTrade("trade1", "ACC-1", 0)
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, trade)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_NotFound(t *testing.T) {
	store := NewTradeStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTradeStore_InsertBulk(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.Trade{
		newTrade("t3", "ACC-1", 2*time.Minute),
		newTrade("t1", "ACC-1", 0),
		newTrade("t2", "ACC-2", time.Minute),
	}
	trades[2].ScenarioID = "scn-1"

	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 || all[0].TradeID != "t1" || all[2].TradeID != "t3" {
		t.Errorf("GetAll order wrong: %v", ids(all))
	}

	acc, _ := store.GetByAccount(ctx, "ACC-1")
	if len(acc) != 2 {
		t.Errorf("GetByAccount: got %d trades, want 2", len(acc))
	}

	scn, _ := store.GetByScenario(ctx, "scn-1")
	if len(scn) != 1 || scn[0].TradeID != "t2" {
		t.Errorf("GetByScenario: got %v", ids(scn))
	}
}

func TestTradeStore_InsertBulk_AtomicOnDuplicate(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newTrade("t2", "ACC-1", 0)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.Trade{newTrade("t1", "ACC-1", 0), newTrade("t2", "ACC-1", 0)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("t1 should not be inserted when batch fails")
	}
	var recErr *storage.RecordError
	if !errors.As(err, &recErr) || recErr.ID != "t2" || recErr.Kind != storage.RecordTrade {
		t.Errorf("Expected RecordError naming trade t2, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.Trade{newTrade("t9", "ACC-1", 0), newTrade("t9", "ACC-1", 0)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestTradeStore_InvalidInput(t *testing.T) {
	store := NewTradeStore()
	if err := store.Insert(context.Background(), &domain.Trade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestHoldingStore_ReplaceAll(t *testing.T) {
	store := NewHoldingStore()
	ctx := context.Background()

	first := []*domain.Holding{
		{HoldingID: "h2", AccountID: "ACC-2", Symbol: "AAPL", Quantity: 5},
		{HoldingID: "h1", AccountID: "ACC-1", Symbol: "MSFT", Quantity: -3},
		{HoldingID: "h0", AccountID: "ACC-1", Symbol: "AAPL", Quantity: 0},
	}
	if err := store.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 3 || all[0].HoldingID != "h0" || all[1].HoldingID != "h1" {
		t.Fatalf("unexpected order: %+v", all)
	}

	acc, _ := store.GetByAccount(ctx, "ACC-1")
	if len(acc) != 2 || acc[0].Symbol != "AAPL" {
		t.Errorf("GetByAccount: %+v", acc)
	}

	if err := store.ReplaceAll(ctx, []*domain.Holding{{HoldingID: "x", AccountID: "A", Symbol: "S"}, {HoldingID: "x", AccountID: "A", Symbol: "S"}}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	all, _ = store.GetAll(ctx)
	if len(all) != 3 {
		t.Errorf("failed replace must keep previous set, got %d", len(all))
	}

	if err := store.ReplaceAll(ctx, first[:1]); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	all, _ = store.GetAll(ctx)
	if len(all) != 1 {
		t.Errorf("ReplaceAll should drop old holdings, got %d", len(all))
	}
}

func ids(trades []*domain.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.TradeID
	}
	return out
}
