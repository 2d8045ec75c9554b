package storage

import (
	"context"

	"fraud-trade-lab/internal/domain"
)

// TradeStore provides access to trades storage. Trades are append-only.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByAccount retrieves all trades of an account, ordered by (execution_timestamp, trade_id) ASC.
	GetByAccount(ctx context.Context, accountID string) ([]*domain.Trade, error)

	// GetByScenario retrieves all trades tagged with scenario_id, ordered by (execution_timestamp, trade_id) ASC.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.Trade, error)

	TradeLister
}

// TradeLister reads a complete trade stream.
type TradeLister interface {
	// GetAll retrieves every trade, ordered by (execution_timestamp, trade_id) ASC.
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// HoldingStore provides access to holdings storage.
// Holdings are derived data: each run replaces the whole set.
type HoldingStore interface {
	// ReplaceAll atomically swaps the stored holdings for the given set.
	// Returns ErrDuplicateKey if the set contains a holding_id twice.
	ReplaceAll(ctx context.Context, holdings []*domain.Holding) error

	// GetByAccount retrieves an account's holdings, ordered by symbol ASC.
	GetByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error)

	// GetAll retrieves every holding, ordered by (account_id, symbol) ASC.
	GetAll(ctx context.Context) ([]*domain.Holding, error)
}

// RunWriter stores one complete run in a single transaction: trades are
// appended and the holdings set is replaced. Either both land or neither does.
// Backends without transactions do not implement it.
type RunWriter interface {
	WriteRun(ctx context.Context, trades []*domain.Trade, holdings []*domain.Holding) error
}
