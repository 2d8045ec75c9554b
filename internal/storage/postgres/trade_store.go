package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, account_id, symbol, trade_type, order_type, order_status,
		quantity, execution_price, trade_cost, execution_timestamp,
		scenario_id, scenario_type, scenario_phase, scenario_symbol,
		wash_ring_id, pump_scheme_id, counterpart_account, coordination_pattern,
		announcement_time
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8::numeric, $9::numeric, $10,
		$11, $12, $13, $14,
		$15, $16, $17, $18,
		$19
	)
`

const selectTradeColumns = `
	SELECT
		trade_id, account_id, symbol, trade_type, order_type, order_status,
		quantity, execution_price::text, trade_cost::text, execution_timestamp,
		scenario_id, scenario_type, scenario_phase, scenario_symbol,
		wash_ring_id, pump_scheme_id, counterpart_account, coordination_pattern,
		announcement_time
	FROM trades
`

func tradeArgs(t *domain.Trade) []any {
	var price *string
	if t.ExecutionPrice.Valid {
		s := t.ExecutionPrice.Decimal.String()
		price = &s
	}
	return []any{
		t.TradeID, t.AccountID, t.Symbol, string(t.TradeType), string(t.OrderType), string(t.OrderStatus),
		t.Quantity, price, t.TradeCost.String(), t.ExecutionTimestamp,
		t.ScenarioID, t.ScenarioType, t.ScenarioPhase, t.ScenarioSymbol,
		t.WashRingID, t.PumpSchemeID, t.CounterpartAccount, t.CoordinationPattern,
		t.AnnouncementTime,
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
		}
		if isCheckViolation(err) {
			return storage.TradeError(t.TradeID, storage.ErrInvalidInput)
		}
		return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTrades(ctx, tx, trades); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// insertTrades queues every trade in one batch on tx. The returned error names
// the trade that was rejected.
func insertTrades(ctx context.Context, tx pgx.Tx, trades []*domain.Trade) error {
	batch := &pgx.Batch{}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(insertTradeQuery, tradeArgs(t)...)
	}

	results := tx.SendBatch(ctx, batch)
	for _, t := range trades {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
			}
			if isCheckViolation(err) {
				return storage.TradeError(t.TradeID, storage.ErrInvalidInput)
			}
			return fmt.Errorf("insert trade %s in bulk: %w", t.TradeID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	row := s.pool.QueryRow(ctx, selectTradeColumns+` WHERE trade_id = $1`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByAccount retrieves all trades of an account in stream order.
func (s *TradeStore) GetByAccount(ctx context.Context, accountID string) ([]*domain.Trade, error) {
	return s.query(ctx, "get trades by account",
		selectTradeColumns+` WHERE account_id = $1 ORDER BY execution_timestamp ASC, trade_id ASC`, accountID)
}

// GetByScenario retrieves all trades of a scenario in stream order.
func (s *TradeStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.Trade, error) {
	return s.query(ctx, "get trades by scenario",
		selectTradeColumns+` WHERE scenario_id = $1 ORDER BY execution_timestamp ASC, trade_id ASC`, scenarioID)
}

// GetAll retrieves every trade in stream order.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	return s.query(ctx, "get all trades",
		selectTradeColumns+` ORDER BY execution_timestamp ASC, trade_id ASC`)
}

func (s *TradeStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t                    domain.Trade
		tradeType, orderType string
		orderStatus          string
		price                *string
		cost                 string
		announcement         *time.Time
	)

	err := row.Scan(
		&t.TradeID, &t.AccountID, &t.Symbol, &tradeType, &orderType, &orderStatus,
		&t.Quantity, &price, &cost, &t.ExecutionTimestamp,
		&t.ScenarioID, &t.ScenarioType, &t.ScenarioPhase, &t.ScenarioSymbol,
		&t.WashRingID, &t.PumpSchemeID, &t.CounterpartAccount, &t.CoordinationPattern,
		&announcement,
	)
	if err != nil {
		return nil, err
	}

	t.TradeType = domain.TradeType(tradeType)
	t.OrderType = domain.OrderType(orderType)
	t.OrderStatus = domain.OrderStatus(orderStatus)
	t.ExecutionTimestamp = t.ExecutionTimestamp.UTC()

	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("parse execution_price: %w", err)
		}
		t.ExecutionPrice = decimal.NewNullDecimal(d)
	}
	if t.TradeCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse trade_cost: %w", err)
	}
	if announcement != nil {
		at := announcement.UTC()
		t.AnnouncementTime = &at
	}

	return &t, nil
}
