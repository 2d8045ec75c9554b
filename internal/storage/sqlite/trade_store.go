package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using SQLite.
type TradeStore struct {
	db *DB
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
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
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectTradeColumns = `
	SELECT
		trade_id, account_id, symbol, trade_type, order_type, order_status,
		quantity, execution_price, trade_cost, execution_timestamp,
		scenario_id, scenario_type, scenario_phase, scenario_symbol,
		wash_ring_id, pump_scheme_id, counterpart_account, coordination_pattern,
		announcement_time
	FROM trades
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTrade(ctx context.Context, db execer, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	var price, announcement sql.NullString
	if t.ExecutionPrice.Valid {
		price = sql.NullString{String: t.ExecutionPrice.Decimal.String(), Valid: true}
	}
	if t.AnnouncementTime != nil {
		announcement = sql.NullString{String: formatTime(*t.AnnouncementTime), Valid: true}
	}

	_, err := db.ExecContext(ctx, insertTradeQuery,
		t.TradeID, t.AccountID, t.Symbol, string(t.TradeType), string(t.OrderType), string(t.OrderStatus),
		t.Quantity, price, t.TradeCost.String(), formatTime(t.ExecutionTimestamp),
		t.ScenarioID, t.ScenarioType, t.ScenarioPhase, t.ScenarioSymbol,
		t.WashRingID, t.PumpSchemeID, t.CounterpartAccount, t.CoordinationPattern,
		announcement,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
		}
		return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
	}
	return nil
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	return insertTrade(ctx, s.db, t)
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range trades {
		if err := insertTrade(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	row := s.db.QueryRowContext(ctx, selectTradeColumns+` WHERE trade_id = ?`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByAccount retrieves all trades of an account in stream order.
func (s *TradeStore) GetByAccount(ctx context.Context, accountID string) ([]*domain.Trade, error) {
	return s.query(ctx, "get trades by account",
		selectTradeColumns+` WHERE account_id = ? ORDER BY execution_timestamp ASC, trade_id ASC`, accountID)
}

// GetByScenario retrieves all trades of a scenario in stream order.
func (s *TradeStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.Trade, error) {
	return s.query(ctx, "get trades by scenario",
		selectTradeColumns+` WHERE scenario_id = ? ORDER BY execution_timestamp ASC, trade_id ASC`, scenarioID)
}

// GetAll retrieves every trade in stream order.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	return s.query(ctx, "get all trades",
		selectTradeColumns+` ORDER BY execution_timestamp ASC, trade_id ASC`)
}

func (s *TradeStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(row scanner) (*domain.Trade, error) {
	var (
		t                                 domain.Trade
		tradeType, orderType, orderStatus string
		price, announcement               sql.NullString
		cost, executed                    string
	)

	err := row.Scan(
		&t.TradeID, &t.AccountID, &t.Symbol, &tradeType, &orderType, &orderStatus,
		&t.Quantity, &price, &cost, &executed,
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

	if t.ExecutionTimestamp, err = parseTime(executed); err != nil {
		return nil, fmt.Errorf("parse execution_timestamp: %w", err)
	}
	if t.TradeCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parse trade_cost: %w", err)
	}
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, fmt.Errorf("parse execution_price: %w", err)
		}
		t.ExecutionPrice = decimal.NewNullDecimal(d)
	}
	if announcement.Valid {
		at, err := parseTime(announcement.String)
		if err != nil {
			return nil, fmt.Errorf("parse announcement_time: %w", err)
		}
		t.AnnouncementTime = &at
	}

	return &t, nil
}
