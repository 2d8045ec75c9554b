package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// duplicateCheckChunk bounds the IN list of the pre-insert duplicate check.
const duplicateCheckChunk = 1000

// TradeStore implements storage.TradeStore using ClickHouse.
type TradeStore struct {
	conn *Conn
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(conn *Conn) *TradeStore {
	return &TradeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const selectTradeColumns = `
	SELECT
		trade_id, account_id, symbol, trade_type, order_type, order_status,
		quantity, execution_price, trade_cost, execution_timestamp,
		scenario_id, scenario_type, scenario_phase, scenario_symbol,
		wash_ring_id, pump_scheme_id, counterpart_account, coordination_pattern,
		announcement_time
	FROM trades
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	return s.InsertBulk(ctx, []*domain.Trade{t})
}

// InsertBulk adds multiple trades in one block. Fails entire batch on any duplicate.
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(trades))
	ids := make([]string, 0, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.TradeID]; exists {
			return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
		}
		seen[t.TradeID] = struct{}{}
		ids = append(ids, t.TradeID)
	}

	for start := 0; start < len(ids); start += duplicateCheckChunk {
		end := min(start+duplicateCheckChunk, len(ids))
		exists, err := s.conn.exists(ctx, `SELECT count() FROM trades WHERE trade_id IN ?`, ids[start:end])
		if err != nil {
			return fmt.Errorf("check existing trades: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trades`)
	if err != nil {
		return fmt.Errorf("prepare trade batch: %w", err)
	}

	for _, t := range trades {
		var price *decimal.Decimal
		if t.ExecutionPrice.Valid {
			p := t.ExecutionPrice.Decimal
			price = &p
		}
		err := batch.Append(
			t.TradeID, t.AccountID, t.Symbol, string(t.TradeType), string(t.OrderType), string(t.OrderStatus),
			t.Quantity, price, t.TradeCost, t.ExecutionTimestamp,
			t.ScenarioID, t.ScenarioType, t.ScenarioPhase, t.ScenarioSymbol,
			t.WashRingID, t.PumpSchemeID, t.CounterpartAccount, t.CoordinationPattern,
			t.AnnouncementTime,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append trade %s: %w", t.TradeID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trade batch: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	trades, err := s.query(ctx, "get trade by id", selectTradeColumns+` WHERE trade_id = ? LIMIT 1`, tradeID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[0], nil
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
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrades(rows driver.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		var (
			t                                 domain.Trade
			tradeType, orderType, orderStatus string
			price                             *decimal.Decimal
			announcement                      *time.Time
		)

		err := rows.Scan(
			&t.TradeID, &t.AccountID, &t.Symbol, &tradeType, &orderType, &orderStatus,
			&t.Quantity, &price, &t.TradeCost, &t.ExecutionTimestamp,
			&t.ScenarioID, &t.ScenarioType, &t.ScenarioPhase, &t.ScenarioSymbol,
			&t.WashRingID, &t.PumpSchemeID, &t.CounterpartAccount, &t.CoordinationPattern,
			&announcement,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		t.TradeType = domain.TradeType(tradeType)
		t.OrderType = domain.OrderType(orderType)
		t.OrderStatus = domain.OrderStatus(orderStatus)
		t.ExecutionTimestamp = t.ExecutionTimestamp.UTC()
		if price != nil {
			t.ExecutionPrice = decimal.NewNullDecimal(*price)
		}
		if announcement != nil {
			at := announcement.UTC()
			t.AnnouncementTime = &at
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
