package clickhouse

import (
	"context"
	"fmt"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// HoldingStore implements storage.HoldingStore using ClickHouse.
type HoldingStore struct {
	conn *Conn
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(conn *Conn) *HoldingStore {
	return &HoldingStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

// ReplaceAll truncates the table and writes the new set in one block.
// Input is validated before the truncate; ClickHouse has no transaction to roll back.
func (s *HoldingStore) ReplaceAll(ctx context.Context, holdings []*domain.Holding) error {
	seen := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		if h == nil || h.HoldingID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[h.HoldingID]; exists {
			return storage.HoldingError(h.HoldingID, storage.ErrDuplicateKey)
		}
		seen[h.HoldingID] = struct{}{}
	}

	if err := s.conn.Exec(ctx, `TRUNCATE TABLE holdings`); err != nil {
		return fmt.Errorf("truncate holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO holdings (holding_id, account_id, symbol, quantity)`)
	if err != nil {
		return fmt.Errorf("prepare holding batch: %w", err)
	}
	for _, h := range holdings {
		if err := batch.Append(h.HoldingID, h.AccountID, h.Symbol, h.Quantity); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append holding %s: %w", h.HoldingID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send holding batch: %w", err)
	}
	return nil
}

// GetByAccount retrieves an account's holdings ordered by symbol.
func (s *HoldingStore) GetByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	return s.query(ctx, "get holdings by account", `
		SELECT holding_id, account_id, symbol, quantity
		FROM holdings
		WHERE account_id = ?
		ORDER BY symbol ASC
	`, accountID)
}

// GetAll retrieves every holding ordered by (account_id, symbol).
func (s *HoldingStore) GetAll(ctx context.Context) ([]*domain.Holding, error) {
	return s.query(ctx, "get all holdings", `
		SELECT holding_id, account_id, symbol, quantity
		FROM holdings
		ORDER BY account_id ASC, symbol ASC
	`)
}

func (s *HoldingStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Holding, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.HoldingID, &h.AccountID, &h.Symbol, &h.Quantity); err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		holdings = append(holdings, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}
	return holdings, nil
}
