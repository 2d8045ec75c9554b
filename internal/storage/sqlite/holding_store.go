package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// HoldingStore implements storage.HoldingStore using SQLite.
type HoldingStore struct {
	db *DB
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(db *DB) *HoldingStore {
	return &HoldingStore{db: db}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

// ReplaceAll swaps the stored set inside one transaction.
func (s *HoldingStore) ReplaceAll(ctx context.Context, holdings []*domain.Holding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceHoldings(ctx, tx, holdings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// replaceHoldings clears the holdings table on tx and inserts the new set.
func replaceHoldings(ctx context.Context, tx *sql.Tx, holdings []*domain.Holding) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil {
		return fmt.Errorf("clear holdings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO holdings (holding_id, account_id, symbol, quantity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare holding insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range holdings {
		if h == nil || h.HoldingID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := stmt.ExecContext(ctx, h.HoldingID, h.AccountID, h.Symbol, h.Quantity); err != nil {
			if isDuplicateKeyError(err) {
				return storage.HoldingError(h.HoldingID, storage.ErrDuplicateKey)
			}
			return fmt.Errorf("insert holding %s: %w", h.HoldingID, err)
		}
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
	rows, err := s.db.QueryContext(ctx, query, args...)
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
