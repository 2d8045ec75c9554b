package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// HoldingStore implements storage.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *Pool
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(pool *Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

var holdingColumns = []string{"holding_id", "account_id", "symbol", "quantity"}

// ReplaceAll swaps the stored set inside one transaction using COPY.
func (s *HoldingStore) ReplaceAll(ctx context.Context, holdings []*domain.Holding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := replaceHoldings(ctx, tx, holdings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// replaceHoldings clears the holdings table on tx and copies the new set in.
func replaceHoldings(ctx context.Context, tx pgx.Tx, holdings []*domain.Holding) error {
	seen := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		if h == nil || h.HoldingID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[h.HoldingID]; dup {
			return storage.HoldingError(h.HoldingID, storage.ErrDuplicateKey)
		}
		seen[h.HoldingID] = struct{}{}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM holdings`); err != nil {
		return fmt.Errorf("clear holdings: %w", err)
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"holdings"}, holdingColumns,
		pgx.CopyFromSlice(len(holdings), func(i int) ([]any, error) {
			h := holdings[i]
			return []any{h.HoldingID, h.AccountID, h.Symbol, h.Quantity}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy holdings: %w", err)
	}
	return nil
}

// GetByAccount retrieves an account's holdings ordered by symbol.
func (s *HoldingStore) GetByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error) {
	return s.query(ctx, "get holdings by account", `
		SELECT holding_id, account_id, symbol, quantity
		FROM holdings
		WHERE account_id = $1
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
	rows, err := s.pool.Query(ctx, query, args...)
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
