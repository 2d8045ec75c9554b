package sqlite

import (
	"context"
	"fmt"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

var _ storage.RunWriter = (*TradeStore)(nil)

// WriteRun appends trades and replaces the holdings set in one transaction.
func (s *TradeStore) WriteRun(ctx context.Context, trades []*domain.Trade, holdings []*domain.Holding) error {
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
	if err := replaceHoldings(ctx, tx, holdings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}
