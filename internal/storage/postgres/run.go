package postgres

import (
	"context"
	"fmt"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

var _ storage.RunWriter = (*TradeStore)(nil)

// WriteRun appends trades and replaces the holdings set in one transaction.
func (s *TradeStore) WriteRun(ctx context.Context, trades []*domain.Trade, holdings []*domain.Holding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(trades) > 0 {
		if err := insertTrades(ctx, tx, trades); err != nil {
			return err
		}
	}
	if err := replaceHoldings(ctx, tx, holdings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}
