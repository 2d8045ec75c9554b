package sink

import (
	"context"
	"fmt"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// DefaultStoreBatchSize bounds one InsertBulk call.
const DefaultStoreBatchSize = 5000

// StoreSink writes into any storage backend.
// WriteRun is atomic for the whole run when the trade store implements
// storage.RunWriter (postgres, sqlite). Otherwise, and for separate WriteTrades
// calls, each batch of trades is atomic on its own, so a failure can leave
// earlier batches stored (clickhouse has no transactions).
type StoreSink struct {
	trades    storage.TradeStore
	holdings  storage.HoldingStore
	batchSize int
	closer    func() error
}

// NewStoreSink creates a store-backed sink. closer may be nil; it releases the
// underlying connection on Close.
func NewStoreSink(trades storage.TradeStore, holdings storage.HoldingStore, batchSize int, closer func() error) *StoreSink {
	if batchSize <= 0 {
		batchSize = DefaultStoreBatchSize
	}
	return &StoreSink{trades: trades, holdings: holdings, batchSize: batchSize, closer: closer}
}

// WriteTrades inserts trades in stream order.
func (s *StoreSink) WriteTrades(ctx context.Context, trades []domain.Trade) error {
	sorted := sortedTrades(trades)

	for start := 0; start < len(sorted); start += s.batchSize {
		end := min(start+s.batchSize, len(sorted))

		batch := make([]*domain.Trade, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &sorted[i])
		}
		if err := s.trades.InsertBulk(ctx, batch); err != nil {
			return fmt.Errorf("store trades [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// WriteHoldings replaces the stored holdings.
func (s *StoreSink) WriteHoldings(ctx context.Context, holdings []domain.Holding) error {
	sorted := sortedHoldings(holdings)

	ptrs := make([]*domain.Holding, len(sorted))
	for i := range sorted {
		ptrs[i] = &sorted[i]
	}
	if err := s.holdings.ReplaceAll(ctx, ptrs); err != nil {
		return fmt.Errorf("store holdings: %w", err)
	}
	return nil
}

// WriteRun stores trades and holdings together, in one transaction when the
// backend supports it.
func (s *StoreSink) WriteRun(ctx context.Context, trades []domain.Trade, holdings []domain.Holding) error {
	rw, ok := s.trades.(storage.RunWriter)
	if !ok {
		if err := s.WriteTrades(ctx, trades); err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
		if err := s.WriteHoldings(ctx, holdings); err != nil {
			return fmt.Errorf("write holdings: %w", err)
		}
		return nil
	}

	sortedT := sortedTrades(trades)
	tptrs := make([]*domain.Trade, len(sortedT))
	for i := range sortedT {
		tptrs[i] = &sortedT[i]
	}
	sortedH := sortedHoldings(holdings)
	hptrs := make([]*domain.Holding, len(sortedH))
	for i := range sortedH {
		hptrs[i] = &sortedH[i]
	}
	if err := rw.WriteRun(ctx, tptrs, hptrs); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *StoreSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
