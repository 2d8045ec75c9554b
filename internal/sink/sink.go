// Package sink writes the finished trade stream and holdings to their destinations.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"fraud-trade-lab/internal/domain"
)

// Sink receives the dataset of one run. Trades are written ordered by
// (execution_timestamp, trade_id), holdings by (account_id, symbol).
type Sink interface {
	WriteTrades(ctx context.Context, trades []domain.Trade) error
	WriteHoldings(ctx context.Context, holdings []domain.Holding) error
	Close() error
}

// RunSink is a Sink that can store a whole run in one call, so a failure
// leaves no partial output behind.
type RunSink interface {
	Sink
	WriteRun(ctx context.Context, trades []domain.Trade, holdings []domain.Holding) error
}

// WriteRun writes trades and then holdings to s. Sinks implementing RunSink
// take both in one atomic call; others get WriteTrades followed by WriteHoldings
// and may keep the trades when the holdings write fails.
func WriteRun(ctx context.Context, s Sink, trades []domain.Trade, holdings []domain.Holding) error {
	if rs, ok := s.(RunSink); ok {
		return rs.WriteRun(ctx, trades, holdings)
	}
	if err := s.WriteTrades(ctx, trades); err != nil {
		return fmt.Errorf("write trades: %w", err)
	}
	if err := s.WriteHoldings(ctx, holdings); err != nil {
		return fmt.Errorf("write holdings: %w", err)
	}
	return nil
}

// Multi fans every write out to several sinks in order, stopping at the first error.
// Each sink is an independent destination: sinks before the failing one keep what
// they wrote, and the error says how many completed.
type Multi []Sink

// WriteRun writes the run to every sink in order with WriteRun.
func (m Multi) WriteRun(ctx context.Context, trades []domain.Trade, holdings []domain.Holding) error {
	for i, s := range m {
		if err := WriteRun(ctx, s, trades, holdings); err != nil {
			return fmt.Errorf("sink %d of %d (%d complete): %w", i+1, len(m), i, err)
		}
	}
	return nil
}

// WriteTrades implements Sink.
func (m Multi) WriteTrades(ctx context.Context, trades []domain.Trade) error {
	for _, s := range m {
		if err := s.WriteTrades(ctx, trades); err != nil {
			return err
		}
	}
	return nil
}

// WriteHoldings implements Sink.
func (m Multi) WriteHoldings(ctx context.Context, holdings []domain.Holding) error {
	for _, s := range m {
		if err := s.WriteHoldings(ctx, holdings); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedTrades(trades []domain.Trade) []domain.Trade {
	out := append([]domain.Trade(nil), trades...)
	domain.SortTrades(out)
	return out
}

func sortedHoldings(holdings []domain.Holding) []domain.Holding {
	out := append([]domain.Holding(nil), holdings...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

var (
	_ RunSink = Multi(nil)
	_ RunSink = (*StoreSink)(nil)
	_ Sink    = (*JSONLSink)(nil)
	_ Sink    = (*KafkaSink)(nil)
)
