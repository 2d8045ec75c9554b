package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fraud-trade-lab/internal/holdings"
	"fraud-trade-lab/internal/logging"
	"fraud-trade-lab/internal/sink"
	"fraud-trade-lab/internal/storage"
)

// Reaggregate recomputes holdings from every trade in src and writes only the
// holdings to out. It is the regeneration path for runs whose trades were kept
// but whose holdings were lost or are suspected stale.
func Reaggregate(ctx context.Context, src storage.TradeLister, agg *holdings.Aggregator, out sink.Sink, logger logrus.FieldLogger) (holdings.Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	res, err := agg.AggregateStore(ctx, src)
	if err != nil {
		return holdings.Result{}, fmt.Errorf("reaggregate: %w", err)
	}
	for _, line := range holdings.FaultSummaries(res.Faults) {
		logger.WithField("phase", phaseAggregate).Warn("integrity fault: " + line)
	}

	if err := out.WriteHoldings(ctx, res.Holdings); err != nil {
		return holdings.Result{}, fmt.Errorf("reaggregate: write holdings: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"phase":    phaseAggregate,
		"trades":   res.TradesSeen,
		"holdings": len(res.Holdings),
		"faults":   len(res.Faults),
	}).Info("holdings recomputed")
	return res, nil
}
