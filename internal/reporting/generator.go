package reporting

import (
	"sort"
	"time"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/holdings"
)

// DefaultMaxFaultsShown caps the fault listing in rendered reports.
const DefaultMaxFaultsShown = 50

// Input is everything a run report is built from.
type Input struct {
	Seed        uint64
	WindowStart time.Time
	WindowEnd   time.Time
	Trades      []domain.Trade
	Aggregate   holdings.Result
	Scenarios   []domain.ScenarioSummary
	Warnings    []string
}

// Builder produces run reports.
type Builder struct {
	now            func() time.Time // Injectable clock for deterministic output
	maxFaultsShown int
}

// NewBuilder creates a new report builder.
func NewBuilder() *Builder {
	return &Builder{
		now:            func() time.Time { return time.Now().UTC() },
		maxFaultsShown: DefaultMaxFaultsShown,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMaxFaultsShown sets the fault listing cap. Zero hides the listing.
func (b *Builder) WithMaxFaultsShown(n int) *Builder {
	b.maxFaultsShown = n
	return b
}

// Build assembles a report.
func (b *Builder) Build(in Input) *RunReport {
	scenarios := make([]domain.ScenarioSummary, len(in.Scenarios))
	copy(scenarios, in.Scenarios)
	sort.SliceStable(scenarios, func(i, j int) bool {
		if !scenarios[i].Start.Equal(scenarios[j].Start) {
			return scenarios[i].Start.Before(scenarios[j].Start)
		}
		return scenarios[i].ScenarioID < scenarios[j].ScenarioID
	})

	return &RunReport{
		GeneratedAt:    b.now(),
		Seed:           in.Seed,
		WindowStart:    in.WindowStart,
		WindowEnd:      in.WindowEnd,
		Summary:        summarize(in.Trades, in.Aggregate.Holdings),
		Scenarios:      scenarios,
		Warnings:       append([]string(nil), in.Warnings...),
		FaultCount:     len(in.Aggregate.Faults),
		FaultSummary:   holdings.FaultSummaries(in.Aggregate.Faults),
		Faults:         in.Aggregate.Faults,
		MaxFaultsShown: b.maxFaultsShown,
	}
}

func summarize(trades []domain.Trade, positions []domain.Holding) TradeSummary {
	s := TradeSummary{
		TotalTrades:    len(trades),
		Holdings:       len(positions),
		ByScenarioType: make(map[string]int),
	}

	accounts := make(map[string]struct{})
	symbols := make(map[string]struct{})
	for i := range trades {
		t := &trades[i]
		accounts[t.AccountID] = struct{}{}
		symbols[t.Symbol] = struct{}{}

		if t.IsScenario() {
			s.ScenarioTrades++
			s.ByScenarioType[t.ScenarioType]++
		} else {
			s.LegitimateTrades++
		}
		if t.Executed() {
			s.ExecutedTrades++
			s.ExecutedVolume += t.Quantity
		} else {
			s.CancelledTrades++
		}
	}
	s.Accounts = len(accounts)
	s.Symbols = len(symbols)

	for _, h := range positions {
		switch {
		case h.Quantity > 0:
			s.LongPositions++
		case h.Quantity < 0:
			s.ShortPositions++
		default:
			s.FlatPositions++
		}
	}
	return s
}
