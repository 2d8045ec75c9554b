package reporting

import (
	"time"

	"fraud-trade-lab/internal/domain"
)

// RunReport summarizes one generation run.
type RunReport struct {
	// Metadata
	GeneratedAt time.Time
	Seed        uint64
	WindowStart time.Time
	WindowEnd   time.Time

	Summary TradeSummary

	// Scenarios (sorted by start, scenario_id)
	Scenarios []domain.ScenarioSummary

	// Run-level warnings, scenario warnings included
	Warnings []string

	// Integrity section
	FaultCount     int
	FaultSummary   []string // "reason: N trade(s) excluded"
	Faults         []domain.IntegrityFault
	MaxFaultsShown int
}

// TradeSummary contains counts over the generated output.
type TradeSummary struct {
	TotalTrades      int
	LegitimateTrades int
	ScenarioTrades   int
	ExecutedTrades   int
	CancelledTrades  int
	ExecutedVolume   int64
	Accounts         int // accounts with at least one trade
	Symbols          int // symbols with at least one trade
	Holdings         int
	LongPositions    int
	ShortPositions   int
	FlatPositions    int
	ByScenarioType   map[string]int
}
