// Package orchestrator runs a complete generation pass.
// Flow: validate → generate (legitimate ∥ scenarios) → aggregate → verify → write → report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/generation"
	"fraud-trade-lab/internal/holdings"
	"fraud-trade-lab/internal/logging"
	"fraud-trade-lab/internal/observability"
	"fraud-trade-lab/internal/pricing"
	"fraud-trade-lab/internal/reporting"
	"fraud-trade-lab/internal/scenario"
	"fraud-trade-lab/internal/sink"
)

// Report file names written to Options.ReportDir.
const (
	ReportFile      = "report.md"
	ScenarioCSVFile = "scenarios.csv"
)

// Run phases
const (
	phaseValidate  = "validate"
	phaseGenerate  = "generate"
	phaseAggregate = "aggregate"
	phaseVerify    = "verify"
	phaseWrite     = "write"
	phaseReport    = "report"
)

const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// Options for creating Orchestrator.
type Options struct {
	// Inputs (read-only for the duration of a run)
	Accounts []domain.Account
	Catalog  *domain.Catalog

	// Generation parameters
	Seed      uint64
	Workers   int
	BatchSize int
	Pricing   pricing.Config
	Trading   generation.Config
	Scenarios config.ScenariosConfig

	// Output. A nil Sink makes the run a dry run; an empty ReportDir skips report files.
	Sink      sink.Sink
	ReportDir string

	Logger  logrus.FieldLogger
	Metrics *observability.Metrics
	Now     func() time.Time // report clock
}

// Orchestrator coordinates one run.
type Orchestrator struct {
	opts   Options
	logger logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	var logger logrus.FieldLogger = logging.Discard()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	return &Orchestrator{opts: opts, logger: logger.WithField("component", "orchestrator")}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Trades    []domain.Trade   // sorted by (execution_timestamp, trade_id)
	Holdings  []domain.Holding // sorted by (account_id, symbol)
	Faults    []domain.IntegrityFault
	Scenarios []domain.ScenarioSummary
	Warnings  []string
	Report    *reporting.RunReport

	LegitimateTrades int
	ScenarioTrades   int
	Written          bool
}

// Run executes validate, generate, aggregate, verify, write and report.
// Nothing is written unless every earlier phase succeeded.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	var (
		legit  *generation.Generator
		env    scenario.Env
		gen    generated
		agg    holdings.Result
		aggr   *holdings.Aggregator
		result = &RunResult{}
		err    error
	)

	// Phase 1: Validate
	if err = o.phase(phaseValidate, func() error {
		legit, env, err = o.prepare()
		return err
	}); err != nil {
		return nil, fmt.Errorf("phase 1 (validate) failed: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"accounts":    len(o.opts.Accounts),
		"instruments": o.opts.Catalog.Len(),
		"scenarios":   o.opts.Scenarios.Count(),
		"seed":        o.opts.Seed,
	}).Info("inputs validated")

	// Phase 2: Generate
	if err = o.phase(phaseGenerate, func() error {
		gen, err = o.generate(ctx, legit, env)
		return err
	}); err != nil {
		return nil, fmt.Errorf("phase 2 (generate) failed: %w", err)
	}
	result.LegitimateTrades = gen.legitimate
	result.ScenarioTrades = len(gen.trades) - gen.legitimate
	result.Scenarios = gen.summaries
	result.Warnings = gen.warnings

	// Phase 3: Aggregate. Barrier: every generator has finished.
	_ = o.phase(phaseAggregate, func() error {
		aggr = holdings.NewAggregator(o.opts.Accounts, o.opts.Catalog)
		agg = aggr.Aggregate(gen.trades)
		return nil
	})
	o.recordAggregate(agg)

	// Phase 4: Verify
	if err = o.phase(phaseVerify, func() error {
		return aggr.Verify(gen.trades, agg.Holdings)
	}); err != nil {
		return nil, fmt.Errorf("phase 4 (verify) failed: %w", err)
	}

	domain.SortTrades(gen.trades)
	result.Trades = gen.trades
	result.Holdings = agg.Holdings
	result.Faults = agg.Faults

	now := o.opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	result.Report = reporting.NewBuilder().WithClock(now).Build(reporting.Input{
		Seed:        o.opts.Seed,
		WindowStart: o.opts.Trading.WindowStart,
		WindowEnd:   o.opts.Trading.WindowEnd,
		Trades:      gen.trades,
		Aggregate:   agg,
		Scenarios:   gen.summaries,
		Warnings:    gen.warnings,
	})

	// Phase 5: Write
	if o.opts.Sink != nil {
		if err = o.phase(phaseWrite, func() error {
			return o.write(ctx, result)
		}); err != nil {
			return nil, fmt.Errorf("phase 5 (write) failed: %w", err)
		}
		result.Written = true
	} else {
		o.logger.Info("no sink configured, skipping write")
	}

	// Phase 6: Report
	if o.opts.ReportDir != "" {
		if err = o.phase(phaseReport, func() error {
			return writeReport(o.opts.ReportDir, result)
		}); err != nil {
			return nil, fmt.Errorf("phase 6 (report) failed: %w", err)
		}
	}

	if o.opts.Metrics != nil {
		o.opts.Metrics.LastSuccessfulRun.SetToCurrentTime()
	}
	o.logger.WithFields(logrus.Fields{
		"trades":   len(result.Trades),
		"holdings": len(result.Holdings),
		"faults":   len(result.Faults),
		"warnings": len(result.Warnings),
	}).Info("run completed")

	return result, nil
}

// prepare checks inputs and builds the shared generator environment.
func (o *Orchestrator) prepare() (*generation.Generator, scenario.Env, error) {
	if err := validateInputs(o.opts.Accounts, o.opts.Catalog, o.opts.Scenarios); err != nil {
		return nil, scenario.Env{}, err
	}

	prices := pricing.NewGenerator(o.opts.Pricing)
	legit, err := generation.NewGenerator(o.opts.Trading, o.opts.Catalog, prices, o.opts.Seed)
	if err != nil {
		return nil, scenario.Env{}, err
	}

	accounts := o.opts.Accounts
	env := scenario.Env{
		Accounts: accounts,
		Catalog:  o.opts.Catalog,
		Prices:   prices,
		Seed:     o.opts.Seed,
		DailyVolume: func(symbol string) int64 {
			return legit.ExpectedDailyVolume(symbol, accounts)
		},
	}
	return legit, env, nil
}

// validateInputs reports fatal configuration problems before any generation.
func validateInputs(accounts []domain.Account, catalog *domain.Catalog, scenarios config.ScenariosConfig) error {
	if len(accounts) == 0 {
		return fmt.Errorf("%w: empty account population", domain.ErrConfiguration)
	}
	if catalog == nil || catalog.Len() == 0 {
		return fmt.Errorf("%w: empty instrument catalog", domain.ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(accounts))
	for i := range accounts {
		if err := accounts[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		if _, dup := seen[accounts[i].AccountID]; dup {
			return fmt.Errorf("%w: duplicate account %s", domain.ErrConfiguration, accounts[i].AccountID)
		}
		seen[accounts[i].AccountID] = struct{}{}
	}

	ids := make(map[string]struct{}, scenarios.Count())
	checkSymbol := func(kind, symbol, scenarioID string) error {
		if !catalog.Has(symbol) {
			return fmt.Errorf("%w: %s scenario symbol %s not in catalog", domain.ErrConfiguration, kind, symbol)
		}
		if scenarioID == "" {
			return nil
		}
		if _, dup := ids[scenarioID]; dup {
			return fmt.Errorf("%w: duplicate scenario_id %s", domain.ErrConfiguration, scenarioID)
		}
		ids[scenarioID] = struct{}{}
		return nil
	}
	for _, p := range scenarios.Insider {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := checkSymbol(domain.ScenarioInsiderTrading, p.Symbol, p.ScenarioID); err != nil {
			return err
		}
	}
	for _, p := range scenarios.Wash {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := checkSymbol(domain.ScenarioWashTrading, p.Symbol, p.ScenarioID); err != nil {
			return err
		}
	}
	for _, p := range scenarios.PumpDump {
		if err := p.Validate(); err != nil {
			return err
		}
		if err := checkSymbol(domain.ScenarioPumpAndDump, p.Symbol, p.ScenarioID); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) write(ctx context.Context, result *RunResult) error {
	if err := sink.WriteRun(ctx, o.opts.Sink, result.Trades, result.Holdings); err != nil {
		return err
	}
	if m := o.opts.Metrics; m != nil {
		m.RecordsWritten.WithLabelValues("trade").Add(float64(len(result.Trades)))
		m.RecordsWritten.WithLabelValues("holding").Add(float64(len(result.Holdings)))
	}
	o.logger.WithFields(logrus.Fields{
		"trades":   len(result.Trades),
		"holdings": len(result.Holdings),
	}).Info("output written")
	return nil
}

func writeReport(dir string, result *RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	files := map[string]string{
		ReportFile:      reporting.RenderRunReport(result.Report),
		ScenarioCSVFile: reporting.RenderScenarioCSV(result.Report.Scenarios),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (o *Orchestrator) recordAggregate(agg holdings.Result) {
	for _, line := range holdings.FaultSummaries(agg.Faults) {
		o.logger.WithField("phase", phaseAggregate).Warn("integrity fault: " + line)
	}
	o.logger.WithFields(logrus.Fields{
		"phase":     phaseAggregate,
		"holdings":  len(agg.Holdings),
		"applied":   agg.TradesApplied,
		"cancelled": agg.TradesCancelled,
	}).Info("holdings aggregated")

	m := o.opts.Metrics
	if m == nil {
		return
	}
	m.HoldingsComputed.Add(float64(len(agg.Holdings)))
	for _, f := range agg.Faults {
		m.RecordFault(f.Reason)
	}
}

// phase times fn and records its outcome.
func (o *Orchestrator) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	status := statusOK
	if err != nil {
		status = statusFailed
		entry := o.logger.WithField("phase", name).WithError(err)
		if errors.Is(err, domain.ErrConfiguration) {
			entry.Error("configuration error")
		} else {
			entry.Error("phase failed")
		}
	} else {
		o.logger.WithFields(logrus.Fields{"phase": name, "elapsed": elapsed}).Debug("phase completed")
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.RecordPhase(name, status, elapsed.Seconds())
	}
	return err
}
