package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/observability"
	"fraud-trade-lab/internal/orchestrator"
	"fraud-trade-lab/internal/sink"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate trades, fraud scenarios and holdings",
	Long: `Generate runs the full pipeline from the configuration: legitimate trades for every
account, the configured fraud scenarios, holdings aggregation and verification, then
writes both streams to the configured sinks.

Nothing is written when any step before the write fails.

Examples:
  tradegen generate --config run.yaml
  tradegen generate --seed 7 --sinks jsonl,sqlite --out ./out`,
	RunE: runGenerate,
}

var (
	genSeed        uint64
	genWorkers     int
	genSinks       []string
	genOutDir      string
	genAccounts    string
	genInstruments string
	genMetricsAddr string
	genDryRun      bool
	genNoReport    bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0, "run seed (default from config)")
	generateCmd.Flags().IntVarP(&genWorkers, "workers", "w", 0, "concurrent account batches (default from config)")
	generateCmd.Flags().StringSliceVar(&genSinks, "sinks", nil, "output sinks: jsonl, memory, postgres, clickhouse, sqlite, kafka")
	generateCmd.Flags().StringVarP(&genOutDir, "out", "o", "", "output directory for JSONL and report files")
	generateCmd.Flags().StringVar(&genAccounts, "accounts", "", "account population file (.jsonl or .csv)")
	generateCmd.Flags().StringVar(&genInstruments, "instruments", "", "instrument catalog file (.jsonl or .csv)")
	generateCmd.Flags().StringVar(&genMetricsAddr, "metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "generate and verify without writing trades or holdings")
	generateCmd.Flags().BoolVar(&genNoReport, "no-report", false, "skip report.md and scenarios.csv")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = genSeed
	}
	if flags.Changed("workers") {
		cfg.Workers = genWorkers
	}
	if flags.Changed("sinks") {
		cfg.Output.Sinks = genSinks
	}
	if flags.Changed("out") {
		cfg.Output.Dir = genOutDir
	}
	if flags.Changed("accounts") {
		cfg.Input.Accounts = genAccounts
	}
	if flags.Changed("instruments") {
		cfg.Input.Instruments = genInstruments
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = genMetricsAddr
	}
	if genNoReport {
		cfg.Output.Report = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return execute(cmd.Context(), cfg, genDryRun)
}

// execute runs one orchestrated generation pass for c.
func execute(parent context.Context, c *config.Config, dryRun bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.WithField("seed", c.Seed)

	metrics := observability.NewMetrics("")
	if c.MetricsAddr != "" {
		stopMetrics := startMetricsServer(c.MetricsAddr, metrics, log)
		defer stopMetrics()
	}

	accounts, catalog, err := loadInputs(c.Input, c.Seed, log)
	if err != nil {
		return err
	}

	var out sink.Sink
	if !dryRun {
		if out, err = buildSink(ctx, c.Output, log); err != nil {
			return err
		}
		defer func() {
			if cerr := out.Close(); cerr != nil {
				log.WithError(cerr).Error("close sinks")
			}
		}()
	}

	reportDir := ""
	if c.Output.Report {
		reportDir = c.Output.Dir
	}

	result, err := orchestrator.New(orchestrator.Options{
		Accounts:  accounts,
		Catalog:   catalog,
		Seed:      c.Seed,
		Workers:   c.Workers,
		BatchSize: c.BatchSize,
		Pricing:   c.Pricing,
		Trading:   c.Trading,
		Scenarios: c.Scenarios,
		Sink:      out,
		ReportDir: reportDir,
		Logger:    log,
		Metrics:   metrics,
	}).Run(ctx)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"trades":     len(result.Trades),
		"legitimate": result.LegitimateTrades,
		"scenario":   result.ScenarioTrades,
		"holdings":   len(result.Holdings),
		"faults":     len(result.Faults),
		"warnings":   len(result.Warnings),
		"written":    result.Written,
	}).Info("generation finished")

	if reportDir != "" {
		fmt.Printf("Report: %s/%s\n", reportDir, orchestrator.ReportFile)
	}
	return nil
}
