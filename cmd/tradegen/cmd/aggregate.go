package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/holdings"
	"fraud-trade-lab/internal/input"
	"fraud-trade-lab/internal/orchestrator"
	"fraud-trade-lab/internal/storage"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute holdings from previously generated trades",
	Long: `Aggregate rebuilds the holdings stream from stored trades and writes it to the
configured sinks. Trades are read from a trades.jsonl file (--trades) or from a
database backend (--from postgres|clickhouse|sqlite).

Membership checks against the account population and catalog run only when
--accounts or --instruments is given.

Examples:
  tradegen aggregate --trades out/trades.jsonl --sinks jsonl --out out
  tradegen aggregate --from postgres --sinks postgres`,
	RunE: runAggregate,
}

var (
	aggTradesPath  string
	aggFrom        string
	aggSinks       []string
	aggOutDir      string
	aggAccounts    string
	aggInstruments string
)

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggTradesPath, "trades", "", "trades.jsonl to read")
	aggregateCmd.Flags().StringVar(&aggFrom, "from", "", "database backend to read trades from (postgres, clickhouse, sqlite)")
	aggregateCmd.Flags().StringSliceVar(&aggSinks, "sinks", nil, "output sinks for holdings (default from config)")
	aggregateCmd.Flags().StringVarP(&aggOutDir, "out", "o", "", "output directory for JSONL")
	aggregateCmd.Flags().StringVar(&aggAccounts, "accounts", "", "account population file for membership checks")
	aggregateCmd.Flags().StringVar(&aggInstruments, "instruments", "", "instrument catalog file for membership checks")
	aggregateCmd.MarkFlagsMutuallyExclusive("trades", "from")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	if (aggTradesPath == "") == (aggFrom == "") {
		return fmt.Errorf("%w: exactly one of --trades or --from is required", domain.ErrConfiguration)
	}
	if cmd.Flags().Changed("sinks") {
		cfg.Output.Sinks = aggSinks
	}
	if cmd.Flags().Changed("out") {
		cfg.Output.Dir = aggOutDir
	}
	cfg.Output.Report = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, closeSrc, err := openTradeSource(ctx, cfg.Output)
	if err != nil {
		return err
	}
	defer func() { _ = closeSrc() }()

	var accounts []domain.Account
	if aggAccounts != "" {
		if accounts, err = input.LoadAccounts(aggAccounts); err != nil {
			return err
		}
	}
	var catalog *domain.Catalog
	if aggInstruments != "" {
		if catalog, err = input.LoadInstruments(aggInstruments); err != nil {
			return err
		}
	}

	out, err := buildSink(ctx, cfg.Output, logger)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	res, err := orchestrator.Reaggregate(ctx, src, holdings.NewAggregator(accounts, catalog), out, logger)
	if err != nil {
		return err
	}
	for _, line := range holdings.FaultSummaries(res.Faults) {
		fmt.Println(line)
	}
	fmt.Printf("%d trades, %d holdings, %d faults\n", res.TradesSeen, len(res.Holdings), len(res.Faults))
	return nil
}

// openTradeSource returns the trade stream holdings are recomputed from.
func openTradeSource(ctx context.Context, out config.OutputConfig) (storage.TradeLister, func() error, error) {
	if aggTradesPath != "" {
		trades, err := input.LoadTrades(aggTradesPath)
		if err != nil {
			return nil, nil, err
		}
		return tradeFile(trades), func() error { return nil }, nil
	}

	trades, _, closer, err := openStores(ctx, aggFrom, out)
	if err != nil {
		return nil, nil, err
	}
	return trades, closer, nil
}

// tradeFile serves trades loaded from a file. Unlike a store it keeps duplicate
// trade ids, which the aggregator reports as integrity faults.
type tradeFile []domain.Trade

func (f tradeFile) GetAll(context.Context) ([]*domain.Trade, error) {
	out := make([]*domain.Trade, len(f))
	for i := range f {
		out[i] = &f[i]
	}
	return out, nil
}
