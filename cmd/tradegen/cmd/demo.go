package cmd

import (
	"github.com/spf13/cobra"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/fixtures"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a self-contained demo with one scenario of each kind",
	Long: `Demo generates trades for the built-in demo population and catalog and embeds one
insider trading run (NVDA), one wash trading ring (TSLA) and one pump-and-dump scheme
(GME) inside the trading window. Output goes to JSONL files plus the run report.

Examples:
  tradegen demo
  tradegen demo --accounts 2000 --out ./demo-out`,
	RunE: runDemo,
}

var (
	demoAccounts int
	demoOutDir   string
	demoSeed     uint64
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVarP(&demoAccounts, "accounts", "n", 500, "demo population size")
	demoCmd.Flags().StringVarP(&demoOutDir, "out", "o", "demo-out", "output directory")
	demoCmd.Flags().Uint64Var(&demoSeed, "seed", 42, "run seed")
}

func runDemo(cmd *cobra.Command, args []string) error {
	demo := *cfg
	demo.Seed = demoSeed
	demo.Input = config.InputConfig{DemoAccounts: demoAccounts}
	demo.Output.Sinks = []string{config.SinkJSONL}
	demo.Output.Dir = demoOutDir
	demo.Output.Report = true
	demo.Scenarios = fixtures.Scenarios(demo.Trading.WindowStart, demo.Trading.WindowEnd)

	if err := demo.Validate(); err != nil {
		return err
	}
	return execute(cmd.Context(), &demo, false)
}
