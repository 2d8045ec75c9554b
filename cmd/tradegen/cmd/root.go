// Package cmd implements the tradegen command line.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fraud-trade-lab/internal/config"
	"fraud-trade-lab/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "tradegen",
	Short: "Synthetic trade and fraud-pattern generator",
	Long: `Tradegen produces a synthetic brokerage trade history for an account population,
embeds labelled fraud scenarios (insider trading, wash trading, pump-and-dump) and
derives the holdings implied by the trades.

Configuration is read from a YAML file (--config) and TRADEGEN_* environment
variables. Flags override both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return loadConfig(cmd)
	},
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logrus.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
}

func loadConfig(cmd *cobra.Command) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		loaded.Logging.Format = logFormat
	}

	l, err := logging.New(loaded.Logging)
	if err != nil {
		return err
	}
	cfg, logger = loaded, l
	return nil
}
