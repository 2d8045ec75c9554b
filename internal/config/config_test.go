package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{SinkJSONL}, cfg.Output.Sinks)
	assert.Equal(t, 0.07, cfg.Trading.CancellationRate)
	assert.Len(t, cfg.Trading.Profiles, 6)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := writeFile(t, `
seed: 7
workers: 2
input:
  demo_accounts: 50
output:
  sinks: [jsonl, sqlite]
  dir: /tmp/tradegen
  sqlite_path: /tmp/tradegen/trades.db
logging:
  level: debug
  format: json
pricing:
  spread_pct: 0.004
  large_order_threshold: 500
  slippage_min: 0.001
  slippage_max: 0.002
  min_price: 0.01
trading:
  cancellation_rate: 0.05
  profiles:
    VeryHigh: {min_trades: 10, max_trades: 20, volume_multiplier: 2.5}
scenarios:
  insider:
    - symbol: AAPL
      announcement_time: 2025-07-15T13:30:00Z
      sentiment: negative
      profit_delay: {min: 2h, max: 3h}
  wash:
    - symbol: MSFT
      start: 2025-07-01T14:00:00Z
      relationship: same_state
  pump_and_dump:
    - symbol: GME
      start: 2025-07-20T13:30:00Z
      coordination: tight
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 50, cfg.Input.DemoAccounts)
	assert.Equal(t, []string{SinkJSONL, SinkSQLite}, cfg.Output.Sinks)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0.004, cfg.Pricing.SpreadPct)
	assert.Equal(t, 0.05, cfg.Trading.CancellationRate)

	// Partial profile override keeps the other defaults
	assert.Equal(t, 20, cfg.Trading.Profiles[domain.RiskVeryHigh].MaxTrades)
	assert.Equal(t, 150, cfg.Trading.Profiles[domain.RiskHigh].MaxTrades)

	require.Len(t, cfg.Scenarios.Insider, 1)
	assert.Equal(t, "negative", cfg.Scenarios.Insider[0].Sentiment)
	assert.Equal(t, 2*time.Hour, cfg.Scenarios.Insider[0].ProfitDelay.Min)
	assert.Equal(t, time.Date(2025, 7, 15, 13, 30, 0, 0, time.UTC), cfg.Scenarios.Insider[0].AnnouncementTime)
	assert.Equal(t, 3, cfg.Scenarios.Count())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "seed: 7\n")

	t.Setenv("TRADEGEN_SEED", "99")
	t.Setenv("TRADEGEN_OUTPUT_SINKS", "jsonl,kafka")
	t.Setenv("TRADEGEN_OUTPUT_KAFKA_BROKERS", "localhost:9092,localhost:9093")
	t.Setenv("TRADEGEN_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, []string{SinkJSONL, SinkKafka}, cfg.Output.Sinks)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.Output.KafkaBrokers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "out", cfg.Output.Dir, "unset variables keep file/default values")
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "sede: 7\n"},
		{"bad sink", "output: {sinks: [s3]}\n"},
		{"no sinks", "output: {sinks: []}\n"},
		{"duplicate sink", "output: {sinks: [jsonl, jsonl]}\n"},
		{"postgres without dsn", "output: {sinks: [postgres]}\n"},
		{"kafka without brokers", "output: {sinks: [kafka]}\n"},
		{"bad log level", "logging: {level: loud}\n"},
		{"inverted window", "trading: {window_start: 2025-09-01T00:00:00Z, window_end: 2025-06-01T00:00:00Z}\n"},
		{"cancellation rate", "trading: {cancellation_rate: 1.5}\n"},
		{"slippage inverted", "pricing: {spread_pct: 0.005, large_order_threshold: 1000, slippage_min: 0.01, slippage_max: 0.001, min_price: 0.01}\n"},
		{"scenario without symbol", "scenarios: {wash: [{rounds: 10}]}\n"},
		{"bad coordination", "scenarios: {pump_and_dump: [{symbol: GME, coordination: chaotic}]}\n"},
		{"bad sentiment", "scenarios: {insider: [{symbol: AAPL, sentiment: sideways}]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ScenarioRateDefaults(t *testing.T) {
	path := writeFile(t, `
scenarios:
  wash:
    - {symbol: MSFT, start: 2025-07-01T14:00:00Z}
    - {symbol: MSFT, start: 2025-07-02T14:00:00Z, cancellation_rate: 0}
  pump_and_dump:
    - {symbol: GME, start: 2025-07-20T13:30:00Z}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.20, cfg.Scenarios.Wash[0].CancellationRate)
	assert.Equal(t, 0.10, cfg.Scenarios.Wash[0].ShortCoverRate)
	assert.Equal(t, 0.0, cfg.Scenarios.Wash[1].CancellationRate, "explicit zero is kept")
	assert.Equal(t, 0.05, cfg.Scenarios.PumpDump[0].CancellationRate)
}
