// Package config loads run configuration from YAML with environment overrides.
//
// Precedence: built-in defaults, then the YAML file, then TRADEGEN_* variables.
// Generator tuning (pricing, trading, scenarios) is YAML-only; environment
// variables cover operational settings such as seed, sinks and logging.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/generation"
	"fraud-trade-lab/internal/pricing"
	"fraud-trade-lab/internal/scenario"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "TRADEGEN"

// Sink names.
const (
	SinkJSONL      = "jsonl"
	SinkMemory     = "memory"
	SinkPostgres   = "postgres"
	SinkClickhouse = "clickhouse"
	SinkSQLite     = "sqlite"
	SinkKafka      = "kafka"
)

// Config is the complete run configuration.
type Config struct {
	Seed        uint64 `yaml:"seed" envconfig:"SEED"`
	Workers     int    `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"gte=0"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`

	Input   InputConfig   `yaml:"input" envconfig:"INPUT"`
	Output  OutputConfig  `yaml:"output" envconfig:"OUTPUT"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`

	Pricing   pricing.Config    `yaml:"pricing" ignored:"true"`
	Trading   generation.Config `yaml:"trading" ignored:"true"`
	Scenarios ScenariosConfig   `yaml:"scenarios" ignored:"true"`
}

// InputConfig locates the account population and instrument catalog.
// Empty paths select the built-in demo fixtures.
type InputConfig struct {
	Accounts     string `yaml:"accounts" envconfig:"ACCOUNTS"`
	Instruments  string `yaml:"instruments" envconfig:"INSTRUMENTS"`
	DemoAccounts int    `yaml:"demo_accounts" envconfig:"DEMO_ACCOUNTS" validate:"gte=0"`
}

// OutputConfig selects and configures sinks.
type OutputConfig struct {
	Sinks  []string `yaml:"sinks" envconfig:"SINKS" validate:"min=1,dive,oneof=jsonl memory postgres clickhouse sqlite kafka"`
	Dir    string   `yaml:"dir" envconfig:"DIR"`
	Report bool     `yaml:"report" envconfig:"REPORT"` // report.md and scenarios.csv in Dir

	PostgresDSN    string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	PostgresConns  int32  `yaml:"postgres_max_conns" envconfig:"POSTGRES_MAX_CONNS" validate:"gte=0"`
	ClickhouseDSN  string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	SQLitePath     string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	StoreBatchSize int    `yaml:"store_batch_size" envconfig:"STORE_BATCH_SIZE" validate:"gte=0"`

	KafkaBrokers       []string `yaml:"kafka_brokers" envconfig:"KAFKA_BROKERS"`
	KafkaTradesTopic   string   `yaml:"kafka_trades_topic" envconfig:"KAFKA_TRADES_TOPIC"`
	KafkaHoldingsTopic string   `yaml:"kafka_holdings_topic" envconfig:"KAFKA_HOLDINGS_TOPIC"`
}

// LoggingConfig configures the logrus logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// ScenariosConfig lists the fraud scenarios of a run. Each entry is one scenario instance.
type ScenariosConfig struct {
	Insider  []scenario.InsiderParams  `yaml:"insider" validate:"dive"`
	Wash     []scenario.WashParams     `yaml:"wash" validate:"dive"`
	PumpDump []scenario.PumpDumpParams `yaml:"pump_and_dump" validate:"dive"`
}

// Count returns the number of configured scenario instances.
func (s ScenariosConfig) Count() int {
	return len(s.Insider) + len(s.Wash) + len(s.PumpDump)
}

// Default returns a configuration that runs on the demo fixtures and writes JSONL.
func Default() Config {
	return Config{
		Seed:      42,
		Workers:   4,
		BatchSize: 100,
		Input: InputConfig{
			DemoAccounts: 500,
		},
		Output: OutputConfig{
			Sinks:              []string{SinkJSONL},
			Dir:                "out",
			Report:             true,
			SQLitePath:         "out/trades.db",
			StoreBatchSize:     5000,
			KafkaTradesTopic:   "tradegen.trades",
			KafkaHoldingsTopic: "tradegen.holdings",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Pricing: pricing.DefaultConfig(),
		Trading: generation.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w: %w", path, domain.ErrConfiguration, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w: %w", domain.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeYAML overlays data onto cfg and rejects unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = validator.New()

// Validate runs struct tag validation followed by semantic checks.
// All failures wrap domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	if err := c.Trading.Validate(); err != nil {
		return err
	}

	for i, p := range c.Scenarios.Insider {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("scenarios.insider[%d]: %w", i, err)
		}
	}
	for i, p := range c.Scenarios.Wash {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("scenarios.wash[%d]: %w", i, err)
		}
	}
	for i, p := range c.Scenarios.PumpDump {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("scenarios.pump_and_dump[%d]: %w", i, err)
		}
	}

	return c.Output.validateSinks()
}

func (o OutputConfig) validateSinks() error {
	seen := make(map[string]bool, len(o.Sinks))
	for _, s := range o.Sinks {
		if seen[s] {
			return fmt.Errorf("%w: sink %s listed twice", domain.ErrConfiguration, s)
		}
		seen[s] = true

		var missing string
		switch s {
		case SinkJSONL:
			if o.Dir == "" {
				missing = "output.dir"
			}
		case SinkPostgres:
			if o.PostgresDSN == "" {
				missing = "output.postgres_dsn"
			}
		case SinkClickhouse:
			if o.ClickhouseDSN == "" {
				missing = "output.clickhouse_dsn"
			}
		case SinkSQLite:
			if o.SQLitePath == "" {
				missing = "output.sqlite_path"
			}
		case SinkKafka:
			if len(o.KafkaBrokers) == 0 {
				missing = "output.kafka_brokers"
			}
		}
		if missing != "" {
			return fmt.Errorf("%w: sink %s requires %s", domain.ErrConfiguration, s, missing)
		}
	}
	if o.Report && o.Dir == "" {
		return fmt.Errorf("%w: output.report requires output.dir", domain.ErrConfiguration)
	}
	return nil
}
