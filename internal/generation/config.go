package generation

import (
	"fmt"
	"time"

	"fraud-trade-lab/internal/domain"
)

// ProfileConfig is the per-risk-profile volume model.
type ProfileConfig struct {
	MinTrades        int     `yaml:"min_trades" validate:"gte=0"`
	MaxTrades        int     `yaml:"max_trades" validate:"gte=0"`
	VolumeMultiplier float64 `yaml:"volume_multiplier" validate:"gt=0"`
}

// TradeTypeWeights are relative draw weights for trade direction.
type TradeTypeWeights struct {
	Buy   float64 `yaml:"buy" validate:"gte=0"`
	Sell  float64 `yaml:"sell" validate:"gte=0"`
	Short float64 `yaml:"short" validate:"gte=0"`
	Cover float64 `yaml:"cover" validate:"gte=0"`
}

// OrderTypeWeights are relative draw weights for order kind.
type OrderTypeWeights struct {
	Market float64 `yaml:"market" validate:"gte=0"`
	Limit  float64 `yaml:"limit" validate:"gte=0"`
	Stop   float64 `yaml:"stop" validate:"gte=0"`
}

// Config holds legitimate trade generation parameters.
type Config struct {
	WindowStart         time.Time                            `yaml:"window_start"`
	WindowEnd           time.Time                            `yaml:"window_end"`
	Profiles            map[domain.RiskProfile]ProfileConfig `yaml:"profiles"`
	TradeTypes          TradeTypeWeights                     `yaml:"trade_types"`
	OrderTypes          OrderTypeWeights                     `yaml:"order_types"`
	SectorWeights       map[string]float64                   `yaml:"sector_weights"` // empty = uniform symbols
	PositionFractionMin float64                              `yaml:"position_fraction_min" validate:"gt=0,lte=1"`
	PositionFractionMax float64                              `yaml:"position_fraction_max" validate:"gt=0,lte=1"`
	RoundLotRate        float64                              `yaml:"round_lot_rate" validate:"gte=0,lte=1"`
	CancellationRate    float64                              `yaml:"cancellation_rate" validate:"gte=0,lt=1"`
}

// DefaultConfig returns the default volume model over a three-month window.
func DefaultConfig() Config {
	return Config{
		WindowStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC),
		Profiles: map[domain.RiskProfile]ProfileConfig{
			domain.RiskConservative: {MinTrades: 5, MaxTrades: 15, VolumeMultiplier: 0.5},
			domain.RiskLow:          {MinTrades: 5, MaxTrades: 15, VolumeMultiplier: 0.7},
			domain.RiskMedium:       {MinTrades: 15, MaxTrades: 50, VolumeMultiplier: 1.0},
			domain.RiskGrowth:       {MinTrades: 50, MaxTrades: 150, VolumeMultiplier: 1.5},
			domain.RiskHigh:         {MinTrades: 50, MaxTrades: 150, VolumeMultiplier: 2.0},
			domain.RiskVeryHigh:     {MinTrades: 50, MaxTrades: 200, VolumeMultiplier: 3.0},
		},
		TradeTypes:          TradeTypeWeights{Buy: 0.55, Sell: 0.30, Short: 0.10, Cover: 0.05},
		OrderTypes:          OrderTypeWeights{Market: 0.70, Limit: 0.25, Stop: 0.05},
		PositionFractionMin: 0.002,
		PositionFractionMax: 0.02,
		RoundLotRate:        0.30,
		CancellationRate:    0.07,
	}
}

// Validate checks semantic constraints struct tags cannot express.
func (c Config) Validate() error {
	if !c.WindowStart.Before(c.WindowEnd) {
		return fmt.Errorf("%w: trade window start %s must precede end %s",
			domain.ErrConfiguration, c.WindowStart.Format(time.RFC3339), c.WindowEnd.Format(time.RFC3339))
	}
	for _, rp := range domain.RiskProfiles {
		p, ok := c.Profiles[rp]
		if !ok {
			return fmt.Errorf("%w: missing volume config for risk profile %s", domain.ErrConfiguration, rp)
		}
		if p.MinTrades < 0 || p.MinTrades > p.MaxTrades {
			return fmt.Errorf("%w: risk profile %s: invalid trade range %d..%d",
				domain.ErrConfiguration, rp, p.MinTrades, p.MaxTrades)
		}
		if p.VolumeMultiplier <= 0 {
			return fmt.Errorf("%w: risk profile %s: volume multiplier must be positive", domain.ErrConfiguration, rp)
		}
	}
	for rp := range c.Profiles {
		if !rp.Valid() {
			return fmt.Errorf("%w: unknown risk profile %q", domain.ErrConfiguration, rp)
		}
	}
	if c.TradeTypes.Buy+c.TradeTypes.Sell+c.TradeTypes.Short+c.TradeTypes.Cover <= 0 {
		return fmt.Errorf("%w: trade type weights sum to zero", domain.ErrConfiguration)
	}
	if c.OrderTypes.Market+c.OrderTypes.Limit+c.OrderTypes.Stop <= 0 {
		return fmt.Errorf("%w: order type weights sum to zero", domain.ErrConfiguration)
	}
	if c.PositionFractionMin <= 0 || c.PositionFractionMin > c.PositionFractionMax {
		return fmt.Errorf("%w: invalid position fraction range %g..%g",
			domain.ErrConfiguration, c.PositionFractionMin, c.PositionFractionMax)
	}
	for sector, w := range c.SectorWeights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for sector %q", domain.ErrConfiguration, sector)
		}
	}
	return nil
}
