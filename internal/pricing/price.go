// Package pricing computes execution prices from a baseline price.
package pricing

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
)

// Config holds spread and slippage parameters.
type Config struct {
	SpreadPct           float64 `yaml:"spread_pct" validate:"gte=0,lt=0.5"`             // half-spread around baseline
	LargeOrderThreshold int64   `yaml:"large_order_threshold" validate:"gte=0"`         // shares
	SlippageMin         float64 `yaml:"slippage_min" validate:"gte=0,ltefield=SlippageMax"`
	SlippageMax         float64 `yaml:"slippage_max" validate:"gte=0,lt=0.5"`
	MinPrice            float64 `yaml:"min_price" validate:"gt=0"`
}

// DefaultConfig returns the default price model.
func DefaultConfig() Config {
	return Config{
		SpreadPct:           0.005,
		LargeOrderThreshold: 1000,
		SlippageMin:         0.001,
		SlippageMax:         0.003,
		MinPrice:            0.01,
	}
}

// Generator produces execution prices. Stateless; safe for concurrent use
// as long as each caller supplies its own rng.
type Generator struct {
	cfg      Config
	minPrice decimal.Decimal
}

// NewGenerator creates a price generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg:      cfg,
		minPrice: decimal.NewFromFloat(cfg.MinPrice),
	}
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Price returns the execution price for a trade against baseline.
// Ask-side trades (buy, cover) pay above baseline, bid-side trades receive below.
// Orders above the large-order threshold add slippage against the trader;
// limit orders get a small improvement toward the trader.
func (g *Generator) Price(rng *rand.Rand, baseline decimal.Decimal, tt domain.TradeType, ot domain.OrderType, qty int64) decimal.Decimal {
	dir := -1.0
	if tt.IsAskSide() {
		dir = 1.0
	}

	factor := 1 + dir*g.cfg.SpreadPct

	if qty > g.cfg.LargeOrderThreshold {
		slip := uniform(rng, g.cfg.SlippageMin, g.cfg.SlippageMax)
		factor *= 1 + dir*slip
	}

	if ot == domain.OrderLimit {
		improvement := uniform(rng, 0, g.cfg.SpreadPct/4)
		factor *= 1 - dir*improvement
	}

	return g.Clamp(baseline.Mul(decimal.NewFromFloat(factor)))
}

// PriceAt prices a trade at ts against the drifted baseline of a scenario.
func (g *Generator) PriceAt(rng *rand.Rand, drift *Drift, ts time.Time, tt domain.TradeType, ot domain.OrderType, qty int64) decimal.Decimal {
	return g.Price(rng, drift.BaselineAt(ts), tt, ot, qty)
}

// Clamp rounds p to price precision and enforces the minimum price.
func (g *Generator) Clamp(p decimal.Decimal) decimal.Decimal {
	p = p.Round(domain.PriceDecimals)
	if p.LessThan(g.minPrice) {
		return g.minPrice
	}
	return p
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
