package pricing

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestPrice_SpreadDirection(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	rng := testRand()
	base := decimal.NewFromInt(100)

	buy := g.Price(rng, base, domain.TradeBuy, domain.OrderMarket, 10)
	sell := g.Price(rng, base, domain.TradeSell, domain.OrderMarket, 10)
	cover := g.Price(rng, base, domain.TradeCover, domain.OrderMarket, 10)
	short := g.Price(rng, base, domain.TradeShort, domain.OrderMarket, 10)

	assert.Equal(t, "100.5", buy.String())
	assert.Equal(t, "99.5", sell.String())
	assert.True(t, cover.Equal(buy))
	assert.True(t, short.Equal(sell))
}

func TestPrice_LargeOrderSlippage(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	rng := testRand()
	base := decimal.NewFromInt(100)

	for i := 0; i < 200; i++ {
		buy := g.Price(rng, base, domain.TradeBuy, domain.OrderMarket, 5000)
		// 100 * 1.005 * [1.001, 1.003]
		assert.True(t, buy.GreaterThanOrEqual(decimal.RequireFromString("100.6004")), buy.String())
		assert.True(t, buy.LessThanOrEqual(decimal.RequireFromString("100.8016")), buy.String())

		sell := g.Price(rng, base, domain.TradeSell, domain.OrderMarket, 5000)
		assert.True(t, sell.LessThanOrEqual(decimal.RequireFromString("99.4006")), sell.String())
		assert.True(t, sell.GreaterThanOrEqual(decimal.RequireFromString("99.2015")), sell.String())
	}
}

func TestPrice_LimitImprovement(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	rng := testRand()
	base := decimal.NewFromInt(100)

	for i := 0; i < 200; i++ {
		buy := g.Price(rng, base, domain.TradeBuy, domain.OrderLimit, 10)
		assert.True(t, buy.LessThanOrEqual(decimal.RequireFromString("100.5")))
		assert.True(t, buy.GreaterThan(decimal.NewFromInt(100)))
	}
}

func TestPrice_AlwaysPositive(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	rng := testRand()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDrift("crash", decimal.RequireFromString("0.02"), start)
	d.RampTo(start.Add(time.Hour), -3, "crash")

	for _, ts := range []time.Time{start, start.Add(30 * time.Minute), start.Add(2 * time.Hour)} {
		p := g.PriceAt(rng, d, ts, domain.TradeSell, domain.OrderMarket, 10_000)
		require.True(t, p.IsPositive(), "price %s at %s", p, ts)
		assert.True(t, p.GreaterThanOrEqual(decimal.RequireFromString("0.01")))
	}
}

func TestDrift_Multiplier(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDrift("s", decimal.NewFromInt(50), start)
	d.RampBy(start.Add(10*time.Hour), 0.10, "ramp")
	d.StepTo(start.Add(20*time.Hour), 1.5, "news")
	d.RampTo(start.Add(30*time.Hour), 1.0, "fade")

	assert.InDelta(t, 1.0, d.Multiplier(start.Add(-time.Hour)), 1e-9)
	assert.InDelta(t, 1.0, d.Multiplier(start), 1e-9)
	assert.InDelta(t, 1.05, d.Multiplier(start.Add(5*time.Hour)), 1e-9)
	assert.InDelta(t, 1.10, d.Multiplier(start.Add(10*time.Hour)), 1e-9)
	// holds until the step
	assert.InDelta(t, 1.10, d.Multiplier(start.Add(19*time.Hour)), 1e-9)
	assert.InDelta(t, 1.5, d.Multiplier(start.Add(20*time.Hour)), 1e-9)
	assert.InDelta(t, 1.25, d.Multiplier(start.Add(25*time.Hour)), 1e-9)
	assert.InDelta(t, 1.0, d.Multiplier(start.Add(40*time.Hour)), 1e-9)

	assert.Equal(t, "55", d.BaselineAt(start.Add(10*time.Hour)).Round(4).String())
	assert.Len(t, d.Checkpoints(), 4)
	assert.Equal(t, "s", d.ScenarioID())
}

func TestDrift_StepAtSameInstant(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	announce := start.Add(24 * time.Hour)
	d := NewDrift("s", decimal.NewFromInt(10), start)
	d.RampTo(announce, 1.03, "pre")
	d.StepTo(announce, 1.10, "announce")

	assert.InDelta(t, 1.03, d.Multiplier(announce.Add(-time.Nanosecond)), 1e-6)
	assert.InDelta(t, 1.10, d.Multiplier(announce), 1e-9)
	assert.InDelta(t, 1.10, d.Multiplier(announce.Add(time.Hour)), 1e-9)
}
