// Package scenario generates coordinated fraud patterns (insider trading,
// wash trading, pump-and-dump) as tagged extensions of the trade model.
//
// Generators are pure: they read accounts and the catalog, never mutate them,
// and report under-population as warnings instead of logging.
package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/pricing"
)

// Env is the read-only input shared by all generators of a run.
type Env struct {
	Accounts []domain.Account
	Catalog  *domain.Catalog
	Prices   *pricing.Generator
	Seed     uint64

	// DailyVolume estimates the normal executed shares per day for a symbol.
	// Used when a scenario does not specify its own baseline.
	DailyVolume func(symbol string) int64
}

// Result is the output of one scenario run.
type Result struct {
	Trades   []domain.Trade
	Summary  domain.ScenarioSummary
	Warnings []string
	Drift    *pricing.Drift // nil for scenarios without price drift
}

// FloatRange is an inclusive [Min, Max] range. The zero value means "use default".
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r FloatRange) isZero() bool { return r.Min == 0 && r.Max == 0 }

func (r FloatRange) or(def FloatRange) FloatRange {
	if r.isZero() {
		return def
	}
	return r
}

func (r FloatRange) sample(rng *rand.Rand) float64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func (r FloatRange) validate(name string) error {
	if r.Min < 0 || r.Min > r.Max {
		return fmt.Errorf("%w: %s range %g..%g", domain.ErrConfiguration, name, r.Min, r.Max)
	}
	return nil
}

// IntRange is an inclusive [Min, Max] range. The zero value means "use default".
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

func (r IntRange) or(def IntRange) IntRange {
	if r.Min == 0 && r.Max == 0 {
		return def
	}
	return r
}

func (r IntRange) sample(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.IntN(r.Max-r.Min+1)
}

func (r IntRange) validate(name string) error {
	if r.Min < 0 || r.Min > r.Max {
		return fmt.Errorf("%w: %s range %d..%d", domain.ErrConfiguration, name, r.Min, r.Max)
	}
	return nil
}

// DurationRange is an inclusive [Min, Max] range. The zero value means "use default".
type DurationRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

func (r DurationRange) or(def DurationRange) DurationRange {
	if r.Min == 0 && r.Max == 0 {
		return def
	}
	return r
}

func (r DurationRange) sample(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int64N(int64(r.Max-r.Min)+1))
}

func (r DurationRange) validate(name string) error {
	if r.Min < 0 || r.Min > r.Max {
		return fmt.Errorf("%w: %s range %s..%s", domain.ErrConfiguration, name, r.Min, r.Max)
	}
	return nil
}

// newStream derives the scenario's random stream. The scenario id is drawn
// from the stream when not supplied. The label carries the anchor time and
// variant so unnamed scenarios on the same symbol still get distinct streams.
func newStream(env Env, kind, scenarioID, symbol string, anchor time.Time, variant string) (*idhash.Stream, string) {
	label := strings.Join([]string{kind, symbol, anchor.UTC().Format(time.RFC3339Nano), variant, scenarioID}, "|")
	stream := idhash.NewStream(env.Seed, label)
	if scenarioID == "" {
		scenarioID = idhash.NewScenarioID(stream)
	}
	return stream, scenarioID
}

func baselineVolume(env Env, symbol string, supplied int64) (int64, error) {
	if supplied > 0 {
		return supplied, nil
	}
	if env.DailyVolume == nil {
		return 0, fmt.Errorf("%w: no baseline daily volume for %s", domain.ErrConfiguration, symbol)
	}
	v := env.DailyVolume(symbol)
	if v < 1 {
		v = 1
	}
	return v, nil
}

func instrument(env Env, symbol string) (domain.Instrument, error) {
	if env.Catalog == nil {
		return domain.Instrument{}, fmt.Errorf("%w: empty instrument catalog", domain.ErrConfiguration)
	}
	inst, ok := env.Catalog.Get(symbol)
	if !ok {
		return domain.Instrument{}, fmt.Errorf("%w: unknown scenario symbol %q", domain.ErrConfiguration, symbol)
	}
	return inst, nil
}

// splitVolume divides total into n positive parts with randomized weights.
// Parts sum to total exactly; requires total >= n.
func splitVolume(rng *rand.Rand, total int64, n int) []int64 {
	parts := make([]int64, n)
	if n == 0 {
		return parts
	}
	if total < int64(n) {
		// not enough shares for every slot; fill from the front
		for i := int64(0); i < total; i++ {
			parts[i] = 1
		}
		return parts
	}

	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = 0.5 + rng.Float64()
		sum += weights[i]
	}

	// one share each up front, the rest by weight
	rest := total - int64(n)
	var assigned int64
	for i := range parts {
		extra := int64(math.Floor(float64(rest) * weights[i] / sum))
		parts[i] = 1 + extra
		assigned += extra
	}
	for i := 0; assigned < rest; i = (i + 1) % n {
		parts[i]++
		assigned++
	}
	return parts
}

func tag(t *domain.Trade, scenarioID, scenarioType, phase, symbol string) {
	t.ScenarioID = scenarioID
	t.ScenarioType = scenarioType
	t.ScenarioPhase = phase
	t.ScenarioSymbol = symbol
}

func participantIDs(accounts []domain.Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.AccountID
	}
	return ids
}

type orderWeights struct {
	market, limit, stop float64
}

func (w orderWeights) pick(rng *rand.Rand) domain.OrderType {
	x := rng.Float64() * (w.market + w.limit + w.stop)
	switch {
	case x < w.market:
		return domain.OrderMarket
	case x < w.market+w.limit:
		return domain.OrderLimit
	default:
		return domain.OrderStop
	}
}
