// Package generation synthesizes legitimate per-account trade activity.
package generation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/pricing"
)

// Generator produces independent trade sequences per account.
// Safe for concurrent use: all per-call state lives in a per-account stream.
type Generator struct {
	cfg     Config
	catalog *domain.Catalog
	prices  *pricing.Generator
	seed    uint64

	symbolCum   []float64 // cumulative symbol weights, nil = uniform
	symbolProbs []float64
	tradeTypes  []weighted[domain.TradeType]
	orderTypes  []weighted[domain.OrderType]
}

type weighted[T any] struct {
	value  T
	weight float64
}

// NewGenerator validates cfg and prepares the symbol distribution.
func NewGenerator(cfg Config, catalog *domain.Catalog, prices *pricing.Generator, seed uint64) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: empty instrument catalog", domain.ErrConfiguration)
	}

	g := &Generator{
		cfg:     cfg,
		catalog: catalog,
		prices:  prices,
		seed:    seed,
		tradeTypes: []weighted[domain.TradeType]{
			{domain.TradeBuy, cfg.TradeTypes.Buy},
			{domain.TradeSell, cfg.TradeTypes.Sell},
			{domain.TradeShort, cfg.TradeTypes.Short},
			{domain.TradeCover, cfg.TradeTypes.Cover},
		},
		orderTypes: []weighted[domain.OrderType]{
			{domain.OrderMarket, cfg.OrderTypes.Market},
			{domain.OrderLimit, cfg.OrderTypes.Limit},
			{domain.OrderStop, cfg.OrderTypes.Stop},
		},
	}

	n := catalog.Len()
	g.symbolProbs = make([]float64, n)
	if len(cfg.SectorWeights) == 0 {
		for i := range g.symbolProbs {
			g.symbolProbs[i] = 1 / float64(n)
		}
		return g, nil
	}

	g.symbolCum = make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		w, ok := cfg.SectorWeights[catalog.At(i).Sector]
		if !ok {
			w = 1
		}
		total += w
		g.symbolCum[i] = total
		g.symbolProbs[i] = w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: sector weights exclude every instrument", domain.ErrConfiguration)
	}
	for i := range g.symbolProbs {
		g.symbolProbs[i] /= total
	}
	return g, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() Config { return g.cfg }

// GenerateAccount returns the account's trades ordered by execution time.
// Output depends only on the run seed, the account and the catalog.
func (g *Generator) GenerateAccount(acc domain.Account) []domain.Trade {
	stream := idhash.NewStream(g.seed, "legit|"+acc.AccountID)
	ids := idhash.NewTradeIDs(stream)
	rng := stream.Rand

	profile := g.cfg.Profiles[acc.RiskProfile]
	count := profile.MinTrades + rng.IntN(profile.MaxTrades-profile.MinTrades+1)

	window := g.cfg.WindowEnd.Sub(g.cfg.WindowStart)
	trades := make([]domain.Trade, 0, count)

	for i := 0; i < count; i++ {
		ts := g.cfg.WindowStart.Add(time.Duration(rng.Float64() * float64(window))).Truncate(time.Second)
		inst := g.catalog.At(g.pickSymbol(rng))
		tt := pick(rng, g.tradeTypes)
		ot := pick(rng, g.orderTypes)
		qty := g.quantity(rng, acc, profile, inst.BaselinePrice)

		id := ids.Next(ts)
		if rng.Float64() < g.cfg.CancellationRate {
			trades = append(trades, domain.NewCancelledTrade(id, acc.AccountID, inst.Symbol, tt, ot, qty, ts))
			continue
		}
		price := g.prices.Price(rng, inst.BaselinePrice, tt, ot, qty)
		trades = append(trades, domain.NewExecutedTrade(id, acc.AccountID, inst.Symbol, tt, ot, qty, price, ts))
	}

	domain.SortTrades(trades)
	return trades
}

// quantity sizes a trade relative to portfolio value and price.
func (g *Generator) quantity(rng *rand.Rand, acc domain.Account, profile ProfileConfig, price decimal.Decimal) int64 {
	frac := g.cfg.PositionFractionMin + rng.Float64()*(g.cfg.PositionFractionMax-g.cfg.PositionFractionMin)
	notional := acc.PortfolioValue.InexactFloat64() * frac * profile.VolumeMultiplier
	qty := int64(notional / price.InexactFloat64())
	if qty < 1 {
		qty = 1
	}
	if qty >= 100 && rng.Float64() < g.cfg.RoundLotRate {
		qty = qty / 100 * 100
	}
	return qty
}

func (g *Generator) pickSymbol(rng *rand.Rand) int {
	if g.symbolCum == nil {
		return rng.IntN(len(g.symbolProbs))
	}
	x := rng.Float64() * g.symbolCum[len(g.symbolCum)-1]
	i := sort.SearchFloat64s(g.symbolCum, x)
	// skip zero-weight entries sharing the boundary
	for i < len(g.symbolCum)-1 && g.symbolCum[i] <= x {
		i++
	}
	return i
}

func pick[T any](rng *rand.Rand, items []weighted[T]) T {
	total := 0.0
	for _, it := range items {
		total += it.weight
	}
	x := rng.Float64() * total
	for _, it := range items {
		if x < it.weight {
			return it.value
		}
		x -= it.weight
	}
	return items[len(items)-1].value
}

// ParallelOptions bounds GenerateAll's fan-out.
type ParallelOptions struct {
	Workers   int // concurrent batches; <= 0 means 1
	BatchSize int // accounts per batch; <= 0 means all accounts in one batch
}

// GenerateAll generates trades for every account. Accounts are partitioned into
// batches generated concurrently; results are concatenated in account order, so
// output does not depend on scheduling. Cancellation is observed between batches.
func (g *Generator) GenerateAll(ctx context.Context, accounts []domain.Account, opts ParallelOptions) ([]domain.Trade, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(accounts)
	}
	if batchSize == 0 {
		return nil, nil
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	numBatches := (len(accounts) + batchSize - 1) / batchSize
	results := make([][]domain.Trade, numBatches)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for b := 0; b < numBatches; b++ {
		if err := egCtx.Err(); err != nil {
			break
		}
		lo := b * batchSize
		hi := min(lo+batchSize, len(accounts))
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			var out []domain.Trade
			for _, acc := range accounts[lo:hi] {
				out = append(out, g.GenerateAccount(acc)...)
			}
			results[b] = out
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generate legitimate trades: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate legitimate trades: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	all := make([]domain.Trade, 0, total)
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// ExpectedDailyVolume estimates executed shares per day in symbol across the
// population, from the configured volume model. At least 1.
func (g *Generator) ExpectedDailyVolume(symbol string, accounts []domain.Account) int64 {
	idx := -1
	for i := 0; i < g.catalog.Len(); i++ {
		if g.catalog.At(i).Symbol == symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 1
	}
	price := g.catalog.At(idx).BaselinePrice.InexactFloat64()
	pSymbol := g.symbolProbs[idx]
	meanFrac := (g.cfg.PositionFractionMin + g.cfg.PositionFractionMax) / 2
	days := g.cfg.WindowEnd.Sub(g.cfg.WindowStart).Hours() / 24

	shares := 0.0
	for _, acc := range accounts {
		p, ok := g.cfg.Profiles[acc.RiskProfile]
		if !ok {
			continue
		}
		meanTrades := float64(p.MinTrades+p.MaxTrades) / 2
		meanQty := math.Max(1, acc.PortfolioValue.InexactFloat64()*meanFrac*p.VolumeMultiplier/price)
		shares += meanTrades * pSymbol * meanQty
	}
	daily := shares * (1 - g.cfg.CancellationRate) / days
	if daily < 1 {
		return 1
	}
	return int64(math.Round(daily))
}
