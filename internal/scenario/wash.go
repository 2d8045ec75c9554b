package scenario

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
)

// WashParams configures one wash trading ring.
type WashParams struct {
	ScenarioID string    `yaml:"scenario_id"`
	Symbol     string    `yaml:"symbol" validate:"required"`
	Start      time.Time `yaml:"start"`

	RingSize         int           `yaml:"ring_size" validate:"gte=0"` // default U[2,4]
	Rounds           int           `yaml:"rounds" validate:"gte=0"`    // default U[20,60]
	Sessions         int           `yaml:"sessions" validate:"gte=0"`  // default 1
	SessionGap       DurationRange `yaml:"session_gap"`                // default 1h..48h
	SessionDuration  DurationRange `yaml:"session_duration"`           // default 2h..8h
	Spread           FloatRange    `yaml:"spread"`                     // per-round price move, default 0.001..0.003
	LotSize          IntRange      `yaml:"lot_size"`                   // default 100..2000
	CancellationRate float64       `yaml:"cancellation_rate" validate:"gte=0,lt=1"`
	ShortCoverRate   float64       `yaml:"short_cover_rate" validate:"gte=0,lte=1"`
	Relationship     string        `yaml:"relationship" validate:"omitempty,oneof=same_state similar_names sequential_ids"`
}

// DefaultWashParams returns the default rates for symbol starting at start.
func DefaultWashParams(symbol string, start time.Time) WashParams {
	return WashParams{
		Symbol:           symbol,
		Start:            start,
		CancellationRate: 0.20,
		ShortCoverRate:   0.10,
	}
}

func (p WashParams) withDefaults() WashParams {
	if p.Sessions == 0 {
		p.Sessions = 1
	}
	p.SessionGap = p.SessionGap.or(DurationRange{Min: time.Hour, Max: 48 * time.Hour})
	p.SessionDuration = p.SessionDuration.or(DurationRange{Min: 2 * time.Hour, Max: 8 * time.Hour})
	p.Spread = p.Spread.or(FloatRange{Min: 0.001, Max: 0.003})
	p.LotSize = p.LotSize.or(IntRange{Min: 100, Max: 2000})
	return p
}

// Validate checks the parameters after defaults are applied.
func (p WashParams) Validate() error {
	p = p.withDefaults()
	if p.Symbol == "" {
		return fmt.Errorf("%w: wash scenario without symbol", domain.ErrConfiguration)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: wash scenario %s without start", domain.ErrConfiguration, p.Symbol)
	}
	if p.RingSize == 1 {
		return fmt.Errorf("%w: wash ring needs at least 2 accounts", domain.ErrConfiguration)
	}
	if p.CancellationRate < 0 || p.CancellationRate >= 1 {
		return fmt.Errorf("%w: wash cancellation rate %g", domain.ErrConfiguration, p.CancellationRate)
	}
	if p.Spread.Max >= 0.5 {
		return fmt.Errorf("%w: wash spread %g too wide", domain.ErrConfiguration, p.Spread.Max)
	}
	if p.SessionDuration.Min <= 0 {
		return fmt.Errorf("%w: wash session duration must be positive", domain.ErrConfiguration)
	}
	if p.LotSize.Min < 1 {
		return fmt.Errorf("%w: wash lot size must be at least 1", domain.ErrConfiguration)
	}
	switch p.Relationship {
	case "", RelationSameState, RelationSimilarNames, RelationSequentialIDs:
	default:
		return fmt.Errorf("%w: unknown ring relationship %q", domain.ErrConfiguration, p.Relationship)
	}
	for _, err := range []error{
		p.SessionGap.validate("wash session gap"),
		p.SessionDuration.validate("wash session duration"),
		p.Spread.validate("wash spread"),
		p.LotSize.validate("wash lot size"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// GenerateWash selects a ring and emits circular trades. A single lot passes
// round-robin from member to member; each executed round is a pair of legs at
// the same price and quantity, so the ring's net position never moves.
func GenerateWash(env Env, p WashParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	p.Start = p.Start.Truncate(time.Second)

	inst, err := instrument(env, p.Symbol)
	if err != nil {
		return nil, err
	}

	stream, id := newStream(env, domain.ScenarioWashTrading, p.ScenarioID, p.Symbol, p.Start, p.Relationship)
	rng := stream.Rand
	ids := idhash.NewTradeIDs(stream)

	size := p.RingSize
	if size == 0 {
		size = IntRange{Min: 2, Max: 4}.sample(rng)
	}
	rounds := p.Rounds
	if rounds == 0 {
		rounds = IntRange{Min: 20, Max: 60}.sample(rng)
	}

	var warnings []string
	if len(env.Accounts) < size {
		warnings = append(warnings, fmt.Sprintf(
			"wash %s: requested ring of %d, only %d accounts available", p.Symbol, size, len(env.Accounts)))
		size = len(env.Accounts)
	}

	summary := domain.ScenarioSummary{
		ScenarioID:   id,
		ScenarioType: domain.ScenarioWashTrading,
		Symbol:       p.Symbol,
		Start:        p.Start,
		End:          p.Start,
		StartPrice:   inst.BaselinePrice.InexactFloat64(),
	}
	if size < 2 {
		warnings = append(warnings, fmt.Sprintf("wash %s: fewer than 2 accounts, no ring generated", p.Symbol))
		summary.Warnings = warnings
		return &Result{Summary: summary, Warnings: warnings}, nil
	}

	ring, relation := selectRing(rng, env.Accounts, p.Relationship, size)
	if p.Relationship != "" && relation != p.Relationship {
		warnings = append(warnings, fmt.Sprintf(
			"wash %s: no %s ring of %d accounts, fell back to random selection", p.Symbol, p.Relationship, size))
	} else if relation == RelationRandom {
		warnings = append(warnings, fmt.Sprintf(
			"wash %s: no related accounts found, fell back to random selection", p.Symbol))
	}
	members := participantIDs(ring)
	ringID := idhash.ComputeRingID(id, members)

	w := &washRun{
		p:      p,
		rng:    rng,
		ids:    ids,
		id:     id,
		ringID: ringID,
		ring:   members,
		start:  inst.BaselinePrice,
		price:  inst.BaselinePrice,
		clamp:  env.Prices.Clamp,
	}

	sessionStart := p.Start
	remaining := rounds
	for s := 0; s < p.Sessions && remaining > 0; s++ {
		if s > 0 {
			sessionStart = sessionStart.Add(p.SessionGap.sample(rng))
		}
		n := remaining / (p.Sessions - s)
		if n == 0 {
			n = remaining
		}
		dur := p.SessionDuration.sample(rng)
		end := w.session(sessionStart, dur, n)
		summary.Phases = append(summary.Phases, domain.PhaseWindow{
			Phase: domain.PhaseCircularTrading, Start: sessionStart, End: end,
		})
		remaining -= n
		sessionStart = end
	}

	domain.SortTrades(w.trades)
	summary.Participants = members
	summary.GroupID = ringID
	summary.Relationship = relation
	summary.End = sessionStart
	summary.Warnings = warnings
	summary.Tally(w.trades)

	return &Result{Trades: w.trades, Summary: summary, Warnings: warnings}, nil
}

type washRun struct {
	p      WashParams
	rng    *rand.Rand
	ids    *idhash.TradeIDs
	id     string
	ringID string
	ring   []string
	start  decimal.Decimal
	price  decimal.Decimal
	clamp  func(decimal.Decimal) decimal.Decimal
	next   int // ring index of the member holding the lot
	trades []domain.Trade
}

// session emits n rounds spread over [start, start+dur) and returns the session end.
func (w *washRun) session(start time.Time, dur time.Duration, n int) time.Time {
	lot := int64(w.p.LotSize.sample(w.rng))
	step := dur / time.Duration(n)
	maxGap := max(step/2, time.Second)
	end := start

	for r := 0; r < n; r++ {
		// one round per slot, jittered inside the slot
		ts := start.Add(time.Duration(r)*step + time.Duration(w.rng.Float64()*float64(step)/2)).Truncate(time.Second)
		// The next sell lands strictly after the previous buy, so the lot is
		// always back with the seller before it moves on.
		if r > 0 && !ts.After(end) {
			ts = end.Add(time.Second)
		}
		legGap := min(time.Duration(1+w.rng.IntN(30))*time.Second, maxGap).Truncate(time.Second)
		end = ts.Add(legGap)
		w.round(ts, end, lot)
	}
	return end
}

func (w *washRun) round(sellAt, buyAt time.Time, lot int64) {
	seller := w.ring[w.next]
	buyer := w.ring[(w.next+1)%len(w.ring)]

	sellType, buyType := domain.TradeSell, domain.TradeBuy
	if w.rng.Float64() < w.p.ShortCoverRate {
		sellType, buyType = domain.TradeShort, domain.TradeCover
	}
	ot := domain.OrderLimit
	if w.rng.Float64() < 0.4 {
		ot = domain.OrderMarket
	}

	if w.rng.Float64() < w.p.CancellationRate {
		for _, leg := range []struct {
			acc string
			tt  domain.TradeType
			ts  time.Time
		}{{seller, sellType, sellAt}, {buyer, buyType, buyAt}} {
			t := domain.NewCancelledTrade(w.ids.Next(leg.ts), leg.acc, w.p.Symbol, leg.tt, ot, lot, leg.ts)
			w.tagLeg(&t, "")
			w.trades = append(w.trades, t)
		}
		return
	}

	price := w.nextPrice()
	sell := domain.NewExecutedTrade(w.ids.Next(sellAt), seller, w.p.Symbol, sellType, ot, lot, price, sellAt)
	w.tagLeg(&sell, buyer)
	buy := domain.NewExecutedTrade(w.ids.Next(buyAt), buyer, w.p.Symbol, buyType, ot, lot, price, buyAt)
	w.tagLeg(&buy, seller)
	w.trades = append(w.trades, sell, buy)

	w.next = (w.next + 1) % len(w.ring)
}

// nextPrice moves the round price by a spread step toward the session start
// price and keeps it within +/- Spread.Max of it.
func (w *washRun) nextPrice() decimal.Decimal {
	step := w.p.Spread.sample(w.rng)
	var dir float64
	switch w.price.Cmp(w.start) {
	case 1:
		dir = -1
	case -1:
		dir = 1
	default:
		dir = 1
		if w.rng.IntN(2) == 0 {
			dir = -1
		}
	}

	p := w.price.Mul(decimal.NewFromFloat(1 + dir*step))
	lo := w.start.Mul(decimal.NewFromFloat(1 - w.p.Spread.Max))
	hi := w.start.Mul(decimal.NewFromFloat(1 + w.p.Spread.Max))
	if p.LessThan(lo) {
		p = lo
	}
	if p.GreaterThan(hi) {
		p = hi
	}
	w.price = w.clamp(p)
	return w.price
}

func (w *washRun) tagLeg(t *domain.Trade, counterpart string) {
	tag(t, w.id, domain.ScenarioWashTrading, domain.PhaseCircularTrading, w.p.Symbol)
	t.WashRingID = w.ringID
	t.CounterpartAccount = counterpart
}
