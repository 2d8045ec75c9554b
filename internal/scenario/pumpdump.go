package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/idhash"
	"fraud-trade-lab/internal/pricing"
)

// MinPumpers is the smallest scheme before a warning is raised.
const MinPumpers = 8

// PumpDumpParams configures one pump-and-dump scheme.
type PumpDumpParams struct {
	ScenarioID string    `yaml:"scenario_id"`
	Symbol     string    `yaml:"symbol" validate:"required"`
	Start      time.Time `yaml:"start"`

	AccountCount     int           `yaml:"account_count" validate:"gte=0"`     // default U[8,20]
	AccumulationDays int           `yaml:"accumulation_days" validate:"gte=0"` // default U[5,10]
	PumpDuration     DurationRange `yaml:"pump_duration"`                      // default 2h..6h
	DumpDuration     DurationRange `yaml:"dump_duration"`                      // default 1h..3h
	PumpTarget       FloatRange    `yaml:"pump_target"`                        // price rise over the pump, default 0.15..0.40
	DumpImpact       FloatRange    `yaml:"dump_impact"`                        // drop from the peak, default 0.25..0.50
	AccumulationRise FloatRange    `yaml:"accumulation_rise"`                  // default 0.01..0.05
	Coordination     string        `yaml:"coordination" validate:"omitempty,oneof=tight loose mixed"`

	AccumulationVolume  FloatRange `yaml:"accumulation_volume"` // x baseline per day, default 2..4
	PumpVolume          FloatRange `yaml:"pump_volume"`         // x baseline, default 8..20
	DumpVolume          FloatRange `yaml:"dump_volume"`         // x baseline, default 15..35
	BaselineDailyVolume int64      `yaml:"baseline_daily_volume" validate:"gte=0"`

	AccumulationTrades IntRange `yaml:"accumulation_trades"` // per account, default 3..8
	PumpTrades         IntRange `yaml:"pump_trades"`         // per account, default 2..6
	DumpTrades         IntRange `yaml:"dump_trades"`         // per account, default 3..8
	CancellationRate   float64  `yaml:"cancellation_rate" validate:"gte=0,lt=1"`
}

// DefaultPumpDumpParams returns the default rates for symbol starting at start.
func DefaultPumpDumpParams(symbol string, start time.Time) PumpDumpParams {
	return PumpDumpParams{Symbol: symbol, Start: start, CancellationRate: 0.05}
}

func (p PumpDumpParams) withDefaults() PumpDumpParams {
	p.PumpDuration = p.PumpDuration.or(DurationRange{Min: 2 * time.Hour, Max: 6 * time.Hour})
	p.DumpDuration = p.DumpDuration.or(DurationRange{Min: time.Hour, Max: 3 * time.Hour})
	p.PumpTarget = p.PumpTarget.or(FloatRange{Min: 0.15, Max: 0.40})
	p.DumpImpact = p.DumpImpact.or(FloatRange{Min: 0.25, Max: 0.50})
	p.AccumulationRise = p.AccumulationRise.or(FloatRange{Min: 0.01, Max: 0.05})
	p.AccumulationVolume = p.AccumulationVolume.or(FloatRange{Min: 2, Max: 4})
	p.PumpVolume = p.PumpVolume.or(FloatRange{Min: 8, Max: 20})
	p.DumpVolume = p.DumpVolume.or(FloatRange{Min: 15, Max: 35})
	p.AccumulationTrades = p.AccumulationTrades.or(IntRange{Min: 3, Max: 8})
	p.PumpTrades = p.PumpTrades.or(IntRange{Min: 2, Max: 6})
	p.DumpTrades = p.DumpTrades.or(IntRange{Min: 3, Max: 8})
	return p
}

// Validate checks the parameters after defaults are applied.
func (p PumpDumpParams) Validate() error {
	p = p.withDefaults()
	if p.Symbol == "" {
		return fmt.Errorf("%w: pump-and-dump scenario without symbol", domain.ErrConfiguration)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: pump-and-dump %s without start", domain.ErrConfiguration, p.Symbol)
	}
	if p.Coordination != "" {
		if _, err := NewSampler(p.Coordination); err != nil {
			return err
		}
	}
	if p.DumpImpact.Max >= 1 {
		return fmt.Errorf("%w: dump impact must stay below 100%%", domain.ErrConfiguration)
	}
	if p.CancellationRate < 0 || p.CancellationRate >= 1 {
		return fmt.Errorf("%w: pump-and-dump cancellation rate %g", domain.ErrConfiguration, p.CancellationRate)
	}
	if p.PumpDuration.Min <= 0 || p.DumpDuration.Min <= 0 {
		return fmt.Errorf("%w: pump and dump durations must be positive", domain.ErrConfiguration)
	}
	for _, err := range []error{
		p.PumpDuration.validate("pump duration"),
		p.DumpDuration.validate("dump duration"),
		p.PumpTarget.validate("pump target"),
		p.DumpImpact.validate("dump impact"),
		p.AccumulationRise.validate("accumulation rise"),
		p.AccumulationVolume.validate("accumulation volume"),
		p.PumpVolume.validate("pump volume"),
		p.DumpVolume.validate("dump volume"),
		p.AccumulationTrades.validate("accumulation trades"),
		p.PumpTrades.validate("pump trades"),
		p.DumpTrades.validate("dump trades"),
	} {
		if err != nil {
			return err
		}
	}
	if p.AccumulationTrades.Min < 1 || p.PumpTrades.Min < 1 || p.DumpTrades.Min < 1 {
		return fmt.Errorf("%w: pump-and-dump needs at least one trade per account per phase", domain.ErrConfiguration)
	}
	return nil
}

// coordination weights when none is configured
var coordinationWeights = []struct {
	pattern string
	weight  float64
}{
	{domain.CoordinationTight, 0.4},
	{domain.CoordinationLoose, 0.4},
	{domain.CoordinationMixed, 0.2},
}

func pickCoordination(rng *rand.Rand) string {
	x := rng.Float64()
	for _, c := range coordinationWeights {
		if x < c.weight {
			return c.pattern
		}
		x -= c.weight
	}
	return domain.CoordinationMixed
}

type phasePlan struct {
	window  domain.PhaseWindow
	trade   domain.TradeType
	orders  orderWeights
	perAcct IntRange
}

// slot is one planned trade of a participant.
type slot struct {
	account  int
	ts       time.Time
	executed bool
	qty      int64
}

type pumpRun struct {
	env      Env
	p        PumpDumpParams
	rng      *rand.Rand
	ids      *idhash.TradeIDs
	id       string
	schemeID string
	pattern  string
	sampler  TimestampSampler
	drift    *pricing.Drift

	participants []domain.Account
	long         []int64     // executed shares held per participant
	floor        []time.Time // latest trade time per participant in earlier phases
	trades       []domain.Trade
}

// GeneratePumpDump runs Accumulation -> Pump -> Dump -> Done for one scheme.
func GeneratePumpDump(env Env, p PumpDumpParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	p.Start = p.Start.Truncate(time.Second)

	inst, err := instrument(env, p.Symbol)
	if err != nil {
		return nil, err
	}
	baseline, err := baselineVolume(env, p.Symbol, p.BaselineDailyVolume)
	if err != nil {
		return nil, err
	}

	stream, id := newStream(env, domain.ScenarioPumpAndDump, p.ScenarioID, p.Symbol, p.Start, p.Coordination)
	rng := stream.Rand
	r := &pumpRun{
		env:      env,
		p:        p,
		rng:      rng,
		ids:      idhash.NewTradeIDs(stream),
		id:       id,
		schemeID: idhash.NewSchemeID(stream),
		pattern:  p.Coordination,
	}
	if r.pattern == "" {
		r.pattern = pickCoordination(rng)
	}
	r.sampler, err = NewSampler(r.pattern)
	if err != nil {
		return nil, err
	}

	var warnings []string
	want := p.AccountCount
	if want == 0 {
		want = IntRange{Min: MinPumpers, Max: 20}.sample(rng)
	}
	r.participants = selectPumpers(rng, env.Accounts, want)
	if len(r.participants) < want {
		warnings = append(warnings, fmt.Sprintf(
			"pump-and-dump %s: requested %d accounts, only %d eligible", p.Symbol, want, len(r.participants)))
	}
	if len(r.participants) < MinPumpers {
		warnings = append(warnings, fmt.Sprintf(
			"pump-and-dump %s: %d participants is below the minimum of %d", p.Symbol, len(r.participants), MinPumpers))
	}
	r.long = make([]int64, len(r.participants))
	r.floor = make([]time.Time, len(r.participants))

	// Contiguous phase windows.
	days := p.AccumulationDays
	if days == 0 {
		days = IntRange{Min: 5, Max: 10}.sample(rng)
	}
	accEnd := p.Start.Add(time.Duration(days) * 24 * time.Hour)
	pumpEnd := accEnd.Add(p.PumpDuration.sample(rng)).Truncate(time.Second)
	dumpEnd := pumpEnd.Add(p.DumpDuration.sample(rng)).Truncate(time.Second)

	accumulation := domain.PhaseWindow{Phase: domain.PhaseAccumulation, Start: p.Start, End: accEnd}
	pump := domain.PhaseWindow{Phase: domain.PhasePump, Start: accEnd, End: pumpEnd}
	dump := domain.PhaseWindow{Phase: domain.PhaseDump, Start: pumpEnd, End: dumpEnd}

	// Drift: mild rise, pump to target relative to the pump's start, dump relative to the peak.
	r.drift = pricing.NewDrift(id, inst.BaselinePrice, p.Start)
	r.drift.RampBy(accEnd, p.AccumulationRise.sample(rng), domain.PhaseAccumulation)
	r.drift.RampBy(pumpEnd, p.PumpTarget.sample(rng), domain.PhasePump)
	r.drift.RampBy(dumpEnd, -p.DumpImpact.sample(rng), domain.PhaseDump)

	v := float64(baseline)
	phases := []struct {
		plan   phasePlan
		volume int64
	}{
		{phasePlan{accumulation, domain.TradeBuy, orderWeights{market: 0.3, limit: 0.6, stop: 0.1}, p.AccumulationTrades},
			int64(math.Round(v * p.AccumulationVolume.sample(rng) * float64(days)))},
		{phasePlan{pump, domain.TradeBuy, orderWeights{market: 0.8, limit: 0.2}, p.PumpTrades},
			int64(math.Round(v * p.PumpVolume.sample(rng)))},
		{phasePlan{dump, domain.TradeSell, orderWeights{market: 0.7, limit: 0.1, stop: 0.2}, p.DumpTrades},
			int64(math.Round(v * p.DumpVolume.sample(rng)))},
	}

	if len(r.participants) > 0 {
		for _, ph := range phases {
			r.runPhase(ph.plan, ph.volume)
		}
	}

	domain.SortTrades(r.trades)
	summary := domain.ScenarioSummary{
		ScenarioID:     id,
		ScenarioType:   domain.ScenarioPumpAndDump,
		Symbol:         p.Symbol,
		Participants:   participantIDs(r.participants),
		GroupID:        r.schemeID,
		Coordination:   r.pattern,
		Start:          p.Start,
		End:            dumpEnd,
		Phases:         []domain.PhaseWindow{accumulation, pump, dump},
		Drift:          r.drift.Checkpoints(),
		BaselineVolume: baseline,
		StartPrice:     inst.BaselinePrice.InexactFloat64(),
		Warnings:       warnings,
	}
	summary.Tally(r.trades)

	return &Result{Trades: r.trades, Summary: summary, Warnings: warnings, Drift: r.drift}, nil
}

// runPhase plans every participant's trades for one phase, samples their
// timestamps, and spreads the phase volume over the executed slots.
func (r *pumpRun) runPhase(plan phasePlan, volume int64) {
	var slots []slot
	for a := range r.participants {
		for i, n := 0, plan.perAcct.sample(r.rng); i < n; i++ {
			slots = append(slots, slot{account: a, executed: r.rng.Float64() >= r.p.CancellationRate})
		}
	}
	if len(slots) == 0 {
		return
	}

	times := r.sampler.Sample(r.rng, plan.window, len(slots))
	r.rng.Shuffle(len(times), func(i, j int) { times[i], times[j] = times[j], times[i] })
	for i := range slots {
		slots[i].ts = times[i]
	}
	// Times are fixed here, before ids and prices are derived from them.
	keepPhaseOrder(slots, r.floor)

	if plan.trade == domain.TradeSell {
		r.sizeDump(slots, volume)
	} else {
		r.sizeBuys(slots, volume)
	}

	for _, s := range slots {
		acc := r.participants[s.account]
		ot := plan.orders.pick(r.rng)
		var t domain.Trade
		if s.executed {
			price := r.env.Prices.PriceAt(r.rng, r.drift, s.ts, plan.trade, ot, s.qty)
			t = domain.NewExecutedTrade(r.ids.Next(s.ts), acc.AccountID, r.p.Symbol, plan.trade, ot, s.qty, price, s.ts)
			r.long[s.account] += plan.trade.Sign() * s.qty
		} else {
			t = domain.NewCancelledTrade(r.ids.Next(s.ts), acc.AccountID, r.p.Symbol, plan.trade, ot, s.qty, s.ts)
		}
		tag(&t, r.id, domain.ScenarioPumpAndDump, plan.window.Phase, r.p.Symbol)
		t.PumpSchemeID = r.schemeID
		t.CoordinationPattern = r.pattern
		r.trades = append(r.trades, t)
	}
}

// sizeBuys splits volume over the executed slots. At least one slot executes.
func (r *pumpRun) sizeBuys(slots []slot, volume int64) {
	var exec []int
	for i := range slots {
		if slots[i].executed {
			exec = append(exec, i)
		}
	}
	if len(exec) == 0 {
		slots[0].executed = true
		exec = []int{0}
	}
	if volume < int64(len(exec)) {
		volume = int64(len(exec))
	}
	parts := splitVolume(r.rng, volume, len(exec))
	for k, i := range exec {
		slots[i].qty = parts[k]
	}
	r.fillCancelled(slots, volume/int64(len(exec)))
}

// sizeDump shares volume across participants in proportion to their long
// position, capped at that position. Accounts never go short on the exit.
func (r *pumpRun) sizeDump(slots []slot, volume int64) {
	var held int64
	for _, l := range r.long {
		held += max(l, 0)
	}

	all := make([][]int, len(r.participants))
	byAccount := make([][]int, len(r.participants))
	for i := range slots {
		a := slots[i].account
		all[a] = append(all[a], i)
		if slots[i].executed {
			byAccount[a] = append(byAccount[a], i)
		}
	}

	for a, idx := range byAccount {
		pos := max(r.long[a], 0)
		if len(idx) == 0 && pos > 0 && len(all[a]) > 0 {
			// An account holding shares always gets out.
			slots[all[a][0]].executed = true
			idx = all[a][:1]
		}
		if len(idx) == 0 {
			continue
		}
		var target int64
		if held > 0 {
			target = int64(math.Round(float64(volume) * float64(pos) / float64(held)))
		}
		target = min(max(target, 1), pos)

		n := min(int64(len(idx)), target)
		parts := splitVolume(r.rng, target, int(n))
		for k, i := range idx {
			if int64(k) < n {
				slots[i].qty = parts[k]
			} else {
				// nothing left to sell
				slots[i].executed = false
			}
		}
	}

	avg := int64(1)
	if held > 0 && len(r.participants) > 0 {
		avg = max(1, held/int64(len(r.participants)))
	}
	r.fillCancelled(slots, avg)
}

// fillCancelled gives cancelled slots a plausible order size.
func (r *pumpRun) fillCancelled(slots []slot, typical int64) {
	for i := range slots {
		if !slots[i].executed && slots[i].qty == 0 {
			slots[i].qty = max(1, int64(float64(typical)*(0.5+r.rng.Float64())))
		}
	}
}

// keepPhaseOrder moves any slot that precedes its account's latest trade of an
// earlier phase to that time, then advances the floor past this phase.
func keepPhaseOrder(slots []slot, floor []time.Time) {
	for i := range slots {
		if f := floor[slots[i].account]; slots[i].ts.Before(f) {
			slots[i].ts = f
		}
	}
	for _, s := range slots {
		if s.ts.After(floor[s.account]) {
			floor[s.account] = s.ts
		}
	}
}
