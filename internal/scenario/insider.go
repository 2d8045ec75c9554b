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

// Sentiment of the announcement driving an insider scenario.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// MinInsiders is the smallest insider group before a warning is raised.
const MinInsiders = 5

// InsiderParams configures one insider trading scenario.
// Zero-valued ranges fall back to the defaults documented per field.
type InsiderParams struct {
	ScenarioID       string    `yaml:"scenario_id"`
	Symbol           string    `yaml:"symbol" validate:"required"`
	AnnouncementTime time.Time `yaml:"announcement_time"`
	Sentiment        string    `yaml:"sentiment" validate:"omitempty,oneof=positive negative"` // default positive

	AccountCount        int           `yaml:"account_count" validate:"gte=0"` // default U[5,15]
	AccumulationFrom    time.Duration `yaml:"accumulation_from"`              // before announcement, default 48h
	AccumulationTo      time.Duration `yaml:"accumulation_to"`                // before announcement, default 12h
	ProfitDelay         DurationRange `yaml:"profit_delay"`                   // after announcement, default 1h..6h
	VolumeMultiplier    FloatRange    `yaml:"volume_multiplier"`              // x baseline, default 3..8
	BaselineDailyVolume int64         `yaml:"baseline_daily_volume" validate:"gte=0"`
	PriceImpact         FloatRange    `yaml:"price_impact"`       // default 0.05..0.15
	CloseFraction       FloatRange    `yaml:"close_fraction"`     // default 1..1
	TradesPerAccount    IntRange      `yaml:"trades_per_account"` // default 1..4
}

func (p InsiderParams) withDefaults() InsiderParams {
	if p.Sentiment == "" {
		p.Sentiment = SentimentPositive
	}
	if p.AccumulationFrom == 0 && p.AccumulationTo == 0 {
		p.AccumulationFrom, p.AccumulationTo = 48*time.Hour, 12*time.Hour
	}
	p.ProfitDelay = p.ProfitDelay.or(DurationRange{Min: time.Hour, Max: 6 * time.Hour})
	p.VolumeMultiplier = p.VolumeMultiplier.or(FloatRange{Min: 3, Max: 8})
	p.PriceImpact = p.PriceImpact.or(FloatRange{Min: 0.05, Max: 0.15})
	p.CloseFraction = p.CloseFraction.or(FloatRange{Min: 1, Max: 1})
	p.TradesPerAccount = p.TradesPerAccount.or(IntRange{Min: 1, Max: 4})
	return p
}

// Validate checks the parameters after defaults are applied.
func (p InsiderParams) Validate() error {
	p = p.withDefaults()
	if p.Symbol == "" {
		return fmt.Errorf("%w: insider scenario without symbol", domain.ErrConfiguration)
	}
	if p.AnnouncementTime.IsZero() {
		return fmt.Errorf("%w: insider scenario %s without announcement time", domain.ErrConfiguration, p.Symbol)
	}
	if p.Sentiment != SentimentPositive && p.Sentiment != SentimentNegative {
		return fmt.Errorf("%w: insider sentiment %q", domain.ErrConfiguration, p.Sentiment)
	}
	if p.AccumulationTo < 0 || p.AccumulationFrom <= p.AccumulationTo {
		return fmt.Errorf("%w: insider accumulation window %s..%s before announcement",
			domain.ErrConfiguration, p.AccumulationFrom, p.AccumulationTo)
	}
	if p.CloseFraction.Max > 1 {
		return fmt.Errorf("%w: insider close fraction above 1", domain.ErrConfiguration)
	}
	for _, err := range []error{
		p.ProfitDelay.validate("insider profit delay"),
		p.VolumeMultiplier.validate("insider volume multiplier"),
		p.PriceImpact.validate("insider price impact"),
		p.CloseFraction.validate("insider close fraction"),
		p.TradesPerAccount.validate("insider trades per account"),
	} {
		if err != nil {
			return err
		}
	}
	if p.TradesPerAccount.Min < 1 {
		return fmt.Errorf("%w: insider trades per account must be at least 1", domain.ErrConfiguration)
	}
	return nil
}

type insiderState int

const (
	insiderSelection insiderState = iota
	insiderAccumulation
	insiderProfitTaking
	insiderDone
)

// insiderRun holds the working state of one insider scenario.
type insiderRun struct {
	env    Env
	p      InsiderParams
	inst   domain.Instrument
	rng    *rand.Rand
	ids    *idhash.TradeIDs
	id     string
	drift  *pricing.Drift
	impact float64

	participants []domain.Account
	positions    map[string]int64 // account -> accumulated shares
	trades       []domain.Trade
	warnings     []string
	baseline     int64
	lastProfit   time.Time
}

// GenerateInsider runs Selection -> PreAnnouncementAccumulation -> ProfitTaking -> Done.
func GenerateInsider(env Env, p InsiderParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	p.AnnouncementTime = p.AnnouncementTime.Truncate(time.Second)

	inst, err := instrument(env, p.Symbol)
	if err != nil {
		return nil, err
	}
	baseline, err := baselineVolume(env, p.Symbol, p.BaselineDailyVolume)
	if err != nil {
		return nil, err
	}

	stream, id := newStream(env, domain.ScenarioInsiderTrading, p.ScenarioID, p.Symbol, p.AnnouncementTime, p.Sentiment)
	r := &insiderRun{
		env:       env,
		p:         p,
		inst:      inst,
		rng:       stream.Rand,
		ids:       idhash.NewTradeIDs(stream),
		id:        id,
		positions: make(map[string]int64),
		baseline:  baseline,
	}
	r.impact = p.PriceImpact.sample(r.rng)

	accStart := p.AnnouncementTime.Add(-p.AccumulationFrom)
	r.drift = pricing.NewDrift(id, inst.BaselinePrice, accStart)
	pre := r.impact * 0.3
	full := r.impact
	if p.Sentiment == SentimentNegative {
		pre, full = -pre, -full
	}
	r.drift.RampTo(p.AnnouncementTime, 1+pre, "pre_announcement")
	r.drift.StepTo(p.AnnouncementTime, 1+full, "announcement")

	for state := insiderSelection; state != insiderDone; {
		switch state {
		case insiderSelection:
			r.selectParticipants()
			state = insiderAccumulation
			if len(r.participants) == 0 {
				state = insiderDone
			}
		case insiderAccumulation:
			r.accumulate()
			state = insiderProfitTaking
		case insiderProfitTaking:
			r.takeProfits()
			state = insiderDone
		}
	}

	domain.SortTrades(r.trades)
	summary := domain.ScenarioSummary{
		ScenarioID:     id,
		ScenarioType:   domain.ScenarioInsiderTrading,
		Symbol:         p.Symbol,
		Participants:   participantIDs(r.participants),
		Sentiment:      p.Sentiment,
		Start:          accStart,
		End:            r.lastProfit,
		Drift:          r.drift.Checkpoints(),
		BaselineVolume: baseline,
		StartPrice:     inst.BaselinePrice.InexactFloat64(),
		Warnings:       r.warnings,
		Phases: []domain.PhaseWindow{
			{Phase: domain.PhaseAccumulation, Start: accStart, End: p.AnnouncementTime.Add(-p.AccumulationTo)},
			{Phase: domain.PhaseProfitTaking, Start: p.AnnouncementTime.Add(p.ProfitDelay.Min), End: p.AnnouncementTime.Add(p.ProfitDelay.Max)},
		},
	}
	if summary.End.IsZero() {
		summary.End = p.AnnouncementTime
	}
	summary.Tally(r.trades)

	return &Result{Trades: r.trades, Summary: summary, Warnings: r.warnings, Drift: r.drift}, nil
}

func (r *insiderRun) selectParticipants() {
	want := r.p.AccountCount
	if want == 0 {
		want = IntRange{Min: MinInsiders, Max: 15}.sample(r.rng)
	}
	r.participants = selectInsiders(r.rng, r.env.Accounts, want)

	if len(r.participants) < want {
		r.warnings = append(r.warnings, fmt.Sprintf(
			"insider %s: requested %d accounts, only %d eligible", r.p.Symbol, want, len(r.participants)))
	}
	if len(r.participants) < MinInsiders {
		r.warnings = append(r.warnings, fmt.Sprintf(
			"insider %s: %d participants is below the minimum of %d", r.p.Symbol, len(r.participants), MinInsiders))
	}
}

// accumulationVolume draws the group's total pre-announcement volume,
// kept inside [V*min, V*max].
func (r *insiderRun) accumulationVolume() int64 {
	v := float64(r.baseline)
	m := r.p.VolumeMultiplier.sample(r.rng)
	lo := int64(math.Ceil(v * r.p.VolumeMultiplier.Min))
	hi := int64(math.Floor(v * r.p.VolumeMultiplier.Max))
	total := int64(math.Round(v * m))
	total = max(lo, min(hi, total))

	if n := int64(len(r.participants)); total < n {
		r.warnings = append(r.warnings, fmt.Sprintf(
			"insider %s: baseline volume %d too small for %d participants", r.p.Symbol, r.baseline, n))
		total = n
	}
	return total
}

func (r *insiderRun) accumulate() {
	open := domain.TradeBuy
	if r.p.Sentiment == SentimentNegative {
		open = domain.TradeShort
	}

	start := r.p.AnnouncementTime.Add(-r.p.AccumulationFrom)
	window := r.p.AccumulationFrom - r.p.AccumulationTo
	perAccount := splitVolume(r.rng, r.accumulationVolume(), len(r.participants))
	announcement := r.p.AnnouncementTime
	orders := orderWeights{market: 0.7, limit: 0.3}

	for i, acc := range r.participants {
		n := r.p.TradesPerAccount.sample(r.rng)
		if int64(n) > perAccount[i] {
			n = int(perAccount[i])
		}
		for _, qty := range splitVolume(r.rng, perAccount[i], n) {
			offset := time.Duration(r.rng.Float64() * float64(window))
			ts := start.Add(offset).Truncate(time.Second)
			ot := orders.pick(r.rng)
			price := r.env.Prices.PriceAt(r.rng, r.drift, ts, open, ot, qty)

			t := domain.NewExecutedTrade(r.ids.Next(ts), acc.AccountID, r.p.Symbol, open, ot, qty, price, ts)
			tag(&t, r.id, domain.ScenarioInsiderTrading, accumulationSubPhase(float64(offset)/float64(window)), r.p.Symbol)
			t.AnnouncementTime = &announcement
			r.trades = append(r.trades, t)
			r.positions[acc.AccountID] += qty
		}
	}
}

// accumulationSubPhase tags the first 60% of the window accumulation, the next
// 30% acceleration and the final 10% final_push.
func accumulationSubPhase(frac float64) string {
	switch {
	case frac < 0.6:
		return domain.PhaseAccumulation
	case frac < 0.9:
		return domain.PhaseAcceleration
	default:
		return domain.PhaseFinalPush
	}
}

func (r *insiderRun) takeProfits() {
	closeType := domain.TradeSell
	if r.p.Sentiment == SentimentNegative {
		closeType = domain.TradeCover
	}
	announcement := r.p.AnnouncementTime
	orders := orderWeights{market: 0.8, limit: 0.2}

	for _, acc := range r.participants {
		pos := r.positions[acc.AccountID]
		if pos == 0 {
			continue
		}
		qty := int64(math.Round(float64(pos) * r.p.CloseFraction.sample(r.rng)))
		if qty < 1 {
			continue
		}
		ts := announcement.Add(r.p.ProfitDelay.sample(r.rng)).Truncate(time.Second)
		ot := orders.pick(r.rng)
		price := r.env.Prices.PriceAt(r.rng, r.drift, ts, closeType, ot, qty)

		t := domain.NewExecutedTrade(r.ids.Next(ts), acc.AccountID, r.p.Symbol, closeType, ot, qty, price, ts)
		tag(&t, r.id, domain.ScenarioInsiderTrading, domain.PhaseProfitTaking, r.p.Symbol)
		t.AnnouncementTime = &announcement
		r.trades = append(r.trades, t)

		if ts.After(r.lastProfit) {
			r.lastProfit = ts
		}
	}
}
