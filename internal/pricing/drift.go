package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
)

type anchor struct {
	t     time.Time
	m     float64
	step  bool
	label string
}

// Drift is the baseline-price path of one scenario run: a piecewise function of
// time built from anchors. Segments between anchors are linear unless the later
// anchor is a step, in which case the multiplier holds and jumps at the step time.
//
// A Drift belongs to exactly one scenario run and is not safe for concurrent use.
type Drift struct {
	scenarioID string
	baseline   decimal.Decimal
	anchors    []anchor
}

// NewDrift starts a drift path at multiplier 1.0 at start.
func NewDrift(scenarioID string, baseline decimal.Decimal, start time.Time) *Drift {
	return &Drift{
		scenarioID: scenarioID,
		baseline:   baseline,
		anchors:    []anchor{{t: start, m: 1, label: "start"}},
	}
}

// ScenarioID returns the owning scenario.
func (d *Drift) ScenarioID() string { return d.scenarioID }

// Baseline returns the undrifted baseline price.
func (d *Drift) Baseline() decimal.Decimal { return d.baseline }

func (d *Drift) last() anchor { return d.anchors[len(d.anchors)-1] }

// anchors must be non-decreasing in time; earlier times are moved up to the last anchor.
func (d *Drift) add(t time.Time, m float64, step bool, label string) {
	if l := d.last(); t.Before(l.t) {
		t = l.t
	}
	d.anchors = append(d.anchors, anchor{t: t, m: m, step: step, label: label})
}

// RampTo moves the multiplier linearly to m, reached at t.
func (d *Drift) RampTo(t time.Time, m float64, label string) {
	d.add(t, m, false, label)
}

// RampBy moves the multiplier linearly by pct relative to its current level, reached at t.
func (d *Drift) RampBy(t time.Time, pct float64, label string) {
	d.add(t, d.last().m*(1+pct), false, label)
}

// StepTo jumps the multiplier to m at t.
func (d *Drift) StepTo(t time.Time, m float64, label string) {
	d.add(t, m, true, label)
}

// Level returns the multiplier of the latest anchor.
func (d *Drift) Level() float64 { return d.last().m }

// Multiplier returns the drift multiplier in effect at ts.
func (d *Drift) Multiplier(ts time.Time) float64 {
	if ts.Before(d.anchors[0].t) {
		return d.anchors[0].m
	}

	i := 0
	for j := range d.anchors {
		if !d.anchors[j].t.After(ts) {
			i = j
		}
	}
	if i == len(d.anchors)-1 {
		return d.anchors[i].m
	}

	cur, next := d.anchors[i], d.anchors[i+1]
	if next.step {
		return cur.m
	}
	span := next.t.Sub(cur.t)
	if span <= 0 {
		return next.m
	}
	frac := float64(ts.Sub(cur.t)) / float64(span)
	return cur.m + (next.m-cur.m)*frac
}

// BaselineAt returns the drifted baseline price at ts.
func (d *Drift) BaselineAt(ts time.Time) decimal.Decimal {
	return d.baseline.Mul(decimal.NewFromFloat(d.Multiplier(ts)))
}

// Checkpoints exports the anchors for scenario summaries.
func (d *Drift) Checkpoints() []domain.DriftPoint {
	out := make([]domain.DriftPoint, len(d.anchors))
	for i, a := range d.anchors {
		out[i] = domain.DriftPoint{Time: a.t, Multiplier: a.m, Label: a.label}
	}
	return out
}
