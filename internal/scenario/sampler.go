package scenario

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"fraud-trade-lab/internal/domain"
)

// TimestampSampler chooses the timestamps of a phase's trades across all
// participants. Implementations return n timestamps inside [w.Start, w.End),
// sorted ascending.
type TimestampSampler interface {
	Sample(rng *rand.Rand, w domain.PhaseWindow, n int) []time.Time
}

// TightSampler clusters trades within Radius of a shared center. Windows longer
// than ClusterSpan get one cluster per span (e.g. one per trading day).
type TightSampler struct {
	Radius      time.Duration
	ClusterSpan time.Duration
}

// LooseSampler spreads trades evenly: one uniform draw per equal stratum.
type LooseSampler struct{}

// MixedSampler is tight during the pump and loose otherwise.
type MixedSampler struct {
	Tight TightSampler
	Loose LooseSampler
}

// NewSampler returns the sampler for a coordination pattern.
func NewSampler(pattern string) (TimestampSampler, error) {
	tight := TightSampler{Radius: 10 * time.Minute, ClusterSpan: 24 * time.Hour}
	switch pattern {
	case domain.CoordinationTight:
		return tight, nil
	case domain.CoordinationLoose:
		return LooseSampler{}, nil
	case domain.CoordinationMixed:
		return MixedSampler{Tight: tight}, nil
	}
	return nil, fmt.Errorf("%w: unknown coordination pattern %q", domain.ErrConfiguration, pattern)
}

// Sample implements TimestampSampler.
func (s TightSampler) Sample(rng *rand.Rand, w domain.PhaseWindow, n int) []time.Time {
	span := w.End.Sub(w.Start)
	clusters := 1
	if s.ClusterSpan > 0 && span > s.ClusterSpan {
		clusters = int((span + s.ClusterSpan - 1) / s.ClusterSpan)
	}

	out := make([]time.Time, 0, n)
	for c := 0; c < clusters; c++ {
		cs := w.Start.Add(time.Duration(c) * s.ClusterSpan)
		ce := w.End
		if clusters > 1 && cs.Add(s.ClusterSpan).Before(ce) {
			ce = cs.Add(s.ClusterSpan)
		}
		count := n / clusters
		if c < n%clusters {
			count++
		}

		center := cs.Add(ce.Sub(cs) / 2)
		if free := ce.Sub(cs) - 2*s.Radius; free > 0 {
			center = cs.Add(s.Radius + time.Duration(rng.Float64()*float64(free)))
		}
		for i := 0; i < count; i++ {
			off := time.Duration((rng.Float64()*2 - 1) * float64(s.Radius))
			out = append(out, clampTime(center.Add(off), cs, ce))
		}
	}
	sortTimes(out)
	return out
}

// Sample implements TimestampSampler.
func (LooseSampler) Sample(rng *rand.Rand, w domain.PhaseWindow, n int) []time.Time {
	out := make([]time.Time, n)
	if n == 0 {
		return out
	}
	stratum := w.End.Sub(w.Start) / time.Duration(n)
	for i := range out {
		ts := w.Start.Add(time.Duration(i)*stratum + time.Duration(rng.Float64()*float64(stratum)))
		out[i] = clampTime(ts, w.Start, w.End)
	}
	return out
}

// Sample implements TimestampSampler.
func (s MixedSampler) Sample(rng *rand.Rand, w domain.PhaseWindow, n int) []time.Time {
	if w.Phase == domain.PhasePump {
		return s.Tight.Sample(rng, w, n)
	}
	return s.Loose.Sample(rng, w, n)
}

// clampTime keeps ts in [start, end) at second resolution.
func clampTime(ts, start, end time.Time) time.Time {
	ts = ts.Truncate(time.Second)
	if ts.Before(start) {
		return start
	}
	if !ts.Before(end) {
		last := end.Add(-time.Second)
		if last.Before(start) {
			return start
		}
		return last
	}
	return ts
}

func sortTimes(ts []time.Time) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
}
