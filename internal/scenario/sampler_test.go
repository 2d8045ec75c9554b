package scenario

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraud-trade-lab/internal/domain"
)

func TestTightSampler_Clusters(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	s := TightSampler{Radius: 10 * time.Minute, ClusterSpan: 24 * time.Hour}
	start := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	w := domain.PhaseWindow{Phase: domain.PhasePump, Start: start, End: start.Add(4 * time.Hour)}

	ts := s.Sample(rng, w, 40)
	require.Len(t, ts, 40)
	assert.LessOrEqual(t, ts[len(ts)-1].Sub(ts[0]), 20*time.Minute+time.Second)
	for i, x := range ts {
		assert.False(t, x.Before(w.Start))
		assert.True(t, x.Before(w.End))
		if i > 0 {
			assert.False(t, x.Before(ts[i-1]))
		}
	}
}

func TestTightSampler_DailyClusters(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	s := TightSampler{Radius: 10 * time.Minute, ClusterSpan: 24 * time.Hour}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w := domain.PhaseWindow{Phase: domain.PhaseAccumulation, Start: start, End: start.Add(5 * 24 * time.Hour)}

	ts := s.Sample(rng, w, 50)
	perDay := make(map[int]int)
	for _, x := range ts {
		perDay[int(x.Sub(start)/(24*time.Hour))]++
	}
	assert.Len(t, perDay, 5)
	for day, n := range perDay {
		assert.Equal(t, 10, n, "day %d", day)
	}
}

func TestLooseSampler_Stratified(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w := domain.PhaseWindow{Phase: domain.PhaseDump, Start: start, End: start.Add(10 * time.Hour)}

	ts := LooseSampler{}.Sample(rng, w, 10)
	require.Len(t, ts, 10)
	for i, x := range ts {
		lo := start.Add(time.Duration(i) * time.Hour)
		assert.False(t, x.Before(lo), "stratum %d", i)
		assert.True(t, x.Before(lo.Add(time.Hour)), "stratum %d", i)
	}
}

func TestMixedSampler_ByPhase(t *testing.T) {
	s, err := NewSampler(domain.CoordinationMixed)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(9, 10))
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	pump := s.Sample(rng, domain.PhaseWindow{Phase: domain.PhasePump, Start: start, End: start.Add(6 * time.Hour)}, 30)
	assert.LessOrEqual(t, pump[len(pump)-1].Sub(pump[0]), 20*time.Minute+time.Second)

	dump := s.Sample(rng, domain.PhaseWindow{Phase: domain.PhaseDump, Start: start, End: start.Add(6 * time.Hour)}, 30)
	assert.Greater(t, dump[len(dump)-1].Sub(dump[0]), time.Hour)

	_, err = NewSampler("bogus")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestKeepPhaseOrder(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	floor := []time.Time{t0.Add(time.Hour), t0.Add(-time.Hour)}
	slots := []slot{
		{account: 0, ts: t0},
		{account: 1, ts: t0},
		{account: 0, ts: t0.Add(2 * time.Hour)},
	}
	keepPhaseOrder(slots, floor)

	assert.Equal(t, t0.Add(time.Hour), slots[0].ts)
	assert.Equal(t, t0, slots[1].ts)
	assert.Equal(t, t0.Add(2*time.Hour), slots[2].ts)
	assert.Equal(t, []time.Time{t0.Add(2 * time.Hour), t0}, floor)
}

func TestSplitVolume(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	for _, tc := range []struct {
		total int64
		n     int
	}{{100, 7}, {7, 7}, {1_000_003, 13}, {5, 1}} {
		parts := splitVolume(rng, tc.total, tc.n)
		require.Len(t, parts, tc.n)
		var sum int64
		for _, p := range parts {
			assert.GreaterOrEqual(t, p, int64(1))
			sum += p
		}
		assert.Equal(t, tc.total, sum)
	}
}

func TestWeightedSample_Bias(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	weights := []float64{4, 0.25, 0, 1}
	counts := make([]int, len(weights))

	for i := 0; i < 2000; i++ {
		for _, idx := range weightedSample(rng, weights, 1) {
			counts[idx]++
		}
	}
	assert.Zero(t, counts[2])
	assert.Greater(t, counts[0], counts[3])
	assert.Greater(t, counts[3], counts[1])

	all := weightedSample(rng, weights, 10)
	assert.Len(t, all, 3)
}
