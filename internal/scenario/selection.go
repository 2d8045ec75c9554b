package scenario

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"fraud-trade-lab/internal/domain"
)

// insiderBias is the selection weight per risk profile for insider rings.
var insiderBias = map[domain.RiskProfile]float64{
	domain.RiskVeryHigh:     3.0,
	domain.RiskHigh:         4.0,
	domain.RiskGrowth:       2.0,
	domain.RiskMedium:       1.0,
	domain.RiskLow:          0.5,
	domain.RiskConservative: 0.25,
}

// pumpRiskScore rates how suitable a profile is for a pump scheme.
var pumpRiskScore = map[domain.RiskProfile]int{
	domain.RiskConservative: 1,
	domain.RiskLow:          3,
	domain.RiskMedium:       4,
	domain.RiskGrowth:       7,
	domain.RiskHigh:         9,
	domain.RiskVeryHigh:     10,
}

// weightedSample draws k distinct indices with probability proportional to
// weights (Efraimidis-Spirakis). Zero weights are never drawn.
func weightedSample(rng *rand.Rand, weights []float64, k int) []int {
	type keyed struct {
		idx int
		key float64
	}
	keys := make([]keyed, 0, len(weights))
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		u := rng.Float64()
		if u == 0 {
			u = math.SmallestNonzeroFloat64
		}
		keys = append(keys, keyed{idx: i, key: math.Log(u) / w})
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].key != keys[b].key {
			return keys[a].key > keys[b].key
		}
		return keys[a].idx < keys[b].idx
	})
	if k > len(keys) {
		k = len(keys)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = keys[i].idx
	}
	return out
}

// selectInsiders picks up to n accounts biased toward aggressive profiles.
func selectInsiders(rng *rand.Rand, accounts []domain.Account, n int) []domain.Account {
	weights := make([]float64, len(accounts))
	for i, a := range accounts {
		weights[i] = insiderBias[a.RiskProfile]
	}
	idx := weightedSample(rng, weights, n)
	out := make([]domain.Account, len(idx))
	for i, j := range idx {
		out[i] = accounts[j]
	}
	return out
}

func pumpScore(a domain.Account) int {
	score, ok := pumpRiskScore[a.RiskProfile]
	if !ok {
		score = 4
	}
	pv := a.PortfolioValue.InexactFloat64()
	switch {
	case pv > 10_000_000:
		score += 5
	case pv > 5_000_000:
		score += 3
	case pv > 1_000_000:
		score += 1
	}
	return score
}

// selectPumpers ranks accounts by score and samples n from the top half
// (widened to n when the top half is too small).
func selectPumpers(rng *rand.Rand, accounts []domain.Account, n int) []domain.Account {
	ranked := append([]domain.Account(nil), accounts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := pumpScore(ranked[i]), pumpScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].AccountID < ranked[j].AccountID
	})

	pool := len(ranked) / 2
	if pool < n {
		pool = min(n, len(ranked))
	}
	ranked = ranked[:pool]

	rng.Shuffle(len(ranked), func(i, j int) { ranked[i], ranked[j] = ranked[j], ranked[i] })
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// Ring relationship constants
const (
	RelationSameState     = "same_state"
	RelationSimilarNames  = "similar_names"
	RelationSequentialIDs = "sequential_ids"
	RelationRandom        = "random"
)

var relationships = []string{RelationSameState, RelationSimilarNames, RelationSequentialIDs}

// relatedGroups returns candidate groups of related accounts, each with at least size members.
func relatedGroups(accounts []domain.Account, relation string, size int) [][]domain.Account {
	switch relation {
	case RelationSameState:
		return groupBy(accounts, size, func(a domain.Account) string {
			return strings.ToUpper(strings.TrimSpace(a.State))
		})
	case RelationSimilarNames:
		return groupBy(accounts, size, func(a domain.Account) string {
			name := strings.ToUpper(strings.TrimSpace(a.LastName))
			if len(name) < 3 {
				return ""
			}
			return name[:3]
		})
	case RelationSequentialIDs:
		return sequentialGroups(accounts, size)
	}
	return nil
}

func groupBy(accounts []domain.Account, size int, key func(domain.Account) string) [][]domain.Account {
	byKey := make(map[string][]domain.Account)
	var keys []string
	for _, a := range accounts {
		k := key(a)
		if k == "" {
			continue
		}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], a)
	}
	sort.Strings(keys)

	var groups [][]domain.Account
	for _, k := range keys {
		if len(byKey[k]) >= size {
			groups = append(groups, byKey[k])
		}
	}
	return groups
}

// maxSequentialGap is the largest id distance still considered "sequential".
const maxSequentialGap = 100

// sequentialGroups finds windows of size accounts whose numeric id suffixes
// lie within maxSequentialGap of each other.
func sequentialGroups(accounts []domain.Account, size int) [][]domain.Account {
	type numbered struct {
		n   int64
		acc domain.Account
	}
	var nums []numbered
	for _, a := range accounts {
		if n, ok := idNumber(a.AccountID); ok {
			nums = append(nums, numbered{n: n, acc: a})
		}
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i].n < nums[j].n })

	var groups [][]domain.Account
	for i := 0; i+size <= len(nums); i++ {
		if nums[i+size-1].n-nums[i].n > maxSequentialGap {
			continue
		}
		g := make([]domain.Account, size)
		for j := 0; j < size; j++ {
			g[j] = nums[i+j].acc
		}
		groups = append(groups, g)
	}
	return groups
}

// idNumber extracts the trailing digits of an account id.
func idNumber(id string) (int64, bool) {
	end := len(id)
	start := end
	for start > 0 && unicode.IsDigit(rune(id[start-1])) {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.ParseInt(id[start:end], 10, 64)
	return n, err == nil
}

// selectRing picks size related accounts. An empty relation tries every
// relationship in random order. Falls back to a random ring.
func selectRing(rng *rand.Rand, accounts []domain.Account, relation string, size int) ([]domain.Account, string) {
	tries := []string{relation}
	if relation == "" {
		tries = append([]string(nil), relationships...)
		rng.Shuffle(len(tries), func(i, j int) { tries[i], tries[j] = tries[j], tries[i] })
	}

	for _, rel := range tries {
		groups := relatedGroups(accounts, rel, size)
		if len(groups) == 0 {
			continue
		}
		g := groups[rng.IntN(len(groups))]
		members := append([]domain.Account(nil), g...)
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		return members[:size], rel
	}

	members := append([]domain.Account(nil), accounts...)
	rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
	if size > len(members) {
		size = len(members)
	}
	return members[:size], RelationRandom
}
