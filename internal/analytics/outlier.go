package analytics

import (
	"math"
	"math/rand"
	"sort"

	"tradepulse/internal/dataset"
)

const (
	outlierTrees     = 100
	outlierSubsample = 256
)

// DetectOutliers fits an isolation-style detector to the latest period's
// per-category percentage changes and surfaces the most anomalous fraction
// of categories. The detector grows randomized trees, so the seed is part of
// the contract: the same seed over identical input flags identical
// categories.
func DetectOutliers(p *dataset.Pivot, contamination float64, seed int64) OutlierResult {
	if contamination <= 0 || contamination > 0.5 {
		contamination = DefaultContamination
	}
	res := OutlierResult{Contamination: contamination, Seed: seed}

	changes, latest, ok := LatestChanges(p)
	if !ok || len(changes) < 2 {
		res.Insufficient = true
		return res
	}
	res.LatestPeriod = latest

	// Deterministic category order before any randomness is consumed.
	cats := make([]string, 0, len(changes))
	for c := range changes {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	values := make([]float64, len(cats))
	for i, c := range cats {
		values[i] = clampInf(changes[c])
	}

	scores := isolationScores(values, rand.New(rand.NewSource(seed)))
	res.Scores = make(map[string]float64, len(cats))
	for i, c := range cats {
		res.Scores[c] = scores[i]
	}

	flagCount := int(math.Ceil(contamination * float64(len(cats))))
	if flagCount < 1 {
		flagCount = 1
	}
	order := make([]int, len(cats))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return cats[order[a]] < cats[order[b]]
	})
	for _, idx := range order[:flagCount] {
		res.Flagged = append(res.Flagged, Alert{Category: cats[idx], PctChange: changes[cats[idx]]})
	}
	sort.Slice(res.Flagged, func(i, j int) bool { return res.Flagged[i].Category < res.Flagged[j].Category })
	return res
}

// clampInf caps the infinities produced by zero-base percentage changes so
// split points stay finite. The magnitude only has to dwarf any realistic
// change.
func clampInf(v float64) float64 {
	const limit = 1e9
	if math.IsInf(v, 1) {
		return limit
	}
	if math.IsInf(v, -1) {
		return -limit
	}
	return v
}

// isolationScores returns per-point anomaly scores in [0, 1]. Points that
// random axis splits isolate quickly score near 1.
func isolationScores(values []float64, rng *rand.Rand) []float64 {
	n := len(values)
	sample := n
	if sample > outlierSubsample {
		sample = outlierSubsample
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample)))) + 1

	// With subsampling a point only accumulates depth in the trees whose
	// sample contains it, so each point averages over its own tree count.
	pathSums := make([]float64, n)
	counts := make([]float64, n)
	idx := make([]int, n)
	for t := 0; t < outlierTrees; t++ {
		for i := range idx {
			idx[i] = i
		}
		rng.Shuffle(n, func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		tree := idx[:sample]

		depths := make(map[int]float64, sample)
		isolate(values, append([]int(nil), tree...), 0, maxDepth, rng, depths)
		for i, d := range depths {
			pathSums[i] += d
			counts[i]++
		}
	}

	norm := avgPathLength(float64(sample))
	scores := make([]float64, n)
	for i := range scores {
		if counts[i] == 0 {
			// Never sampled in any tree: no evidence either way.
			scores[i] = 0.5
			continue
		}
		mean := pathSums[i] / counts[i]
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores
}

// isolate recursively partitions points with uniform random split values,
// recording the depth at which each point ends up alone (or the adjusted
// depth when the limit is hit).
func isolate(values []float64, pts []int, depth, maxDepth int, rng *rand.Rand, depths map[int]float64) {
	if len(pts) == 0 {
		return
	}
	if len(pts) == 1 {
		depths[pts[0]] = float64(depth)
		return
	}
	lo, hi := values[pts[0]], values[pts[0]]
	for _, i := range pts[1:] {
		if values[i] < lo {
			lo = values[i]
		}
		if values[i] > hi {
			hi = values[i]
		}
	}
	if depth >= maxDepth || lo == hi {
		adj := float64(depth) + avgPathLength(float64(len(pts)))
		for _, i := range pts {
			depths[i] = adj
		}
		return
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []int
	for _, i := range pts {
		if values[i] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		// Degenerate split; retry at the same depth costs nothing because
		// the range is non-empty, but guard against pathological floats.
		adj := float64(depth) + avgPathLength(float64(len(pts)))
		for _, i := range pts {
			depths[i] = adj
		}
		return
	}
	isolate(values, left, depth+1, maxDepth, rng, depths)
	isolate(values, right, depth+1, maxDepth, rng, depths)
}

// avgPathLength is the expected unsuccessful-search path length of a binary
// search tree with n nodes, the standard isolation normalizer.
func avgPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	const euler = 0.5772156649015329
	return 2*(math.Log(n-1)+euler) - 2*(n-1)/n
}
