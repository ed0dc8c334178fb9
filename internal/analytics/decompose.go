package analytics

import (
	"math"
)

// Decompose splits a period-ordered series into trend, seasonal and residual
// components over a cycle of p observations. The trend is a centered moving
// average (2xp for even cycles), seasonal indices are the per-position means
// of the detrended series normalized to sum zero (additive) or average one
// (multiplicative), and the residual is whatever neither explains.
//
// Fewer than two full cycles is the insufficient-data state: there is no way
// to tell season from trend with less.
func Decompose(series Series, cycle int, model DecompositionModel) DecompositionResult {
	if cycle <= 1 {
		cycle = DefaultCycle
	}
	if model == "" {
		model = ModelAdditive
	}
	res := DecompositionResult{Model: model, Cycle: cycle, Observed: series}
	n := len(series)
	if n < 2*cycle {
		res.Insufficient = true
		return res
	}

	obs := series.Values()
	trend := centeredMovingAverage(obs, cycle)

	// Per-position means of the detrended values.
	sums := make([]float64, cycle)
	counts := make([]int, cycle)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			continue
		}
		var d float64
		if model == ModelMultiplicative {
			if trend[i] == 0 {
				continue
			}
			d = obs[i] / trend[i]
		} else {
			d = obs[i] - trend[i]
		}
		pos := i % cycle
		sums[pos] += d
		counts[pos]++
	}

	indices := make([]float64, cycle)
	for i := range indices {
		if counts[i] > 0 {
			indices[i] = sums[i] / float64(counts[i])
		} else if model == ModelMultiplicative {
			indices[i] = 1
		}
	}
	normalizeIndices(indices, model)

	seasonal := make([]float64, n)
	residual := make([]float64, n)
	for i := 0; i < n; i++ {
		seasonal[i] = indices[i%cycle]
		if math.IsNaN(trend[i]) {
			residual[i] = math.NaN()
			continue
		}
		if model == ModelMultiplicative {
			denom := trend[i] * seasonal[i]
			if denom == 0 {
				residual[i] = math.NaN()
			} else {
				residual[i] = obs[i] / denom
			}
		} else {
			residual[i] = obs[i] - trend[i] - seasonal[i]
		}
	}

	res.Trend = trend
	res.Seasonal = seasonal
	res.Residual = residual
	return res
}

// centeredMovingAverage smooths with a window of length cycle, using the
// standard 2xMA for even cycles so the window stays centered. Positions the
// window cannot reach are NaN.
func centeredMovingAverage(obs []float64, cycle int) []float64 {
	n := len(obs)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	half := cycle / 2
	if cycle%2 == 1 {
		for i := half; i < n-half; i++ {
			sum := 0.0
			for j := i - half; j <= i+half; j++ {
				sum += obs[j]
			}
			out[i] = sum / float64(cycle)
		}
		return out
	}

	// Even cycle: average of two offset windows, i.e. weights
	// 0.5, 1, ..., 1, 0.5 over cycle+1 points.
	for i := half; i < n-half; i++ {
		sum := 0.5*obs[i-half] + 0.5*obs[i+half]
		for j := i - half + 1; j <= i+half-1; j++ {
			sum += obs[j]
		}
		out[i] = sum / float64(cycle)
	}
	return out
}

func normalizeIndices(indices []float64, model DecompositionModel) {
	if model == ModelMultiplicative {
		sum := 0.0
		for _, v := range indices {
			sum += v
		}
		if sum == 0 {
			return
		}
		mean := sum / float64(len(indices))
		for i := range indices {
			indices[i] /= mean
		}
		return
	}
	sum := 0.0
	for _, v := range indices {
		sum += v
	}
	mean := sum / float64(len(indices))
	for i := range indices {
		indices[i] -= mean
	}
}
