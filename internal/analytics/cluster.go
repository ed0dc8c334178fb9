package analytics

import (
	"math"
	"sort"
)

const clusterMaxIterations = 100

// Cluster partitions categories into k groups by their aggregated numeric
// value using one-dimensional k-means. Centroids are seeded at evenly spaced
// quantiles of the sorted values, which keeps runs deterministic and
// well-separated; Lloyd iterations then refine them.
//
// With fewer data points than clusters every point is assigned cluster 0 and
// Fallback is set; this is never a failure.
func Cluster(values map[string]float64, k int) ClusterResult {
	if k <= 0 {
		k = DefaultClusters
	}
	res := ClusterResult{K: k, Assignments: make(map[string]int, len(values))}

	cats := make([]string, 0, len(values))
	for c := range values {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	if len(cats) < k {
		for _, c := range cats {
			res.Assignments[c] = 0
		}
		if len(cats) > 0 {
			sum := 0.0
			for _, c := range cats {
				sum += values[c]
			}
			res.Centroids = []float64{sum / float64(len(cats))}
		}
		res.Fallback = true
		return res
	}

	points := make([]float64, len(cats))
	for i, c := range cats {
		points[i] = values[c]
	}
	sorted := append([]float64(nil), points...)
	sort.Float64s(sorted)

	centroids := make([]float64, k)
	for i := 0; i < k; i++ {
		pos := int((float64(i) + 0.5) / float64(k) * float64(len(sorted)))
		if pos >= len(sorted) {
			pos = len(sorted) - 1
		}
		centroids[i] = sorted[pos]
	}

	assign := make([]int, len(points))
	for iter := 0; iter < clusterMaxIterations; iter++ {
		changed := false
		for i, v := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := math.Abs(v - centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range points {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
		if !changed {
			break
		}
	}

	for i, c := range cats {
		res.Assignments[c] = assign[i]
	}
	res.Centroids = centroids
	return res
}
