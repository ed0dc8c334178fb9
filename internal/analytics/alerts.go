package analytics

import (
	"math"
	"sort"

	"tradepulse/internal/dataset"
)

// LatestChanges computes each category's period-over-period percentage
// change at the latest period of a category x period pivot. A zero previous
// value with a non-zero latest one comes out as +Inf / -Inf (an appearance
// from nothing always clears any finite threshold); two zeros is a zero
// change. Categories without both of the last two observations are skipped.
func LatestChanges(p *dataset.Pivot) (map[string]float64, dataset.Period, bool) {
	if len(p.ColKeys) < 2 {
		return nil, dataset.Period{}, false
	}
	last := len(p.ColKeys) - 1
	latest := p.ColKeys[last].Period

	changes := make(map[string]float64, len(p.RowKeys))
	for i, rk := range p.RowKeys {
		prev, cur := p.Cells[i][last-1], p.Cells[i][last]
		if math.IsNaN(prev) || math.IsNaN(cur) {
			continue
		}
		var pct float64
		switch {
		case prev == 0 && cur == 0:
			pct = 0
		case prev == 0:
			pct = math.Inf(1)
			if cur < 0 {
				pct = math.Inf(-1)
			}
		default:
			pct = (cur - prev) / math.Abs(prev) * 100
		}
		changes[rk.String()] = pct
	}
	return changes, latest, true
}

// ThresholdAlerts flags the categories whose latest absolute percentage
// change meets or exceeds the threshold. Ties at exactly the threshold are
// included. Fewer than two periods of data is the insufficient state.
func ThresholdAlerts(p *dataset.Pivot, threshold float64) AlertsResult {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	res := AlertsResult{Threshold: threshold}

	changes, latest, ok := LatestChanges(p)
	if !ok {
		res.Insufficient = true
		return res
	}
	res.LatestPeriod = latest

	for cat, pct := range changes {
		if math.Abs(pct) >= threshold {
			res.Alerts = append(res.Alerts, Alert{Category: cat, PctChange: pct})
		}
	}
	sort.Slice(res.Alerts, func(i, j int) bool {
		ai, aj := res.Alerts[i], res.Alerts[j]
		if mi, mj := math.Abs(ai.PctChange), math.Abs(aj.PctChange); mi != mj {
			return mi > mj
		}
		return ai.Category < aj.Category
	})
	return res
}

// Compare runs both alert methods on the same pivot and reports the overlap.
func Compare(p *dataset.Pivot, threshold, contamination float64, seed int64) ComparisonResult {
	res := ComparisonResult{
		Threshold: ThresholdAlerts(p, threshold),
		Outliers:  DetectOutliers(p, contamination, seed),
	}
	flagged := make(map[string]bool, len(res.Outliers.Flagged))
	for _, o := range res.Outliers.Flagged {
		flagged[o.Category] = true
	}
	for _, a := range res.Threshold.Alerts {
		if flagged[a.Category] {
			res.Both = append(res.Both, a.Category)
		}
	}
	sort.Strings(res.Both)
	return res
}
