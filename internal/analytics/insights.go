package analytics

import (
	"math"

	"tradepulse/internal/dataset"
)

// KPIs computes the headline numbers over a period-aggregated series: total
// quantity and the average per period. Missing values were already excluded
// upstream by the aggregation.
func KPIs(series Series) KPIResult {
	res := KPIResult{PeriodCount: len(series)}
	for _, p := range series {
		res.TotalQuantity += p.Value
	}
	if len(series) > 0 {
		res.AveragePerPeriod = res.TotalQuantity / float64(len(series))
	}
	return res
}

// Scenario scales the series by a growth factor, the what-if control from
// the dashboards. The input series is left untouched.
func Scenario(series Series, growthFactor float64) ScenarioResult {
	if growthFactor <= 0 {
		growthFactor = 1
	}
	res := ScenarioResult{
		GrowthFactor:    growthFactor,
		SimulatedSeries: make(Series, len(series)),
	}
	for i, p := range series {
		res.BaseTotal += p.Value
		scaled := p.Value * growthFactor
		res.SimulatedTotal += scaled
		res.SimulatedSeries[i] = Point{Period: p.Period, Value: scaled}
	}
	return res
}

// Correlation builds the pairwise Pearson matrix over the table's numeric
// columns. Rows where either of a pair's values is missing are skipped for
// that pair; a column with no variance correlates NaN against everything
// except itself.
func Correlation(t *dataset.Table) CorrelationResult {
	var cols []string
	for _, name := range t.Columns() {
		if isNumericColumn(t, name) {
			cols = append(cols, name)
		}
	}

	res := CorrelationResult{Columns: cols, Matrix: make([][]float64, len(cols))}
	for i := range res.Matrix {
		res.Matrix[i] = make([]float64, len(cols))
	}
	for i, a := range cols {
		for j, b := range cols {
			switch {
			case i == j:
				res.Matrix[i][j] = 1
			case j < i:
				res.Matrix[i][j] = res.Matrix[j][i]
			default:
				res.Matrix[i][j] = pearson(t, a, b)
			}
		}
	}
	return res
}

func isNumericColumn(t *dataset.Table, name string) bool {
	sawNumber := false
	for _, v := range t.Column(name) {
		if v.IsMissing() {
			continue
		}
		if v.Kind == dataset.ValuePeriod {
			return false
		}
		if _, ok := v.Float(); !ok {
			return false
		}
		sawNumber = true
	}
	return sawNumber
}

func pearson(t *dataset.Table, a, b string) float64 {
	av := t.Column(a)
	bv := t.Column(b)

	var xs, ys []float64
	for i := range av {
		x, okX := av[i].Float()
		y, okY := bv[i].Float()
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}
