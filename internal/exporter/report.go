package exporter

import (
	"io"
	"sort"

	"tradepulse/internal/analytics"
)

// Derivation exports are flat CSV renderings of the analytics results, meant
// for download buttons next to each chart.

// WriteForecast exports the rolling forecast history plus the forecast row.
func (c *CSVWriter) WriteForecast(w io.Writer, r *analytics.ForecastResult) error {
	records := make([][]string, 0, len(r.History)+1)
	for _, p := range r.History {
		records = append(records, []string{p.Period.Label, formatFloat(p.Value), "observed"})
	}
	if !r.Insufficient {
		records = append(records, []string{"next", formatFloat(r.Forecast), "forecast"})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Period", "Value", "Kind"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteAlerts exports threshold alerts, one row per flagged category.
func (c *CSVWriter) WriteAlerts(w io.Writer, r *analytics.AlertsResult) error {
	records := make([][]string, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		records = append(records, []string{a.Category, formatFloat(a.PctChange), r.LatestPeriod.Label})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Category", "PctChange", "Period"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteOutliers exports the outlier scores with a flag column. Flagged rows
// come first, the rest in sorted category order, so repeated exports of the
// same result are byte-identical.
func (c *CSVWriter) WriteOutliers(w io.Writer, r *analytics.OutlierResult) error {
	flagged := make(map[string]bool, len(r.Flagged))
	for _, a := range r.Flagged {
		flagged[a.Category] = true
	}

	rest := make([]string, 0, len(r.Scores))
	for category := range r.Scores {
		if !flagged[category] {
			rest = append(rest, category)
		}
	}
	sort.Strings(rest)

	records := make([][]string, 0, len(r.Scores))
	for _, a := range r.Flagged {
		records = append(records, []string{a.Category, formatFloat(a.PctChange), formatFloat(r.Scores[a.Category]), "true"})
	}
	for _, category := range rest {
		records = append(records, []string{category, "", formatFloat(r.Scores[category]), "false"})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Category", "PctChange", "Score", "Flagged"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteExtrapolation exports history and forecast with confidence bounds.
func (c *CSVWriter) WriteExtrapolation(w io.Writer, r *analytics.ExtrapolationResult) error {
	records := make([][]string, 0, len(r.History)+len(r.Forecast))
	for _, p := range r.History {
		records = append(records, []string{p.Period.Label, formatFloat(p.Value), "", "", "observed"})
	}
	for _, f := range r.Forecast {
		records = append(records, []string{f.Period.Label, formatFloat(f.Value), formatFloat(f.Lower), formatFloat(f.Upper), "forecast"})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Period", "Value", "Lower", "Upper", "Kind"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteClusters exports cluster assignments in the caller-supplied category
// order, so repeated exports of the same result are byte-identical.
func (c *CSVWriter) WriteClusters(w io.Writer, r *analytics.ClusterResult, order []string) error {
	records := make([][]string, 0, len(order))
	for _, category := range order {
		cluster, ok := r.Assignments[category]
		if !ok {
			continue
		}
		records = append(records, []string{category, formatInt(cluster)})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Category", "Cluster"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteDecomposition exports the component columns alongside the observations.
func (c *CSVWriter) WriteDecomposition(w io.Writer, r *analytics.DecompositionResult) error {
	records := make([][]string, 0, len(r.Observed))
	for i, p := range r.Observed {
		records = append(records, []string{
			p.Period.Label,
			formatFloat(p.Value),
			formatFloat(r.Trend[i]),
			formatFloat(r.Seasonal[i]),
			formatFloat(r.Residual[i]),
		})
	}
	return c.WriteCSV(w, WriteOptions{
		Headers:   []string{"Period", "Observed", "Trend", "Seasonal", "Residual"},
		Records:   records,
		BOMPrefix: true,
	})
}
