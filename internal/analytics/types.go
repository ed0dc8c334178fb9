package analytics

import (
	"tradepulse/internal/dataset"
)

// Point is one observation of a period-ordered series.
type Point struct {
	Period dataset.Period `json:"period"`
	Value  float64        `json:"value"`
}

// Series is a chronologically ordered sequence of observations.
type Series []Point

// Values returns the raw observations in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Kind names one derivation variant. Each kind has its own parameter struct
// and one implementation; the service dispatches on the tag rather than on
// free text.
type Kind string

const (
	KindRollingForecast Kind = "rolling_forecast"
	KindThresholdAlerts Kind = "threshold_alerts"
	KindOutliers        Kind = "outliers"
	KindComparison      Kind = "comparison"
	KindClusters        Kind = "clusters"
	KindDecomposition   Kind = "decomposition"
	KindExtrapolation   Kind = "extrapolation"
	KindKPI             Kind = "kpi"
	KindCorrelation     Kind = "correlation"
	KindScenario        Kind = "scenario"
	KindCalendar        Kind = "calendar"
)

// Defaults mirrored from the dashboard controls.
const (
	DefaultRollingWindow  = 3
	DefaultAlertThreshold = 20.0
	DefaultContamination  = 0.1
	DefaultClusters       = 3
	DefaultCycle          = 12
	DefaultSeed           = 42
	DefaultHorizon        = 1
)

// ForecastResult is the rolling-average forecast output. Insufficient marks
// the informational "not enough history yet" state; it is not an error.
type ForecastResult struct {
	Window       int     `json:"window"`
	History      Series  `json:"history"`
	Forecast     float64 `json:"forecast"`
	Insufficient bool    `json:"insufficient"`
}

// Alert flags one category whose latest period-over-period change met the
// threshold.
type Alert struct {
	Category  string  `json:"category"`
	PctChange float64 `json:"pct_change"`
}

// AlertsResult is the percentage-change threshold output.
type AlertsResult struct {
	Threshold    float64        `json:"threshold"`
	LatestPeriod dataset.Period `json:"latest_period"`
	Alerts       []Alert        `json:"alerts"`
	Insufficient bool           `json:"insufficient"`
}

// OutlierResult is the isolation-style detector output. With a fixed Seed the
// flags are identical across runs on identical input.
type OutlierResult struct {
	Contamination float64            `json:"contamination"`
	Seed          int64              `json:"seed"`
	LatestPeriod  dataset.Period     `json:"latest_period"`
	Flagged       []Alert            `json:"flagged"`
	Scores        map[string]float64 `json:"scores"`
	Insufficient  bool               `json:"insufficient"`
}

// ComparisonResult puts the threshold and outlier methods side by side over
// the same latest-period changes.
type ComparisonResult struct {
	Threshold AlertsResult  `json:"threshold"`
	Outliers  OutlierResult `json:"outliers"`
	// Both lists the categories flagged by the two methods at once.
	Both []string `json:"both"`
}

// ClusterResult is the centroid clustering output. Fallback reports that
// fewer points than clusters existed, in which case every point is assigned
// cluster 0.
type ClusterResult struct {
	K           int            `json:"k"`
	Assignments map[string]int `json:"assignments"`
	Centroids   []float64      `json:"centroids"`
	Fallback    bool           `json:"fallback"`
}

// DecompositionModel selects additive or multiplicative decomposition.
type DecompositionModel string

const (
	ModelAdditive       DecompositionModel = "additive"
	ModelMultiplicative DecompositionModel = "multiplicative"
)

// DecompositionResult splits a series into trend, seasonal and residual
// components. Trend is NaN at the edges the centered moving average cannot
// reach.
type DecompositionResult struct {
	Model        DecompositionModel `json:"model"`
	Cycle        int                `json:"cycle"`
	Observed     Series             `json:"observed"`
	Trend        []float64          `json:"trend"`
	Seasonal     []float64          `json:"seasonal"`
	Residual     []float64          `json:"residual"`
	Insufficient bool               `json:"insufficient"`
}

// TrendMethod selects the extrapolation model.
type TrendMethod string

const (
	TrendLinear TrendMethod = "linear"
	TrendAR     TrendMethod = "ar"
)

// ForecastPoint is one extrapolated future value with an optional 95%
// confidence interval.
type ForecastPoint struct {
	Period dataset.Period `json:"period"`
	Value  float64        `json:"value"`
	Lower  float64        `json:"lower"`
	Upper  float64        `json:"upper"`
}

// ExtrapolationResult is the trend-model output.
type ExtrapolationResult struct {
	Method       TrendMethod     `json:"method"`
	Horizon      int             `json:"horizon"`
	History      Series          `json:"history"`
	Forecast     []ForecastPoint `json:"forecast"`
	Insufficient bool            `json:"insufficient"`
}

// KPIResult carries the headline numbers for the current dataset.
type KPIResult struct {
	TotalQuantity    float64 `json:"total_quantity"`
	PeriodCount      int     `json:"period_count"`
	AveragePerPeriod float64 `json:"average_per_period"`
}

// CorrelationResult is a symmetric Pearson correlation matrix over the
// numeric columns of the filtered table.
type CorrelationResult struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
}

// ScenarioResult scales the quantity column by a growth factor.
type ScenarioResult struct {
	GrowthFactor    float64 `json:"growth_factor"`
	BaseTotal       float64 `json:"base_total"`
	SimulatedTotal  float64 `json:"simulated_total"`
	SimulatedSeries Series  `json:"simulated_series"`
}
