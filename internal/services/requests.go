package services

import (
	"tradepulse/internal/analytics"
	"tradepulse/internal/dataset"
)

// AggregateRequest asks for a grouped reduction of the filtered dataset.
type AggregateRequest struct {
	Filters dataset.Selection `json:"filters"`
	GroupBy []string          `json:"group_by" validate:"required,min=1,dive,required"`
	Reduce  dataset.Reduction `json:"reduce" validate:"required,oneof=sum mean"`
}

// PivotRequest asks for a two-key matrix of the filtered dataset.
type PivotRequest struct {
	Filters   dataset.Selection `json:"filters"`
	RowColumn string            `json:"row_column" validate:"required"`
	ColColumn string            `json:"col_column" validate:"required"`
	Reduce    dataset.Reduction `json:"reduce" validate:"required,oneof=sum mean"`
}

// DeriveRequest selects one derivation and its parameters. Zero-valued
// parameters fall back to the dashboard defaults, so a request carrying only
// the kind is always valid.
type DeriveRequest struct {
	Kind    analytics.Kind    `json:"kind" validate:"required,oneof=rolling_forecast threshold_alerts outliers comparison clusters decomposition extrapolation kpi correlation scenario calendar"`
	Filters dataset.Selection `json:"filters"`

	// Category names the column whose values are compared against each
	// other in the alert, outlier and cluster derivations.
	Category string `json:"category"`

	Window        int     `json:"window" validate:"omitempty,min=1"`
	Threshold     float64 `json:"threshold" validate:"omitempty,gte=0"`
	Contamination float64 `json:"contamination" validate:"omitempty,gt=0,lte=0.5"`
	Clusters      int     `json:"clusters" validate:"omitempty,min=1"`
	Cycle         int     `json:"cycle" validate:"omitempty,min=2"`
	Seed          int64   `json:"seed"`
	Horizon       int     `json:"horizon" validate:"omitempty,min=1"`

	Method analytics.TrendMethod        `json:"method" validate:"omitempty,oneof=linear ar"`
	Model  analytics.DecompositionModel `json:"model" validate:"omitempty,oneof=additive multiplicative"`

	GrowthFactor float64 `json:"growth_factor" validate:"omitempty,gt=0"`
}

// withDefaults fills zero-valued parameters from the dashboard defaults.
func (r DeriveRequest) withDefaults(forecastWindow int) DeriveRequest {
	if r.Category == "" {
		r.Category = dataset.ColReporter
	}
	if r.Window == 0 {
		r.Window = forecastWindow
	}
	if r.Window == 0 {
		r.Window = analytics.DefaultRollingWindow
	}
	if r.Threshold == 0 {
		r.Threshold = analytics.DefaultAlertThreshold
	}
	if r.Contamination == 0 {
		r.Contamination = analytics.DefaultContamination
	}
	if r.Clusters == 0 {
		r.Clusters = analytics.DefaultClusters
	}
	if r.Cycle == 0 {
		r.Cycle = analytics.DefaultCycle
	}
	if r.Seed == 0 {
		r.Seed = analytics.DefaultSeed
	}
	if r.Horizon == 0 {
		r.Horizon = analytics.DefaultHorizon
	}
	if r.Method == "" {
		r.Method = analytics.TrendLinear
	}
	if r.Model == "" {
		r.Model = analytics.ModelAdditive
	}
	if r.GrowthFactor == 0 {
		r.GrowthFactor = 1.0
	}
	return r
}

// DeriveResult wraps a derivation output with its kind tag so clients can
// decode the payload without guessing.
type DeriveResult struct {
	Kind   analytics.Kind `json:"kind"`
	Result interface{}    `json:"result"`
}

// DatasetInfo describes the currently loaded dataset.
type DatasetInfo struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	Rows       int      `json:"rows"`
	Columns    []string `json:"columns"`
	Periodless bool     `json:"periodless"`
	LoadedAt   string   `json:"loaded_at"`
}

// FilterOptions lists the distinct values available per filter column,
// months in calendar order.
type FilterOptions struct {
	Reporters []string `json:"reporters"`
	Partners  []string `json:"partners"`
	Flows     []string `json:"flows"`
	Years     []string `json:"years"`
	Months    []string `json:"months"`
}
