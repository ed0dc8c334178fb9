package analytics

import (
	"encoding/json"
	"math"

	"tradepulse/internal/dataset"
)

// JSONFloat marshals the float values encoding/json refuses: NaN becomes
// null (an absent observation) and infinities become signed "inf" strings
// (a change measured against a zero base).
type JSONFloat float64

// MarshalJSON implements json.Marshaler.
func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	}
	return json.Marshal(v)
}

func jsonFloats(vals []float64) []JSONFloat {
	out := make([]JSONFloat, len(vals))
	for i, v := range vals {
		out[i] = JSONFloat(v)
	}
	return out
}

// MarshalJSON renders the zero-base infinities as strings.
func (a Alert) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category  string    `json:"category"`
		PctChange JSONFloat `json:"pct_change"`
	}{a.Category, JSONFloat(a.PctChange)})
}

// MarshalJSON renders the NaN edges of the trend component as nulls.
func (r DecompositionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Model        DecompositionModel `json:"model"`
		Cycle        int                `json:"cycle"`
		Observed     Series             `json:"observed"`
		Trend        []JSONFloat        `json:"trend"`
		Seasonal     []JSONFloat        `json:"seasonal"`
		Residual     []JSONFloat        `json:"residual"`
		Insufficient bool               `json:"insufficient"`
	}{r.Model, r.Cycle, r.Observed, jsonFloats(r.Trend), jsonFloats(r.Seasonal), jsonFloats(r.Residual), r.Insufficient})
}

// MarshalJSON renders undefined correlations (no variance, too few pairs)
// as nulls.
func (r CorrelationResult) MarshalJSON() ([]byte, error) {
	matrix := make([][]JSONFloat, len(r.Matrix))
	for i, row := range r.Matrix {
		matrix[i] = jsonFloats(row)
	}
	return json.Marshal(struct {
		Columns []string      `json:"columns"`
		Matrix  [][]JSONFloat `json:"matrix"`
	}{r.Columns, matrix})
}

// MarshalJSON guards against non-finite confidence bounds.
func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period dataset.Period `json:"period"`
		Value  JSONFloat      `json:"value"`
		Lower  JSONFloat      `json:"lower"`
		Upper  JSONFloat      `json:"upper"`
	}{p.Period, JSONFloat(p.Value), JSONFloat(p.Lower), JSONFloat(p.Upper)})
}
