package analytics

import (
	"math"

	"tradepulse/internal/dataset"
)

// zCritical95 approximates the 95% interval multiplier. Sample sizes here
// are small enough that a t-distribution would be tighter, but the interval
// is advisory, not inferential.
const zCritical95 = 1.96

// Extrapolate fits a trend model to a period-ordered series and projects it
// horizon periods ahead with a 95% confidence band.
//
// TrendLinear regresses the values on their time index; TrendAR fits a
// first-order autoregression and forecasts recursively, with the band
// widening as the forecast leans on its own predictions. Linear needs three
// points, AR needs four; anything less is the insufficient state.
func Extrapolate(series Series, horizon int, method TrendMethod) ExtrapolationResult {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if method == "" {
		method = TrendLinear
	}
	res := ExtrapolationResult{Method: method, Horizon: horizon, History: series}

	switch method {
	case TrendAR:
		if len(series) < 4 {
			res.Insufficient = true
			return res
		}
		res.Forecast = arForecast(series, horizon)
	default:
		if len(series) < 3 {
			res.Insufficient = true
			return res
		}
		res.Forecast = linearForecast(series, horizon)
	}
	return res
}

// linearForecast runs ordinary least squares on (index, value) pairs and
// extends the fitted line, with the prediction interval growing as the
// forecast index moves away from the sample mean.
func linearForecast(series Series, horizon int) []ForecastPoint {
	n := float64(len(series))
	values := series.Values()

	var sumX, sumY float64
	for i, y := range values {
		sumX += float64(i)
		sumY += y
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for i, y := range values {
		dx := float64(i) - meanX
		sxx += dx * dx
		sxy += dx * (y - meanY)
	}
	slope := 0.0
	if sxx != 0 {
		slope = sxy / sxx
	}
	intercept := meanY - slope*meanX

	// Residual standard error.
	var sse float64
	for i, y := range values {
		r := y - (intercept + slope*float64(i))
		sse += r * r
	}
	se := 0.0
	if n > 2 {
		se = math.Sqrt(sse / (n - 2))
	}

	out := make([]ForecastPoint, horizon)
	last := series[len(series)-1].Period
	for h := 1; h <= horizon; h++ {
		x := float64(len(series) - 1 + h)
		fit := intercept + slope*x
		dx := x - meanX
		width := 0.0
		if se > 0 && sxx > 0 {
			width = zCritical95 * se * math.Sqrt(1+1/n+dx*dx/sxx)
		}
		out[h-1] = ForecastPoint{
			Period: nextPeriod(last, h),
			Value:  fit,
			Lower:  fit - width,
			Upper:  fit + width,
		}
	}
	return out
}

// arForecast fits y[t] = c + phi*y[t-1] by least squares and iterates it
// forward. The interval multiplies out the accumulated coefficient powers,
// the usual AR(1) forecast-variance expansion.
func arForecast(series Series, horizon int) []ForecastPoint {
	values := series.Values()
	n := len(values) - 1 // regression pairs

	var sumX, sumY float64
	for t := 1; t <= n; t++ {
		sumX += values[t-1]
		sumY += values[t]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var sxx, sxy float64
	for t := 1; t <= n; t++ {
		dx := values[t-1] - meanX
		sxx += dx * dx
		sxy += dx * (values[t] - meanY)
	}
	phi := 0.0
	if sxx != 0 {
		phi = sxy / sxx
	}
	c := meanY - phi*meanX

	var sse float64
	for t := 1; t <= n; t++ {
		r := values[t] - (c + phi*values[t-1])
		sse += r * r
	}
	se := 0.0
	if n > 2 {
		se = math.Sqrt(sse / float64(n-2))
	}

	out := make([]ForecastPoint, horizon)
	last := series[len(series)-1].Period
	prev := values[len(values)-1]
	variance := 0.0
	for h := 1; h <= horizon; h++ {
		fit := c + phi*prev
		variance = variance*phi*phi + se*se
		width := zCritical95 * math.Sqrt(variance)
		out[h-1] = ForecastPoint{
			Period: nextPeriod(last, h),
			Value:  fit,
			Lower:  fit - width,
			Upper:  fit + width,
		}
		prev = fit
	}
	return out
}

func nextPeriod(p dataset.Period, h int) dataset.Period {
	key := p.Key.AddDate(0, h, 0)
	return dataset.NewPeriod(key.Year(), key.Month())
}
