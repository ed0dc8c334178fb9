package analytics

// RollingForecast computes the single-step-ahead forecast as the trailing
// mean of the last window points of a period-ordered series. Fewer than
// window points is the informational insufficient-data state, not an error:
// with exactly window points the forecast equals the mean of all of them.
func RollingForecast(series Series, window int) ForecastResult {
	if window <= 0 {
		window = DefaultRollingWindow
	}
	res := ForecastResult{Window: window, History: series}
	if len(series) < window {
		res.Insufficient = true
		return res
	}
	sum := 0.0
	for _, p := range series[len(series)-window:] {
		sum += p.Value
	}
	res.Forecast = sum / float64(window)
	return res
}
