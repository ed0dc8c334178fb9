package services

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/analytics"
	"tradepulse/internal/config"
	"tradepulse/internal/dataset"
	apperrors "tradepulse/internal/errors"
)

const sampleCSV = `Reporter,Partner,Flow,Year,Month,Tons
Kenya,Uganda,Export,2012,Jan,10
Kenya,Uganda,Export,2012,Feb,20
Kenya,Uganda,Export,2012,Mar,30
Tanzania,Uganda,Export,2012,Jan,5
Tanzania,Uganda,Export,2012,Feb,15
Tanzania,Uganda,Export,2012,Mar,25
`

func newTestService(t *testing.T) *PipelineService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewPipelineService(config.Default(), logger, nil)
	require.NoError(t, err)
	return svc
}

func loadSample(t *testing.T, svc *PipelineService) DatasetInfo {
	t.Helper()
	info, err := svc.LoadUpload(context.Background(), strings.NewReader(sampleCSV), "trades.csv")
	require.NoError(t, err)
	return info
}

func TestLoadUpload_NormalizesAndReports(t *testing.T) {
	svc := newTestService(t)
	info := loadSample(t, svc)

	assert.Equal(t, 6, info.Rows)
	assert.Contains(t, info.Columns, dataset.ColPeriod)
	assert.False(t, info.Periodless)
	assert.NotEmpty(t, info.ID)
}

func TestDerive_RequiresLoadedDataset(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Derive(context.Background(), DeriveRequest{Kind: analytics.KindKPI})
	assert.ErrorIs(t, err, apperrors.ErrDatasetNotLoaded)
}

func TestReset_DropsDataset(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	svc.Reset(context.Background())

	_, err := svc.Info()
	assert.ErrorIs(t, err, apperrors.ErrDatasetNotLoaded)
}

func TestAggregate_SumPerReporter(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Aggregate(context.Background(), AggregateRequest{
		GroupBy: []string{dataset.ColReporter},
		Reduce:  dataset.ReduceSum,
	})
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "Kenya", result.Groups[0].Keys[0].String())
	assert.InDelta(t, 60.0, result.Groups[0].Value, 1e-9)
	assert.Equal(t, "Tanzania", result.Groups[1].Keys[0].String())
	assert.InDelta(t, 45.0, result.Groups[1].Value, 1e-9)
}

func TestAggregate_FilterRestrictsRows(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Aggregate(context.Background(), AggregateRequest{
		Filters: dataset.Selection{dataset.ColReporter: {"Kenya"}},
		GroupBy: []string{dataset.ColReporter},
		Reduce:  dataset.ReduceSum,
	})
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	assert.InDelta(t, 60.0, result.Groups[0].Value, 1e-9)
}

func TestAggregate_RejectsInvalidReduce(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	_, err := svc.Aggregate(context.Background(), AggregateRequest{
		GroupBy: []string{dataset.ColReporter},
		Reduce:  dataset.Reduction("median"),
	})
	assert.Error(t, err)
}

func TestDerive_RollingForecast(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Derive(context.Background(), DeriveRequest{
		Kind:   analytics.KindRollingForecast,
		Window: 3,
	})
	require.NoError(t, err)

	forecast, ok := result.Result.(analytics.ForecastResult)
	require.True(t, ok)
	assert.False(t, forecast.Insufficient)
	// Period totals are 15, 35, 55; their mean is the forecast.
	assert.InDelta(t, 35.0, forecast.Forecast, 1e-9)
}

func TestDerive_InsufficientHistoryIsAResultNotAnError(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Derive(context.Background(), DeriveRequest{
		Kind:   analytics.KindRollingForecast,
		Window: 12,
	})
	require.NoError(t, err)

	forecast, ok := result.Result.(analytics.ForecastResult)
	require.True(t, ok)
	assert.True(t, forecast.Insufficient)
}

func TestDerive_CachesPerDatasetGeneration(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	req := DeriveRequest{Kind: analytics.KindKPI}
	first, err := svc.Derive(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Derive(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, first, second, "expected the cached result on the second call")

	// A reload changes the generation, so the cache misses.
	loadSample(t, svc)
	third, err := svc.Derive(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestDerive_PeriodlessTableFailsFast(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.LoadUpload(context.Background(), strings.NewReader("Reporter,Tons\nKenya,10\n"), "bare.csv")
	require.NoError(t, err)

	_, derr := svc.Derive(context.Background(), DeriveRequest{Kind: analytics.KindRollingForecast})
	var se *dataset.SchemaError
	require.ErrorAs(t, derr, &se)
	assert.True(t, se.Periodless)
}

func TestDerive_KPI(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Derive(context.Background(), DeriveRequest{Kind: analytics.KindKPI})
	require.NoError(t, err)

	kpi, ok := result.Result.(analytics.KPIResult)
	require.True(t, ok)
	assert.InDelta(t, 105.0, kpi.TotalQuantity, 1e-9)
	assert.Equal(t, 3, kpi.PeriodCount)
	assert.InDelta(t, 35.0, kpi.AveragePerPeriod, 1e-9)
}

func TestDerive_CalendarPivotMonthsInCalendarOrder(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Derive(context.Background(), DeriveRequest{Kind: analytics.KindCalendar})
	require.NoError(t, err)

	pivot, ok := result.Result.(*dataset.Pivot)
	require.True(t, ok)
	require.Len(t, pivot.ColKeys, 3)
	assert.Equal(t, "Jan", pivot.ColKeys[0].String())
	assert.Equal(t, "Feb", pivot.ColKeys[1].String())
	assert.Equal(t, "Mar", pivot.ColKeys[2].String())

	row, ok := pivot.Row("2012")
	require.True(t, ok)
	assert.InDelta(t, 15.0, row[0], 1e-9)
	assert.InDelta(t, 35.0, row[1], 1e-9)
	assert.InDelta(t, 55.0, row[2], 1e-9)
}

func TestDerive_ScenarioScalesTotals(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	result, err := svc.Derive(context.Background(), DeriveRequest{
		Kind:         analytics.KindScenario,
		GrowthFactor: 1.1,
	})
	require.NoError(t, err)

	scenario, ok := result.Result.(analytics.ScenarioResult)
	require.True(t, ok)
	assert.InDelta(t, 105.0, scenario.BaseTotal, 1e-9)
	assert.InDelta(t, 115.5, scenario.SimulatedTotal, 1e-9)
}

func TestOptions_MonthsInCalendarOrder(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	opts, err := svc.Options()
	require.NoError(t, err)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, opts.Months)
	assert.ElementsMatch(t, []string{"Kenya", "Tanzania"}, opts.Reporters)
}

func TestPreview_LimitsRows(t *testing.T) {
	svc := newTestService(t)
	loadSample(t, svc)

	preview, err := svc.Preview(2)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.Len())
}

func TestMissingValuesStayExcluded(t *testing.T) {
	svc := newTestService(t)
	csv := "Reporter,Partner,Flow,Year,Month,Tons\n" +
		"Kenya,Uganda,Export,2012,Jan,10\n" +
		"Kenya,Uganda,Export,2012,Feb,\n" +
		"Kenya,Uganda,Export,2012,Mar,40\n"
	_, err := svc.LoadUpload(context.Background(), strings.NewReader(csv), "gaps.csv")
	require.NoError(t, err)

	sum, err := svc.Aggregate(context.Background(), AggregateRequest{
		GroupBy: []string{dataset.ColReporter},
		Reduce:  dataset.ReduceSum,
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, sum.Groups[0].Value, 1e-9)

	mean, err := svc.Aggregate(context.Background(), AggregateRequest{
		GroupBy: []string{dataset.ColReporter},
		Reduce:  dataset.ReduceMean,
	})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, mean.Groups[0].Value, 1e-9)
	assert.False(t, math.IsNaN(mean.Groups[0].Value))
}
