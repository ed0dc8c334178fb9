package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable([]string{ColReporter, ColFlow, ColTons})
	rows := [][]Value{
		{TextValue("Kenya"), TextValue("Export"), Number(10)},
		{TextValue("Kenya"), TextValue("Export"), Number(20)},
		{TextValue("Kenya"), TextValue("Import"), Missing()},
		{TextValue("Uganda"), TextValue("Export"), Number(40)},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}
	return tbl
}

func TestAggregate_SumExcludesMissing(t *testing.T) {
	tbl := tradeTable(t)

	result, err := Aggregate(tbl, []string{ColReporter}, ColTons, ReduceSum)
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)

	// Missing contributes nothing, so Kenya sums to 30, not 30+0.
	assert.Equal(t, "Kenya", result.Groups[0].Keys[0].String())
	assert.Equal(t, 30.0, result.Groups[0].Value)
	assert.Equal(t, 2, result.Groups[0].Count)
	assert.Equal(t, 40.0, result.Groups[1].Value)
}

func TestAggregate_MeanDivisorSkipsMissing(t *testing.T) {
	tbl := tradeTable(t)

	result, err := Aggregate(tbl, []string{ColReporter}, ColTons, ReduceMean)
	require.NoError(t, err)

	// (10+20)/2, not (10+20+0)/3.
	assert.Equal(t, 15.0, result.Groups[0].Value)
}

func TestAggregate_AllMissingGroupReportsNaN(t *testing.T) {
	tbl := tradeTable(t)

	result, err := Aggregate(tbl, []string{ColReporter, ColFlow}, ColTons, ReduceSum)
	require.NoError(t, err)

	var importGroup *Group
	for i := range result.Groups {
		if result.Groups[i].Keys[1].String() == "Import" {
			importGroup = &result.Groups[i]
		}
	}
	require.NotNil(t, importGroup)
	assert.Equal(t, 0, importGroup.Count)
	assert.True(t, math.IsNaN(importGroup.Value))
}

func TestAggregate_MissingColumn(t *testing.T) {
	tbl := tradeTable(t)

	_, err := Aggregate(tbl, []string{"Nope"}, ColTons, ReduceSum)
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{"Nope"}, serr.Missing)
}

func TestAggregate_PeriodKeysSortChronologically(t *testing.T) {
	tbl := NewTable([]string{ColPeriod, ColTons})
	periods := []Period{
		NewPeriod(2013, time.January),
		NewPeriod(2012, time.December),
		NewPeriod(2012, time.November),
	}
	for i, p := range periods {
		require.NoError(t, tbl.AppendRow([]Value{PeriodValue(p), Number(float64(i + 1))}))
	}

	result, err := Aggregate(tbl, []string{ColPeriod}, ColTons, ReduceSum)
	require.NoError(t, err)

	labels := make([]string, len(result.Groups))
	for i, g := range result.Groups {
		labels[i] = g.Keys[0].String()
	}
	assert.Equal(t, []string{"Nov-2012", "Dec-2012", "Jan-2013"}, labels)
}

func TestSeries_SkipsEmptyGroups(t *testing.T) {
	tbl := tradeTable(t)
	result, err := Aggregate(tbl, []string{ColFlow}, ColTons, ReduceSum)
	require.NoError(t, err)

	keys, vals := result.Series()
	require.Len(t, keys, 1)
	assert.Equal(t, "Export", keys[0].String())
	assert.Equal(t, []float64{70}, vals)
}

func TestPivotTable_SumZeroFillsAbsentCells(t *testing.T) {
	tbl := tradeTable(t)

	p, err := PivotTable(tbl, ColReporter, ColFlow, ColTons, ReduceSum)
	require.NoError(t, err)

	// Uganda never appears under Import; a sum of nothing shipped is zero.
	row, ok := p.Row("Uganda")
	require.True(t, ok)
	require.Len(t, row, 2)
	assert.Equal(t, 40.0, row[0]) // Export
	assert.Equal(t, 0.0, row[1])  // Import
}

func TestPivotTable_MeanLeavesAbsentCellsNaN(t *testing.T) {
	tbl := tradeTable(t)

	p, err := PivotTable(tbl, ColReporter, ColFlow, ColTons, ReduceMean)
	require.NoError(t, err)

	row, ok := p.Row("Uganda")
	require.True(t, ok)
	assert.Equal(t, 40.0, row[0])
	assert.True(t, math.IsNaN(row[1]))

	// Kenya's Import group exists but holds only missing values; a mean
	// cannot be fabricated for it either.
	kenya, ok := p.Row("Kenya")
	require.True(t, ok)
	assert.True(t, math.IsNaN(kenya[1]))
}
