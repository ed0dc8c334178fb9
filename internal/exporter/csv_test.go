package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepulse/internal/analytics"
	"tradepulse/internal/dataset"
)

func testCSVWriter() *CSVWriter {
	return NewCSVWriter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func buildTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := dataset.NewTable([]string{"Reporter", "Tons"})
	require.NoError(t, tbl.AppendRow([]dataset.Value{dataset.TextValue("Kenya"), dataset.Number(13.4)}))
	require.NoError(t, tbl.AppendRow([]dataset.Value{dataset.TextValue("Uganda"), dataset.Missing()}))
	return tbl
}

func TestWriteTable_BOMAndFormatting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testCSVWriter().WriteTable(&buf, buildTable(t)))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "expected UTF-8 BOM prefix")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Reporter", "Tons"}, records[0])
	assert.Equal(t, []string{"Kenya", "13.40"}, records[1])
	assert.Equal(t, []string{"Uganda", ""}, records[2])
}

func TestWriteAggregate(t *testing.T) {
	result := &dataset.AggregateResult{
		GroupBy: []string{"Reporter"},
		Column:  "Tons",
		Reduce:  dataset.ReduceSum,
		Groups: []dataset.Group{
			{Keys: []dataset.Value{dataset.TextValue("Kenya")}, Value: 70, Count: 3},
			{Keys: []dataset.Value{dataset.TextValue("Uganda")}, Value: math.NaN(), Count: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, testCSVWriter().WriteAggregate(&buf, result))

	out := strings.TrimPrefix(buf.String(), "\xef\xbb\xbf")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Reporter,Tons_sum", lines[0])
	assert.Equal(t, "Kenya,70.00", lines[1])
	assert.Equal(t, "Uganda,", lines[2])
}

func TestWritePivot_MeanGapsStayEmpty(t *testing.T) {
	p := &dataset.Pivot{
		RowName: "Reporter",
		ColName: "Period",
		Reduce:  dataset.ReduceMean,
		RowKeys: []dataset.Value{dataset.TextValue("Kenya"), dataset.TextValue("Uganda")},
		ColKeys: []dataset.Value{dataset.TextValue("Jan-2012"), dataset.TextValue("Feb-2012")},
		Cells: [][]float64{
			{10, math.NaN()},
			{math.NaN(), 5.5},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, testCSVWriter().WritePivot(&buf, p))

	out := strings.TrimPrefix(buf.String(), "\xef\xbb\xbf")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Reporter,Jan-2012,Feb-2012", lines[0])
	assert.Equal(t, "Kenya,10.00,", lines[1])
	assert.Equal(t, "Uganda,,5.50", lines[2])
}

func TestWriteOutliers_RepeatedExportsAreByteIdentical(t *testing.T) {
	result := &analytics.OutlierResult{
		Contamination: 0.1,
		Flagged:       []analytics.Alert{{Category: "spike", PctChange: 300}},
		Scores: map[string]float64{
			"spike": 0.91, "b": 0.40, "c": 0.41, "d": 0.42, "e": 0.43,
			"f": 0.44, "g": 0.45, "h": 0.46, "i": 0.47, "j": 0.48,
		},
	}

	var first bytes.Buffer
	require.NoError(t, testCSVWriter().WriteOutliers(&first, result))

	out := strings.TrimPrefix(first.String(), "\xef\xbb\xbf")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "spike,300.00,0.91,true", lines[1])
	assert.Equal(t, "b,,0.40,false", lines[2])
	assert.Equal(t, "j,,0.48,false", lines[10])

	for i := 0; i < 20; i++ {
		var again bytes.Buffer
		require.NoError(t, testCSVWriter().WriteOutliers(&again, result))
		require.Equal(t, first.Bytes(), again.Bytes())
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "0.00", formatFloat(0))
	assert.Equal(t, "", formatFloat(math.NaN()))
	assert.Equal(t, "inf", formatFloat(math.Inf(1)))
	assert.Equal(t, "-inf", formatFloat(math.Inf(-1)))
}
