package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_InfersColumnTypes(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader(`Reporter,Year,Tons
Kenya,2012,10.5
Uganda,2013,"1,200"
`))
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, ValueText, tbl.Cell(0, "Reporter").Kind)
	assert.Equal(t, ValueNumber, tbl.Cell(0, "Year").Kind)

	// Thousands separators are stripped during numeric inference.
	f, ok := tbl.Cell(1, "Tons").Float()
	require.True(t, ok)
	assert.Equal(t, 1200.0, f)
}

func TestParseCSV_MixedColumnStaysText(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("Code\n101\nabc\n"))
	require.NoError(t, err)

	assert.Equal(t, ValueText, tbl.Cell(0, "Code").Kind)
	assert.Equal(t, "101", tbl.Cell(0, "Code").Text)
}

func TestParseCSV_TolerantOfBOM(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("\ufeffReporter,Tons\nKenya,10\n"))
	require.NoError(t, err)

	assert.True(t, tbl.HasColumn("Reporter"))
	assert.Equal(t, 1, tbl.Len())
}

func TestParseCSV_EmptyCellsBecomeMissing(t *testing.T) {
	tbl, err := ParseCSV(strings.NewReader("Reporter,Tons\nKenya,\nUganda,20\n"))
	require.NoError(t, err)

	assert.True(t, tbl.Cell(0, "Tons").IsMissing())
	assert.False(t, tbl.Cell(1, "Tons").IsMissing())
}

func TestParseCSV_MalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"empty input", "", 0},
		{"blank header name", "Reporter,,Tons\nKenya,x,10\n", 1},
		{"ragged row", "Reporter,Tons\nKenya,10,extra\n", 2},
		{"bare quote", "Reporter,Tons\nKen\"ya,10\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantLine, perr.Line)
		})
	}
}

func TestTableFromRows_SharesInference(t *testing.T) {
	tbl, err := TableFromRows(
		[]string{" Reporter ", "Tons"},
		[][]string{{"Kenya", "10"}, {"Uganda"}},
	)
	require.NoError(t, err)

	assert.True(t, tbl.HasColumn("Reporter"))
	assert.Equal(t, ValueNumber, tbl.Cell(0, "Tons").Kind)
	// Short row padded with missing.
	assert.True(t, tbl.Cell(1, "Tons").IsMissing())
}
