package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// ParseCSV parses comma-separated text into a Table. The first row names the
// columns; encoding is UTF-8 (a leading BOM is tolerated). Column types are
// inferred afterwards: a column becomes numeric only when every non-empty
// cell parses as a float, otherwise it stays text.
//
// Malformed input (unparsable bytes, inconsistent column counts) returns a
// ParseError and no table.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: errors.New("input is empty")}
	}
	if err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			return nil, &ParseError{Line: 1, Err: fmt.Errorf("empty header name in column %d", i+1)}
		}
	}

	var raw [][]string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		raw = append(raw, record)
	}

	return tableFromRaw(header, raw)
}

// TableFromRows builds a typed Table from a header and raw string rows.
// Remote sources that already deliver cell grids (the Sheets API) use this
// to share the CSV path's type inference.
func TableFromRows(header []string, rows [][]string) (*Table, error) {
	trimmed := make([]string, len(header))
	for i, h := range header {
		trimmed[i] = strings.TrimSpace(h)
		if trimmed[i] == "" {
			return nil, &ParseError{Line: 1, Err: fmt.Errorf("empty header name in column %d", i+1)}
		}
	}
	return tableFromRaw(trimmed, rows)
}

// tableFromRaw builds a typed Table out of string rows, shared by the CSV
// and workbook ingests.
func tableFromRaw(header []string, raw [][]string) (*Table, error) {
	numeric := inferNumericColumns(header, raw)

	t := NewTable(header)
	for _, record := range raw {
		row := make([]Value, len(header))
		for i := range header {
			var cell string
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			row[i] = coerceCell(cell, numeric[i])
		}
		if err := t.AppendRow(row); err != nil {
			return nil, &ParseError{Err: err}
		}
	}

	slog.Debug("parsed tabular input",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(header)))

	return t, nil
}

// inferNumericColumns marks the columns whose every non-empty cell parses as
// a float. Ambiguous columns stay textual.
func inferNumericColumns(header []string, raw [][]string) []bool {
	numeric := make([]bool, len(header))
	seen := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = true
	}
	for _, record := range raw {
		for i := range header {
			if i >= len(record) {
				continue
			}
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			seen[i] = true
			if _, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64); err != nil {
				numeric[i] = false
			}
		}
	}
	for i := range numeric {
		if !seen[i] {
			numeric[i] = false
		}
	}
	return numeric
}

func coerceCell(cell string, numeric bool) Value {
	if cell == "" {
		return Missing()
	}
	if numeric {
		f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err == nil {
			return Number(f)
		}
		return Missing()
	}
	return TextValue(cell)
}
