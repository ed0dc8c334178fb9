package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"tradepulse/internal/dataset"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV streams records to w with the given options
func (c *CSVWriter) WriteCSV(w io.Writer, options WriteOptions) error {
	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable exports a table row by row, formatting numeric cells with two
// decimals and leaving missing cells empty.
func (c *CSVWriter) WriteTable(w io.Writer, t *dataset.Table) error {
	headers := t.Columns()
	records := make([][]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = cellString(v)
		}
		records = append(records, record)
	}

	c.logger.Info("exporting table",
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(headers)))

	return c.WriteCSV(w, WriteOptions{Headers: headers, Records: records, BOMPrefix: true})
}

// WriteAggregate exports an aggregation result with one row per group.
func (c *CSVWriter) WriteAggregate(w io.Writer, r *dataset.AggregateResult) error {
	headers := append(append([]string(nil), r.GroupBy...), fmt.Sprintf("%s_%s", r.Column, r.Reduce))
	records := make([][]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		record := make([]string, 0, len(g.Keys)+1)
		for _, k := range g.Keys {
			record = append(record, k.String())
		}
		record = append(record, formatFloat(g.Value))
		records = append(records, record)
	}

	c.logger.Info("exporting aggregation",
		slog.Int("groups", len(r.Groups)),
		slog.String("reduce", string(r.Reduce)))

	return c.WriteCSV(w, WriteOptions{Headers: headers, Records: records, BOMPrefix: true})
}

// WritePivot exports a pivot as a matrix: first column holds the row keys,
// remaining columns one per pivot column.
func (c *CSVWriter) WritePivot(w io.Writer, p *dataset.Pivot) error {
	headers := make([]string, 0, len(p.ColKeys)+1)
	headers = append(headers, p.RowName)
	for _, ck := range p.ColKeys {
		headers = append(headers, ck.String())
	}

	records := make([][]string, 0, len(p.RowKeys))
	for i, rk := range p.RowKeys {
		record := make([]string, 0, len(p.ColKeys)+1)
		record = append(record, rk.String())
		for _, cell := range p.Cells[i] {
			record = append(record, formatFloat(cell))
		}
		records = append(records, record)
	}

	c.logger.Info("exporting pivot",
		slog.Int("rows", len(p.RowKeys)),
		slog.Int("columns", len(p.ColKeys)))

	return c.WriteCSV(w, WriteOptions{Headers: headers, Records: records, BOMPrefix: true})
}

// cellString renders a table cell for CSV. Text and period cells pass
// through; numbers get the fixed two-decimal format; missing cells are empty.
func cellString(v dataset.Value) string {
	switch v.Kind {
	case dataset.ValueNumber:
		return formatFloat(v.Num)
	case dataset.ValueMissing:
		return ""
	default:
		return v.String()
	}
}
