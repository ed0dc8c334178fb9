package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/xuri/excelize/v2"

	"tradepulse/internal/dataset"
)

// XLSXWriter renders pipeline outputs as spreadsheet workbooks.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new workbook writer instance
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// WriteTable writes the table to a single-sheet workbook.
func (x *XLSXWriter) WriteTable(w io.Writer, t *dataset.Table, sheetName string) error {
	if sheetName == "" {
		sheetName = "Data"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(t.Columns()))
	for _, col := range t.Columns() {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell address: %w", err)
		}
		if err := f.SetSheetRow(sheetName, addr, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	x.logger.Info("exporting workbook",
		slog.String("sheet", sheetName),
		slog.Int("rows", t.Len()))

	return f.Write(w)
}

// WritePivot writes the pivot matrix to a single-sheet workbook, row keys in
// column A and pivot columns across.
func (x *XLSXWriter) WritePivot(w io.Writer, p *dataset.Pivot, sheetName string) error {
	if sheetName == "" {
		sheetName = "Pivot"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(p.ColKeys)+1)
	header = append(header, p.RowName)
	for _, ck := range p.ColKeys {
		header = append(header, ck.String())
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rk := range p.RowKeys {
		cells := make([]interface{}, 0, len(p.ColKeys)+1)
		cells = append(cells, rk.String())
		for _, cell := range p.Cells[i] {
			if math.IsNaN(cell) {
				cells = append(cells, nil)
			} else {
				cells = append(cells, cell)
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell address: %w", err)
		}
		if err := f.SetSheetRow(sheetName, addr, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	return f.Write(w)
}

// cellValue converts a table cell to the native type excelize expects so
// numbers stay numbers in the workbook.
func cellValue(v dataset.Value) interface{} {
	switch v.Kind {
	case dataset.ValueNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return nil
		}
		return v.Num
	case dataset.ValueMissing:
		return nil
	default:
		return v.String()
	}
}
