package dataset

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads an xlsx workbook and extracts a Table from the named
// sheet. When sheetName is empty the first sheet that yields a non-empty
// header is used. The extracted rows go through the same type inference as
// CSV input.
func ParseWorkbook(r io.Reader, sheetName string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	var candidates []string
	if sheetName != "" {
		candidates = []string{sheetName}
	} else {
		candidates = f.GetSheetList()
	}

	for _, name := range candidates {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) == 0 {
			continue
		}
		header := rows[0]
		if !usableHeader(header) {
			continue
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		slog.Debug("reading workbook sheet",
			slog.String("sheet", name),
			slog.Int("rows", len(rows)-1))
		return tableFromRaw(header, rows[1:])
	}

	if sheetName != "" {
		return nil, &ParseError{Err: errors.New("sheet " + sheetName + " not found or empty")}
	}
	return nil, &ParseError{Err: errors.New("workbook has no sheet with a header row")}
}

func usableHeader(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}
