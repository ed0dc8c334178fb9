package dataset

import (
	"fmt"
	"strings"
)

// ParseError reports malformed input bytes. An ingest that returns a
// ParseError loaded nothing: callers must treat the result as "no data", not
// as a table with zero matching rows.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports required columns absent from the table. It aborts the
// pipeline run before any partial processing happens.
type SchemaError struct {
	Missing []string
	// Periodless marks the special case where the Period column is absent
	// because Year/Month were missing at normalization time.
	Periodless bool
}

func (e *SchemaError) Error() string {
	if e.Periodless {
		return "table has no Period column (Year or Month was absent when the data was loaded)"
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// PeriodParseError reports a single row whose Year/Month pair could not be
// turned into a Period. It is row-local: the offending row is dropped and
// processing continues.
type PeriodParseError struct {
	Row   int
	Year  string
	Month string
}

func (e *PeriodParseError) Error() string {
	return fmt.Sprintf("row %d: cannot derive period from Year=%q Month=%q", e.Row, e.Year, e.Month)
}
