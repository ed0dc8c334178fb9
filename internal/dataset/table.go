package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates what a cell holds.
type ValueKind int

const (
	// ValueText is an uncoerced string cell.
	ValueText ValueKind = iota
	// ValueNumber is a cell that parsed as a float64.
	ValueNumber
	// ValueMissing marks a cell whose content could not be coerced to the
	// column's expected type. Missing is never the same as zero.
	ValueMissing
	// ValuePeriod is a derived calendar-month cell carrying a chronological
	// ordering key alongside its rendered label.
	ValuePeriod
)

// Value is a single table cell.
type Value struct {
	Kind   ValueKind
	Text   string
	Num    float64
	Period Period
}

// Text returns a text value.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: ValueNumber, Num: f} }

// Missing returns the missing marker.
func Missing() Value { return Value{Kind: ValueMissing} }

// PeriodValue wraps a Period as a cell.
func PeriodValue(p Period) Value { return Value{Kind: ValuePeriod, Text: p.Label, Period: p} }

// IsMissing reports whether the cell holds no usable value.
func (v Value) IsMissing() bool { return v.Kind == ValueMissing }

// Float returns the cell as a float64. The second return is false for
// missing and non-numeric text cells.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the cell the way it is exported: numbers without trailing
// zeros, periods by label, missing as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return strconv.FormatFloat(v.Num, 'f', -1, 64)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ValuePeriod:
		return v.Period.Label
	case ValueMissing:
		return ""
	default:
		return v.Text
	}
}

// Equal compares two cells for grouping purposes. Period cells compare by
// ordering key, numbers by value, everything else by rendered text.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return v.String() == o.String()
	}
	switch v.Kind {
	case ValueNumber:
		return v.Num == o.Num
	case ValuePeriod:
		return v.Period.Key.Equal(o.Period.Key)
	default:
		return v.Text == o.Text
	}
}

// Table is an ordered collection of rows sharing a schema. Stage functions
// never mutate a Table in place; they return a new one.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value

	// periodless is set when Period derivation was skipped because the
	// Year or Month column is absent. Period-keyed stages must then fail
	// fast instead of producing an empty result silently.
	periodless bool
}

// NewTable creates an empty table with the given column names.
func NewTable(cols []string) *Table {
	t := &Table{cols: append([]string(nil), cols...), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		t.index[c] = i
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Periodless reports whether Period derivation was skipped for this table.
func (t *Table) Periodless() bool { return t.periodless }

// AppendRow adds a row. Rows shorter than the schema are padded with
// missing markers so positional access stays safe.
func (t *Table) AppendRow(row []Value) error {
	if len(row) > len(t.cols) {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(row), len(t.cols))
	}
	for len(row) < len(t.cols) {
		row = append(row, Missing())
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the i-th row. The returned slice must not be modified.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Cell returns the value at (row, column name).
func (t *Table) Cell(row int, col string) Value {
	i, ok := t.index[col]
	if !ok {
		return Missing()
	}
	return t.rows[row][i]
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) []Value {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// DistinctValues returns the distinct non-missing values of a column in
// first-seen order.
func (t *Table) DistinctValues(name string) []Value {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []Value
	for _, row := range t.rows {
		v := row[i]
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// RequireColumns validates that every named column is present, returning a
// SchemaError listing all the absent ones. Callers run this before any
// aggregation or derivation so column problems surface as one named failure
// instead of deep inside a computation.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// RequirePeriod validates that the table carries a derived Period column.
func (t *Table) RequirePeriod() error {
	if t.periodless || !t.HasColumn(ColPeriod) {
		return &SchemaError{Missing: []string{ColPeriod}, Periodless: true}
	}
	return nil
}

// clone copies the table structure and rows. Row slices are shared until a
// stage replaces them, which is safe because rows are never edited in place.
func (t *Table) clone() *Table {
	nt := NewTable(t.cols)
	nt.periodless = t.periodless
	nt.rows = append([][]Value(nil), t.rows...)
	return nt
}

// withColumn returns a copy of the table with one extra column appended.
// values must be parallel to the rows.
func (t *Table) withColumn(name string, values []Value) *Table {
	nt := NewTable(append(t.Columns(), name))
	nt.periodless = t.periodless
	nt.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		nr := make([]Value, 0, len(row)+1)
		nr = append(nr, row...)
		nr = append(nr, values[i])
		nt.rows[i] = nr
	}
	return nt
}

// Well-known column names for trade data tables.
const (
	ColReporter = "Reporter"
	ColPartner  = "Partner"
	ColFlow     = "Flow"
	ColYear     = "Year"
	ColMonth    = "Month"
	ColTons     = "Tons"
	ColPeriod   = "Period"
)
