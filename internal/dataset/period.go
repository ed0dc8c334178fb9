package dataset

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Period is a calendar-month label derived from Year and Month. The label is
// what users see ("Jan-2012"); Key is the first day of that month and is the
// only thing chronological ordering ever consults, so "Jan-2013" sorts after
// "Dec-2012" even though "D" < "J".
type Period struct {
	Label string
	Key   time.Time
}

// Before reports chronological order.
func (p Period) Before(o Period) bool { return p.Key.Before(o.Key) }

// MarshalJSON renders the period as its label; the ordering key is
// reconstructible from the label.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Label)
}

// UnmarshalJSON parses a period label.
func (p *Period) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	parsed, err := ParsePeriodLabel(label)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// monthNumbers maps three-letter month abbreviations to 1..12. The mapping is
// a fixed calendar table, not locale dependent.
var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// NewPeriod builds a Period for a year and month.
func NewPeriod(year int, month time.Month) Period {
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Label: key.Format("Jan-2006"), Key: key}
}

// ParsePeriod derives a Period from raw Year and Month cells. Month accepts
// a number 1-12 or a three-letter abbreviation (any case); anything else is
// an error for that row only.
func ParsePeriod(rowIdx int, yearCell, monthCell Value) (Period, error) {
	perr := &PeriodParseError{Row: rowIdx, Year: yearCell.String(), Month: monthCell.String()}

	yf, ok := yearCell.Float()
	if !ok || yf != float64(int(yf)) {
		return Period{}, perr
	}
	year := int(yf)

	var month time.Month
	if mf, ok := monthCell.Float(); ok {
		if mf < 1 || mf > 12 || mf != float64(int(mf)) {
			return Period{}, perr
		}
		month = time.Month(mf)
	} else {
		name := strings.ToLower(strings.TrimSpace(monthCell.String()))
		if len(name) > 3 {
			name = name[:3]
		}
		m, ok := monthNumbers[name]
		if !ok {
			return Period{}, perr
		}
		month = m
	}

	return NewPeriod(year, month), nil
}

// ParsePeriodLabel parses a rendered period label back into a Period. Used
// when round-tripping exported data.
func ParsePeriodLabel(label string) (Period, error) {
	key, err := time.Parse("Jan-2006", strings.TrimSpace(label))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period label %q: %w", label, err)
	}
	return NewPeriod(key.Year(), key.Month()), nil
}

// monthOrder is used when sorting raw Month filter options so textual months
// line up calendar-wise rather than alphabetically.
func monthOrder(v Value) int {
	if f, ok := v.Float(); ok && f >= 1 && f <= 12 {
		return int(f)
	}
	name := strings.ToLower(strings.TrimSpace(v.String()))
	if len(name) > 3 {
		name = name[:3]
	}
	if m, ok := monthNumbers[name]; ok {
		return int(m)
	}
	return 13
}

// SortMonthValues orders raw Month cells calendar-wise, unknown values last.
func SortMonthValues(values []Value) []Value {
	out := append([]Value(nil), values...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && monthOrder(out[j]) < monthOrder(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
