package dataset

// Selection restricts rows to chosen values of categorical columns. The
// convention throughout is the one users expect from an unchecked
// multiselect: an empty (or absent) value set for a column means "no
// restriction on that column", never "exclude everything". Multiple columns
// compose with logical AND.
type Selection map[string][]string

// unsatisfiable is the sentinel stored when two selections on the same
// column share no values. An empty set already means "no restriction", so
// "match nothing" needs a representation of its own; NUL cannot appear in a
// parsed cell.
const unsatisfiable = "\x00"

// Intersect combines two selections pointwise: columns present in both keep
// only the values both accept, columns present in one keep that one's
// values. Filtering by the intersection equals filtering by one then the
// other, including the disjoint case, which collapses to a set matching no
// row.
func (s Selection) Intersect(o Selection) Selection {
	out := make(Selection, len(s)+len(o))
	for col, vals := range s {
		out[col] = append([]string(nil), vals...)
	}
	for col, vals := range o {
		existing, ok := out[col]
		if !ok || len(existing) == 0 {
			out[col] = append([]string(nil), vals...)
			continue
		}
		if len(vals) == 0 {
			continue
		}
		accept := make(map[string]bool, len(vals))
		for _, v := range vals {
			accept[v] = true
		}
		var kept []string
		for _, v := range existing {
			if accept[v] {
				kept = append(kept, v)
			}
		}
		if kept == nil {
			kept = []string{unsatisfiable}
		}
		out[col] = kept
	}
	return out
}

// Filter returns a new table holding only the rows whose value in every
// selected column is a member of that column's accepted set. Row order is
// preserved and the input table is never mutated. An empty result is valid;
// callers render "not enough data", they do not fail.
//
// Selections naming a column the table does not have match nothing for that
// column, which surfaces quickly as an empty result rather than a panic.
func Filter(t *Table, sel Selection) *Table {
	out := NewTable(t.cols)
	out.periodless = t.periodless

	type colFilter struct {
		idx    int
		absent bool
		accept map[string]bool
	}
	var active []colFilter
	for col, vals := range sel {
		if len(vals) == 0 {
			continue
		}
		accept := make(map[string]bool, len(vals))
		for _, v := range vals {
			accept[v] = true
		}
		idx, ok := t.index[col]
		active = append(active, colFilter{idx: idx, absent: !ok, accept: accept})
	}

	if len(active) == 0 {
		out.rows = append([][]Value(nil), t.rows...)
		return out
	}

	for _, row := range t.rows {
		match := true
		for _, f := range active {
			if f.absent || !f.accept[row[f.idx].String()] {
				match = false
				break
			}
		}
		if match {
			out.rows = append(out.rows, row)
		}
	}
	return out
}
