package dataset

import (
	"math"
	"sort"
	"strings"
)

// Reduction names how grouped values collapse into one number.
type Reduction string

const (
	ReduceSum  Reduction = "sum"
	ReduceMean Reduction = "mean"
)

// Valid reports whether r is a known reduction.
func (r Reduction) Valid() bool { return r == ReduceSum || r == ReduceMean }

// Group is one row of an aggregation result: the grouping key tuple and the
// reduced numeric value. Count is the number of non-missing contributions.
type Group struct {
	Keys  []Value
	Value float64
	Count int
}

// AggregateResult is a table reduced by grouping columns. Groups are ordered
// deterministically: chronologically wherever the key is a Period, lexically
// otherwise, so identical inputs always produce byte-identical exports.
type AggregateResult struct {
	GroupBy []string
	Column  string
	Reduce  Reduction
	Groups  []Group
}

// Aggregate groups rows by one or more categorical columns and reduces a
// numeric column with sum or mean. Missing values are excluded from both
// reductions: they contribute neither to the total nor to the divisor.
// Groups whose every value is missing report Count 0 and value NaN.
func Aggregate(t *Table, groupBy []string, numCol string, reduce Reduction) (*AggregateResult, error) {
	cols := append(append([]string(nil), groupBy...), numCol)
	if err := t.RequireColumns(cols...); err != nil {
		return nil, err
	}

	keyIdx := make([]int, len(groupBy))
	for i, g := range groupBy {
		keyIdx[i], _ = t.ColumnIndex(g)
	}
	numIdx, _ := t.ColumnIndex(numCol)

	type acc struct {
		keys  []Value
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	order := []string{}

	for _, row := range t.rows {
		keyParts := make([]string, len(keyIdx))
		keys := make([]Value, len(keyIdx))
		for i, idx := range keyIdx {
			keys[i] = row[idx]
			keyParts[i] = row[idx].String()
		}
		mapKey := strings.Join(keyParts, "\x1f")
		a, ok := groups[mapKey]
		if !ok {
			a = &acc{keys: keys}
			groups[mapKey] = a
			order = append(order, mapKey)
		}
		if f, ok := row[numIdx].Float(); ok {
			a.sum += f
			a.count++
		}
	}

	result := &AggregateResult{
		GroupBy: append([]string(nil), groupBy...),
		Column:  numCol,
		Reduce:  reduce,
		Groups:  make([]Group, 0, len(order)),
	}
	for _, k := range order {
		a := groups[k]
		g := Group{Keys: a.keys, Count: a.count}
		switch {
		case a.count == 0:
			g.Value = math.NaN()
		case reduce == ReduceMean:
			g.Value = a.sum / float64(a.count)
		default:
			g.Value = a.sum
		}
		result.Groups = append(result.Groups, g)
	}

	sort.SliceStable(result.Groups, func(i, j int) bool {
		return lessKeys(result.Groups[i].Keys, result.Groups[j].Keys)
	})
	return result, nil
}

// lessKeys orders key tuples: period keys chronologically, numbers
// numerically, text lexically.
func lessKeys(a, b []Value) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i].Equal(b[i]) {
			continue
		}
		av, bv := a[i], b[i]
		if av.Kind == ValuePeriod && bv.Kind == ValuePeriod {
			return av.Period.Before(bv.Period)
		}
		af, aok := av.Float()
		bf, bok := bv.Float()
		if aok && bok {
			return af < bf
		}
		return av.String() < bv.String()
	}
	return false
}

// Series converts a single-key aggregation into (key, value) pairs in result
// order, skipping groups with no contributing values.
func (r *AggregateResult) Series() ([]Value, []float64) {
	keys := make([]Value, 0, len(r.Groups))
	vals := make([]float64, 0, len(r.Groups))
	for _, g := range r.Groups {
		if g.Count == 0 {
			continue
		}
		var key Value
		if len(g.Keys) > 0 {
			key = g.Keys[0]
		}
		keys = append(keys, key)
		vals = append(vals, g.Value)
	}
	return keys, vals
}

// Pivot is a category x period matrix of reduced values.
//
// Absent combinations follow the reduction: sums zero-fill (a category that
// shipped nothing that month summed to zero tonnage), means stay absent as
// NaN (zero-filling a mean would fabricate observations).
type Pivot struct {
	RowName string
	ColName string
	Reduce  Reduction
	RowKeys []Value
	ColKeys []Value
	Cells   [][]float64 // Cells[row][col]; NaN marks an absent mean cell
}

// PivotTable groups by two keys and spreads the second across columns.
// When the column key is Period the columns come out in chronological order.
func PivotTable(t *Table, rowCol, colCol, numCol string, reduce Reduction) (*Pivot, error) {
	agg, err := Aggregate(t, []string{rowCol, colCol}, numCol, reduce)
	if err != nil {
		return nil, err
	}

	p := &Pivot{RowName: rowCol, ColName: colCol, Reduce: reduce}
	rowIdx := make(map[string]int)
	colIdx := make(map[string]int)
	for _, g := range agg.Groups {
		rk, ck := g.Keys[0], g.Keys[1]
		if _, ok := rowIdx[rk.String()]; !ok {
			rowIdx[rk.String()] = len(p.RowKeys)
			p.RowKeys = append(p.RowKeys, rk)
		}
		if _, ok := colIdx[ck.String()]; !ok {
			colIdx[ck.String()] = len(p.ColKeys)
			p.ColKeys = append(p.ColKeys, ck)
		}
	}

	sortValues(p.RowKeys)
	sortValues(p.ColKeys)
	for i, v := range p.RowKeys {
		rowIdx[v.String()] = i
	}
	for i, v := range p.ColKeys {
		colIdx[v.String()] = i
	}

	fill := 0.0
	if reduce == ReduceMean {
		fill = math.NaN()
	}
	p.Cells = make([][]float64, len(p.RowKeys))
	for i := range p.Cells {
		p.Cells[i] = make([]float64, len(p.ColKeys))
		for j := range p.Cells[i] {
			p.Cells[i][j] = fill
		}
	}

	for _, g := range agg.Groups {
		i := rowIdx[g.Keys[0].String()]
		j := colIdx[g.Keys[1].String()]
		if g.Count == 0 {
			// All contributions missing: same as absent.
			continue
		}
		p.Cells[i][j] = g.Value
	}

	return p, nil
}

// Row returns the named row of the pivot as a dense series.
func (p *Pivot) Row(key string) ([]float64, bool) {
	for i, rk := range p.RowKeys {
		if rk.String() == key {
			return p.Cells[i], true
		}
	}
	return nil, false
}

func sortValues(vals []Value) {
	sort.SliceStable(vals, func(i, j int) bool {
		return lessKeys([]Value{vals[i]}, []Value{vals[j]})
	})
}
