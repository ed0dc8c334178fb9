package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_EmptySelectionKeepsEverything(t *testing.T) {
	tbl := tradeTable(t)

	assert.Equal(t, tbl.Len(), Filter(tbl, nil).Len())
	assert.Equal(t, tbl.Len(), Filter(tbl, Selection{}).Len())
	// An empty value set means "no restriction", not "exclude all".
	assert.Equal(t, tbl.Len(), Filter(tbl, Selection{ColReporter: {}}).Len())
}

func TestFilter_ColumnsComposeWithAND(t *testing.T) {
	tbl := tradeTable(t)

	out := Filter(tbl, Selection{
		ColReporter: {"Kenya"},
		ColFlow:     {"Export"},
	})

	require.Equal(t, 2, out.Len())
	for i := 0; i < out.Len(); i++ {
		assert.Equal(t, "Kenya", out.Cell(i, ColReporter).String())
		assert.Equal(t, "Export", out.Cell(i, ColFlow).String())
	}
}

func TestFilter_MultipleValuesAreUnion(t *testing.T) {
	tbl := tradeTable(t)

	out := Filter(tbl, Selection{ColReporter: {"Kenya", "Uganda"}})
	assert.Equal(t, 4, out.Len())
}

func TestFilter_UnknownColumnMatchesNothing(t *testing.T) {
	tbl := tradeTable(t)

	out := Filter(tbl, Selection{"Vessel": {"dhow"}})
	assert.Equal(t, 0, out.Len())
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	tbl := tradeTable(t)
	before := tbl.Len()

	Filter(tbl, Selection{ColReporter: {"Kenya"}})
	assert.Equal(t, before, tbl.Len())
}

func TestIntersect_NarrowsSharedColumns(t *testing.T) {
	a := Selection{ColReporter: {"Kenya", "Uganda"}, ColFlow: {"Export"}}
	b := Selection{ColReporter: {"Uganda", "Rwanda"}}

	got := a.Intersect(b)

	assert.Equal(t, []string{"Uganda"}, got[ColReporter])
	assert.Equal(t, []string{"Export"}, got[ColFlow])
}

func TestIntersect_EmptySetIsNoRestriction(t *testing.T) {
	a := Selection{ColReporter: {}}
	b := Selection{ColReporter: {"Kenya"}}

	got := a.Intersect(b)
	assert.Equal(t, []string{"Kenya"}, got[ColReporter])
}

func TestIntersect_DisjointMatchesNoRow(t *testing.T) {
	tbl := tradeTable(t)
	a := Selection{ColReporter: {"Kenya"}}
	b := Selection{ColReporter: {"Uganda"}}

	combined := a.Intersect(b)

	// Filtering by the intersection equals filtering twice: zero rows,
	// never "unrestricted".
	assert.Equal(t, 0, Filter(tbl, combined).Len())
	assert.Equal(t, 0, Filter(Filter(tbl, a), b).Len())
}
