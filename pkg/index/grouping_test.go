package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// TestGroupingSingleGroupMatchesBruteForce pins num_groups=1 so Filter's
// 10%-of-groups refinement covers the whole column, making grouping's
// group-selection step a no-op and isolating the exact-rerank tail (spec
// §4.4.5's "exact top-k among the refined candidates") against a plain
// brute-force nearest neighbor.
func TestGroupingSingleGroupMatchesBruteForce(t *testing.T) {
	def := vecDef(t, 2)
	col, s, name := openIndexTestColumn(t, def)
	ix, err := NewGrouping(name, col, def, 1, 11)
	require.NoError(t, err)

	points := [][]float64{{0, 0}, {3, 4}, {10, 10}, {-1, -1}, {5, 0}}
	err = s.Update(func(tx storage.Tx) error {
		for i, p := range points {
			if err := col.Put(tx, types.TupleId(i), types.NewDoubleVec(p)); err != nil {
				return err
			}
		}
		return ix.Rebuild(tx)
	})
	require.NoError(t, err)

	q := KNNPredicate{Col: "v", Query: []float64{0, 0}, K: 2, Kernel: L2}
	err = s.View(func(tx storage.Tx) error {
		cur, err := ix.Filter(tx, q)
		require.NoError(t, err)
		recs := drain(t, cur)
		require.Len(t, recs, 2)
		require.ElementsMatch(t, []types.TupleId{0, 3}, tupleIds(recs)) // (0,0) dist 0, (-1,-1) dist sqrt(2); both beat (5,0)=5 and (3,4)=5
		return nil
	})
	require.NoError(t, err)
}

// TestGroupingMultiGroupReturnsWellSeparatedNeighbor uses clusters so far
// apart that, whichever seeds the greedy pass happens to draw, the
// refined 10%-of-groups pass is expected to surface the true nearest
// neighbor to a query sitting inside one of the clusters.
func TestGroupingMultiGroupReturnsWellSeparatedNeighbor(t *testing.T) {
	def := vecDef(t, 2)
	col, s, name := openIndexTestColumn(t, def)
	ix, err := NewGrouping(name, col, def, 3, 11)
	require.NoError(t, err)

	points := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, // cluster near origin
		{500, 500}, {500.1, 500}, {500, 500.1}, // cluster far away
		{1000, 0}, {1000.1, 0}, {1000, 0.1}, // another far cluster
	}
	err = s.Update(func(tx storage.Tx) error {
		for i, p := range points {
			if err := col.Put(tx, types.TupleId(i), types.NewDoubleVec(p)); err != nil {
				return err
			}
		}
		return ix.Rebuild(tx)
	})
	require.NoError(t, err)

	q := KNNPredicate{Col: "v", Query: []float64{0, 0}, K: 3, Kernel: L2}
	err = s.View(func(tx storage.Tx) error {
		cur, err := ix.Filter(tx, q)
		require.NoError(t, err)
		recs := drain(t, cur)
		require.LessOrEqual(t, len(recs), 3)
		require.NotEmpty(t, recs)
		for _, r := range recs {
			require.Less(t, int64(r.Tuple), int64(3), "expected only origin-cluster members this close to the query")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestGroupingRejectsZeroGroups(t *testing.T) {
	def := vecDef(t, 2)
	col, _, name := openIndexTestColumn(t, def)
	_, err := NewGrouping(name, col, def, 0, 1)
	require.Error(t, err)
}

func TestGroupingFilterRangeUnsupported(t *testing.T) {
	def := vecDef(t, 2)
	col, s, name := openIndexTestColumn(t, def)
	ix, err := NewGrouping(name, col, def, 2, 1)
	require.NoError(t, err)
	require.False(t, ix.SupportsPartitioning())

	err = s.View(func(tx storage.Tx) error {
		_, err := ix.FilterRange(tx, KNNPredicate{Col: "v", Query: []float64{0, 0}, K: 1, Kernel: L2}, 0, 2)
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}
