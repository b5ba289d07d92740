package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

func TestUniqueHashEqAndIn(t *testing.T) {
	def, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	col, s, name := openIndexTestColumn(t, def)
	ix := NewUniqueHash(name, col, def)

	err = s.Update(func(tx storage.Tx) error {
		for i, v := range []int64{10, 20, 30} {
			if err := col.Put(tx, types.TupleId(i), types.LongValue(v)); err != nil {
				return err
			}
		}
		return ix.Rebuild(tx)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		cur, err := ix.Filter(tx, EqPredicate{Col: "id", Value: types.LongValue(20)})
		require.NoError(t, err)
		recs := drain(t, cur)
		require.Equal(t, []types.TupleId{1}, tupleIds(recs))

		cur, err = ix.Filter(tx, InPredicate{Col: "id", Values: []types.Value{types.LongValue(10), types.LongValue(30)}})
		require.NoError(t, err)
		recs = drain(t, cur)
		ids := tupleIds(recs)
		require.ElementsMatch(t, []types.TupleId{0, 2}, ids)
		return nil
	})
	require.NoError(t, err)
}

// TestUniqueHashRejectsDuplicateKey is spec §8 S2 at the index level: a
// second insert under an already-bound key must fail validation rather
// than silently overwrite it.
func TestUniqueHashRejectsDuplicateKey(t *testing.T) {
	def, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	col, s, name := openIndexTestColumn(t, def)
	ix := NewUniqueHash(name, col, def)

	err = s.Update(func(tx storage.Tx) error {
		if err := col.Put(tx, 0, types.LongValue(1)); err != nil {
			return err
		}
		return ix.Rebuild(tx)
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return ix.Update(tx, InsertOp{Tuple: 1, Value: types.LongValue(1)})
	})
	require.Error(t, err)
}

func TestUniqueHashUpdateOps(t *testing.T) {
	def, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	col, s, name := openIndexTestColumn(t, def)
	ix := NewUniqueHash(name, col, def)

	err = s.Update(func(tx storage.Tx) error {
		return ix.Rebuild(tx)
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return ix.Update(tx, InsertOp{Tuple: 0, Value: types.LongValue(5)})
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return ix.Update(tx, UpdateOp{Tuple: 0, Old: types.LongValue(5), New: types.LongValue(7)})
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		cur, err := ix.Filter(tx, EqPredicate{Col: "id", Value: types.LongValue(5)})
		require.NoError(t, err)
		require.Empty(t, drain(t, cur))

		cur, err = ix.Filter(tx, EqPredicate{Col: "id", Value: types.LongValue(7)})
		require.NoError(t, err)
		require.Equal(t, []types.TupleId{0}, tupleIds(drain(t, cur)))
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return ix.Update(tx, DeleteOp{Tuple: 0, Value: types.LongValue(7)})
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		cur, err := ix.Filter(tx, EqPredicate{Col: "id", Value: types.LongValue(7)})
		require.NoError(t, err)
		require.Empty(t, drain(t, cur))
		return nil
	})
	require.NoError(t, err)
}

func TestUniqueHashFilterRangeUnsupported(t *testing.T) {
	def, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	col, s, name := openIndexTestColumn(t, def)
	ix := NewUniqueHash(name, col, def)
	require.False(t, ix.SupportsPartitioning())

	err = s.View(func(tx storage.Tx) error {
		_, err := ix.FilterRange(tx, EqPredicate{Col: "id", Value: types.LongValue(1)}, 0, 2)
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}
