package column

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

func openTestColumn(t *testing.T, def types.ColumnDef) (*Column, storage.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())

	name := catalog.NewColumnName(catalog.NewEntityName("warehouse", "products"), def.Name())
	err = s.Update(func(tx storage.Tx) error {
		if err := cat.CreateSchema(tx, "warehouse"); err != nil {
			return err
		}
		return cat.CreateEntity(tx, catalog.NewEntityName("warehouse", "products"), []types.ColumnDef{def})
	})
	require.NoError(t, err)
	return Open(cat, name, def), s
}

func TestPutGetRoundTrip(t *testing.T) {
	def, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), true, false)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		return col.Put(tx, 1, types.DoubleValue(9.99))
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		v, err := col.Get(tx, 1)
		require.NoError(t, err)
		require.Equal(t, types.DoubleValue(9.99), v)
		return nil
	})
	require.NoError(t, err)
}

func TestPutGetNull(t *testing.T) {
	def, err := types.NewColumnDef("note", types.Scalar(types.KindString), true, false)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		return col.Put(tx, 1, nil)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		v, err := col.Get(tx, 1)
		require.NoError(t, err)
		require.Nil(t, v)
		return nil
	})
	require.NoError(t, err)
}

func TestPutRejectsNullOnNotNullable(t *testing.T) {
	def, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		return col.Put(tx, 1, nil)
	})
	require.Error(t, err)
}

func TestCompareAndPut(t *testing.T) {
	def, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), true, false)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		return col.Put(tx, 1, types.DoubleValue(9.99))
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		ok, err := col.CompareAndPut(tx, 1, types.DoubleValue(8.00), types.DoubleValue(1.00))
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = col.CompareAndPut(tx, 1, types.DoubleValue(8.00), types.DoubleValue(9.99))
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		v, err := col.Get(tx, 1)
		require.NoError(t, err)
		require.Equal(t, types.DoubleValue(8.00), v)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteAndCursor(t *testing.T) {
	def, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), true, false)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		for i, p := range []float64{1.0, 2.0, 3.0} {
			if err := col.Put(tx, types.TupleId(i), types.DoubleValue(p)); err != nil {
				return err
			}
		}
		return col.Delete(tx, 1)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		cur, err := col.Cursor(tx, nil)
		require.NoError(t, err)
		var ids []types.TupleId
		for cur.Valid() {
			id, _, err := cur.Entry()
			require.NoError(t, err)
			ids = append(ids, id)
			cur.Next()
		}
		require.Equal(t, []types.TupleId{0, 2}, ids)
		return nil
	})
	require.NoError(t, err)
}

func TestStatisticsLazyRebuild(t *testing.T) {
	def, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), true, false)
	require.NoError(t, err)
	col, s := openTestColumn(t, def)

	err = s.Update(func(tx storage.Tx) error {
		for i, p := range []float64{5.0, 1.0, 9.0} {
			if err := col.Put(tx, types.TupleId(i), types.DoubleValue(p)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		st, err := col.Statistics(tx)
		require.NoError(t, err)
		require.Equal(t, int64(3), st.NumNonNull())
		require.Equal(t, types.DoubleValue(1.0), st.Min())
		require.Equal(t, types.DoubleValue(9.0), st.Max())
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return col.Delete(tx, 2) // deletes the max, clears fresh
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		st, err := col.Statistics(tx)
		require.NoError(t, err)
		require.True(t, st.Fresh())
		require.Equal(t, int64(2), st.NumNonNull())
		return nil
	})
	require.NoError(t, err)
}
