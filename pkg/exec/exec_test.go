package exec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

func openTestEntity(t *testing.T, defs []types.ColumnDef) (*catalog.Catalog, storage.Store, catalog.EntityName) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())
	name := catalog.NewEntityName("warehouse", "products")
	err = s.Update(func(tx storage.Tx) error {
		if err := cat.CreateSchema(tx, catalog.SchemaName("warehouse")); err != nil {
			return err
		}
		return cat.CreateEntity(tx, name, defs)
	})
	require.NoError(t, err)
	return cat, s, name
}

func productDefs(t *testing.T) []types.ColumnDef {
	id, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	name, err := types.NewColumnDef("name", types.Scalar(types.KindString), false, false)
	require.NoError(t, err)
	price, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), false, false)
	require.NoError(t, err)
	return []types.ColumnDef{id, name, price}
}

func TestEntityInsertReadScan(t *testing.T) {
	cat, s, name := openTestEntity(t, productDefs(t))

	var tid1, tid2 types.TupleId
	err := s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		tid1, err = e.Insert(tx, []types.Value{types.LongValue(1), types.StringValue("widget"), types.DoubleValue(9.99)})
		require.NoError(t, err)
		tid2, err = e.Insert(tx, []types.Value{types.LongValue(2), types.StringValue("gadget"), types.DoubleValue(19.99)})
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
	require.NotEqual(t, tid1, tid2)

	err = s.View(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)

		rec, err := e.Read(tx, tid1)
		require.NoError(t, err)
		v, ok := rec.Get("name")
		require.True(t, ok)
		require.Equal(t, types.StringValue("widget"), v)

		count, err := e.Count(tx)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)

		max, err := e.MaxTupleId(tx)
		require.NoError(t, err)
		require.Equal(t, tid2, max)

		cur, err := e.Scan(tx)
		require.NoError(t, err)
		seen := 0
		for {
			_, ok, err := cur.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			seen++
		}
		require.Equal(t, 2, seen)
		return nil
	})
	require.NoError(t, err)
}

func TestEntityUpdateDelete(t *testing.T) {
	cat, s, name := openTestEntity(t, productDefs(t))

	var tid types.TupleId
	err := s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		tid, err = e.Insert(tx, []types.Value{types.LongValue(1), types.StringValue("widget"), types.DoubleValue(9.99)})
		return err
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		return e.Update(tx, tid, []types.Value{types.LongValue(1), types.StringValue("widget-v2"), types.DoubleValue(12.50)})
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		rec, err := e.Read(tx, tid)
		require.NoError(t, err)
		v, _ := rec.Get("name")
		require.Equal(t, types.StringValue("widget-v2"), v)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		return e.Delete(tx, tid)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		count, err := e.Count(tx)
		require.NoError(t, err)
		require.Equal(t, int64(0), count)
		return nil
	})
	require.NoError(t, err)
}

func TestOperatorFilterProjectionLimit(t *testing.T) {
	cat, s, name := openTestEntity(t, productDefs(t))

	err := s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		for i, p := range []struct {
			nm    string
			price float64
		}{{"a", 1}, {"b", 2}, {"c", 3}} {
			_, err := e.Insert(tx, []types.Value{types.LongValue(int64(i)), types.StringValue(p.nm), types.DoubleValue(p.price)})
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)

		scan := NewEntityScan(tx, nil, e)
		filtered := NewFilter(scan, func(r types.Record) (bool, error) {
			v, _ := r.Get("price")
			return v.(types.DoubleValue) >= 2, nil
		})
		limited := NewLimit(filtered, 1)
		projected := NewProjection(limited, []string{"name"})

		require.NoError(t, projected.Open())
		defer projected.Close()

		rec, ok, err := projected.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, rec.Columns, 1)
		v, _ := rec.Get("name")
		require.Equal(t, types.StringValue("b"), v)

		_, ok, err = projected.Next()
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestOperatorSort(t *testing.T) {
	cat, s, name := openTestEntity(t, productDefs(t))

	err := s.Update(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		for i, price := range []float64{30, 10, 20} {
			_, err := e.Insert(tx, []types.Value{types.LongValue(int64(i)), types.StringValue("x"), types.DoubleValue(price)})
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		e, err := OpenEntity(tx, cat, name)
		require.NoError(t, err)
		scan := NewEntityScan(tx, nil, e)
		sorted := NewSort(scan, "price", false)
		require.NoError(t, sorted.Open())
		defer sorted.Close()

		var prices []float64
		for {
			rec, ok, err := sorted.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			v, _ := rec.Get("price")
			prices = append(prices, float64(v.(types.DoubleValue)))
		}
		require.Equal(t, []float64{10, 20, 30}, prices)
		return nil
	})
	require.NoError(t, err)
}
