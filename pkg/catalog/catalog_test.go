package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

func openTestCatalog(t *testing.T) (*Catalog, storage.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c := New(s)
	require.NoError(t, c.Bootstrap())
	return c, s
}

func TestBootstrapIdempotent(t *testing.T) {
	c, _ := openTestCatalog(t)
	require.NoError(t, c.Bootstrap())
}

func TestCreateSchemaAndEntity(t *testing.T) {
	c, s := openTestCatalog(t)

	err := s.Update(func(tx storage.Tx) error {
		if err := c.CreateSchema(tx, "warehouse"); err != nil {
			return err
		}
		idCol, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
		if err != nil {
			return err
		}
		embCol, err := types.NewColumnDef("embedding", types.Vector(types.KindFloatVec, 128), false, false)
		if err != nil {
			return err
		}
		return c.CreateEntity(tx, NewEntityName("warehouse", "products"), []types.ColumnDef{idCol, embCol})
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		cols, ok, err := c.Entity(tx, NewEntityName("warehouse", "products"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, cols, 2)
		require.Equal(t, "id", cols[0].Name())
		return nil
	})
	require.NoError(t, err)
}

func TestCreateSchemaDuplicate(t *testing.T) {
	c, s := openTestCatalog(t)
	err := s.Update(func(tx storage.Tx) error { return c.CreateSchema(tx, "warehouse") })
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error { return c.CreateSchema(tx, "warehouse") })
	require.Error(t, err)
}

func TestDropSchemaCascades(t *testing.T) {
	c, s := openTestCatalog(t)
	entity := NewEntityName("warehouse", "products")

	err := s.Update(func(tx storage.Tx) error {
		if err := c.CreateSchema(tx, "warehouse"); err != nil {
			return err
		}
		idCol, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
		if err != nil {
			return err
		}
		if err := c.CreateEntity(tx, entity, []types.ColumnDef{idCol}); err != nil {
			return err
		}
		return c.CreateIndex(tx, NewIndexName(entity, "id_idx"), IndexUniqueHash, []string{"id"}, nil)
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error { return c.DropSchema(tx, "warehouse") })
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		_, ok, err := c.Entity(tx, entity)
		require.NoError(t, err)
		require.False(t, ok)
		_, _, _, _, ok, err = c.Index(tx, NewIndexName(entity, "id_idx"))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestIndexLifecycle(t *testing.T) {
	c, s := openTestCatalog(t)
	entity := NewEntityName("warehouse", "products")

	err := s.Update(func(tx storage.Tx) error {
		if err := c.CreateSchema(tx, "warehouse"); err != nil {
			return err
		}
		idCol, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
		if err != nil {
			return err
		}
		if err := c.CreateEntity(tx, entity, []types.ColumnDef{idCol}); err != nil {
			return err
		}
		return c.CreateIndex(tx, NewIndexName(entity, "id_idx"), IndexUniqueHash, []string{"id"}, nil)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		_, state, _, _, ok, err := c.Index(tx, NewIndexName(entity, "id_idx"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, IndexFresh, state)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx storage.Tx) error {
		return c.SetIndexState(tx, NewIndexName(entity, "id_idx"), IndexClean)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		_, state, _, _, _, err := c.Index(tx, NewIndexName(entity, "id_idx"))
		require.NoError(t, err)
		require.Equal(t, IndexClean, state)
		return nil
	})
	require.NoError(t, err)
}

func TestSequenceNextMonotonic(t *testing.T) {
	c, s := openTestCatalog(t)
	var a, b int64
	err := s.Update(func(tx storage.Tx) error {
		var err error
		a, err = c.SequenceNext(tx, "products.tuple_id")
		if err != nil {
			return err
		}
		b, err = c.SequenceNext(tx, "products.tuple_id")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), a)
	require.Equal(t, int64(2), b)
}

func TestStatisticsRoundTrip(t *testing.T) {
	c, s := openTestCatalog(t)
	col := NewColumnName(NewEntityName("warehouse", "products"), "price")

	err := s.Update(func(tx storage.Tx) error {
		stats := types.NewValueStatistics()
		stats.Insert(types.DoubleValue(9.99))
		stats.Insert(types.DoubleValue(19.99))
		return c.PutStatistics(tx, col, types.KindDouble, stats)
	})
	require.NoError(t, err)

	err = s.View(func(tx storage.Tx) error {
		stats, err := c.Statistics(tx, col, types.KindDouble)
		require.NoError(t, err)
		require.Equal(t, int64(2), stats.NumNonNull())
		require.Equal(t, types.DoubleValue(9.99), stats.Min())
		require.Equal(t, types.DoubleValue(19.99), stats.Max())
		return nil
	})
	require.NoError(t, err)
}
