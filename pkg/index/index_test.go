package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// openIndexTestColumn mirrors pkg/column's openTestColumn helper: a fresh
// store, a bootstrapped catalog, one entity with def as its only column.
// pkg/index can't reuse pkg/column's unexported helper directly, so every
// index variant's tests share this copy instead.
func openIndexTestColumn(t *testing.T, def types.ColumnDef) (*column.Column, storage.Store, catalog.IndexName) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())

	entity := catalog.NewEntityName("warehouse", "products")
	err = s.Update(func(tx storage.Tx) error {
		if err := cat.CreateSchema(tx, catalog.SchemaName("warehouse")); err != nil {
			return err
		}
		return cat.CreateEntity(tx, entity, []types.ColumnDef{def})
	})
	require.NoError(t, err)

	colName := catalog.NewColumnName(entity, def.Name())
	col := column.Open(cat, colName, def)
	ixName := catalog.NewIndexName(entity, "ix_"+def.Name())
	return col, s, ixName
}

func tupleIds(records []types.Record) []types.TupleId {
	ids := make([]types.TupleId, len(records))
	for i, r := range records {
		ids[i] = r.Tuple
	}
	return ids
}

func drain(t *testing.T, cur types.RecordCursor) []types.Record {
	t.Helper()
	var out []types.Record
	for {
		rec, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}
