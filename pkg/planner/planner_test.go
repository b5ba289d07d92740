package planner

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/exec"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

func openTestEntity(t *testing.T) (*catalog.Catalog, storage.Store, catalog.EntityName) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())

	id, err := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	require.NoError(t, err)
	name, err := types.NewColumnDef("name", types.Scalar(types.KindString), false, false)
	require.NoError(t, err)
	price, err := types.NewColumnDef("price", types.Scalar(types.KindDouble), false, false)
	require.NoError(t, err)
	defs := []types.ColumnDef{id, name, price}

	entity := catalog.NewEntityName("warehouse", "products")
	err = s.Update(func(tx storage.Tx) error {
		if err := cat.CreateSchema(tx, catalog.SchemaName("warehouse")); err != nil {
			return err
		}
		return cat.CreateEntity(tx, entity, defs)
	})
	require.NoError(t, err)
	return cat, s, entity
}

func seedProducts(t *testing.T, cat *catalog.Catalog, s storage.Store, entity catalog.EntityName) {
	t.Helper()
	rows := []struct {
		name  string
		price float64
	}{{"a", 30}, {"b", 10}, {"c", 20}}
	err := s.Update(func(tx storage.Tx) error {
		e, err := exec.OpenEntity(tx, cat, entity)
		if err != nil {
			return err
		}
		for i, r := range rows {
			_, err := e.Insert(tx, []types.Value{types.LongValue(int64(i)), types.StringValue(r.name), types.DoubleValue(r.price)})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestPlannerSortLimit(t *testing.T) {
	cat, s, entity := openTestEntity(t)
	seedProducts(t, cat, s, entity)

	p := New(cat, Config{})

	logical := LogicalLimit{
		N: 2,
		Child: LogicalSort{
			Column: "price",
			Desc:   false,
			Child:  LogicalScan{Entity: entity},
		},
	}

	var prices []float64
	err := s.View(func(tx storage.Tx) error {
		phys, ctx, err := p.Plan(tx, nil, logical, s)
		require.NoError(t, err)
		require.True(t, executableOf(phys))

		op, err := phys.ToOperator(ctx)
		require.NoError(t, err)
		require.NoError(t, op.Open())
		defer op.Close()

		for {
			rec, ok, err := op.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			v, _ := rec.Get("price")
			prices = append(prices, float64(v.(types.DoubleValue)))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []float64{10, 20}, prices)
}

func TestPlannerFilterOverScan(t *testing.T) {
	cat, s, entity := openTestEntity(t)
	seedProducts(t, cat, s, entity)

	p := New(cat, Config{})

	logical := LogicalSort{
		Column: "price",
		Desc:   false,
		Child: LogicalFilter{
			Pred:  index.InPredicate{Col: "name", Values: []types.Value{types.StringValue("a"), types.StringValue("c")}},
			Child: LogicalScan{Entity: entity},
		},
	}

	var names []string
	err := s.View(func(tx storage.Tx) error {
		phys, ctx, err := p.Plan(tx, nil, logical, s)
		require.NoError(t, err)

		op, err := phys.ToOperator(ctx)
		require.NoError(t, err)
		require.NoError(t, op.Open())
		defer op.Close()

		for {
			rec, ok, err := op.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			v, _ := rec.Get("name")
			names = append(names, string(v.(types.StringValue)))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, names)
}

func TestPlannerCachesByDigest(t *testing.T) {
	cat, s, entity := openTestEntity(t)
	seedProducts(t, cat, s, entity)

	p := New(cat, Config{})
	logical := LogicalScan{Entity: entity}

	err := s.View(func(tx storage.Tx) error {
		first, _, err := p.Plan(tx, nil, logical, s)
		require.NoError(t, err)
		second, _, err := p.Plan(tx, nil, logical, s)
		require.NoError(t, err)
		require.Equal(t, first, second)
		return nil
	})
	require.NoError(t, err)
}

// TestPlannerPartitionedIndexScanMatchesUnpartitioned seeds an entity
// with a vector column, indexes it with a partitioning-capable VAFile,
// and checks that a KNNPredicate query plans to a PhysPartitionedIndexScan
// (rather than the single-snapshot PhysIndexScan) once Config asks for
// more than one partition, and that its merged, re-ranked result is
// exactly the same top-K an unpartitioned scan would have produced —
// partitioning must not change the answer, only how many independent
// snapshots it is read through (spec §4.4.3).
func TestPlannerPartitionedIndexScanMatchesUnpartitioned(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())

	embedding, err := types.NewColumnDef("embedding", types.Vector(types.KindDoubleVec, 2), false, false)
	require.NoError(t, err)
	entity := catalog.NewEntityName("media", "vectors")
	err = s.Update(func(tx storage.Tx) error {
		if err := cat.CreateSchema(tx, catalog.SchemaName("media")); err != nil {
			return err
		}
		return cat.CreateEntity(tx, entity, []types.ColumnDef{embedding})
	})
	require.NoError(t, err)

	points := [][]float64{{0, 0}, {1, 0}, {0, 1}, {5, 5}, {5, 6}, {6, 5}, {10, 10}, {10, 11}}
	err = s.Update(func(tx storage.Tx) error {
		e, err := exec.OpenEntity(tx, cat, entity)
		if err != nil {
			return err
		}
		for _, p := range points {
			if _, err := e.Insert(tx, []types.Value{types.NewDoubleVec(p)}); err != nil {
				return err
			}
		}
		return e.CreateIndex(tx, "idx_embedding", catalog.IndexVAFile, "embedding", nil)
	})
	require.NoError(t, err)

	query := index.KNNPredicate{Col: "embedding", Query: []float64{0, 0}, K: 3, Kernel: index.L2}
	logical := LogicalFilter{Pred: query, Child: LogicalScan{Entity: entity}}

	run := func(cfg Config) []types.TupleId {
		p := New(cat, cfg)
		var tids []types.TupleId
		err := s.View(func(tx storage.Tx) error {
			phys, ctx, err := p.Plan(tx, nil, logical, s)
			require.NoError(t, err)

			op, err := phys.ToOperator(ctx)
			require.NoError(t, err)
			require.NoError(t, op.Open())
			defer op.Close()
			for {
				rec, ok, err := op.Next()
				require.NoError(t, err)
				if !ok {
					break
				}
				tids = append(tids, rec.Tuple)
			}
			return nil
		})
		require.NoError(t, err)
		sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })
		return tids
	}

	unpartitioned := run(Config{BypassCache: true})

	pPhys := New(cat, Config{BypassCache: true, IndexScanPartitions: 4})
	err = s.View(func(tx storage.Tx) error {
		phys, _, err := pPhys.Plan(tx, nil, logical, s)
		require.NoError(t, err)
		_, ok := phys.(PhysPartitionedIndexScan)
		require.True(t, ok, "expected a partitioned plan once IndexScanPartitions > 1, got %T", phys)
		return nil
	})
	require.NoError(t, err)

	partitioned := run(Config{BypassCache: true, IndexScanPartitions: 4})
	require.Equal(t, unpartitioned, partitioned, "partitioning the scan must not change the result set")
	require.Len(t, partitioned, 3)
}

func TestExploreFindsSortFilterCommute(t *testing.T) {
	logical := LogicalSort{
		Column: "price",
		Child: LogicalFilter{
			Pred:  index.EqPredicate{Col: "name", Value: types.StringValue("a")},
			Child: LogicalScan{Entity: catalog.NewEntityName("warehouse", "products")},
		},
	}
	candidates := explore(logical)
	require.True(t, len(candidates) >= 2)

	foundSwapped := false
	for _, c := range candidates {
		if _, ok := c.(LogicalFilter); ok {
			foundSwapped = true
		}
	}
	require.True(t, foundSwapped, "expected the sort-below-filter rewrite to appear in the exploration closure")
}
