package rpc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/planner"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/types"
)

func newTestService(t *testing.T) (*InProcessService, catalog.EntityName) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cat := catalog.New(s)
	require.NoError(t, cat.Bootstrap())

	txns := txn.NewTransactionManager(16)
	p := planner.New(cat, planner.Config{})
	svc := NewInProcessService(s, cat, txns, p)

	return svc, catalog.NewEntityName("warehouse", "products")
}

func productColumns() []types.ColumnDef {
	id, _ := types.NewColumnDef("id", types.Scalar(types.KindLong), false, true)
	name, _ := types.NewColumnDef("name", types.Scalar(types.KindString), false, false)
	price, _ := types.NewColumnDef("price", types.Scalar(types.KindDouble), false, false)
	return []types.ColumnDef{id, name, price}
}

// TestServiceDDLDMLQueryRoundTrip exercises the S1-shaped path spec §8
// asks for: create a schema and entity, insert rows, query them back,
// all through implicit (id == 0) transactions.
func TestServiceDDLDMLQueryRoundTrip(t *testing.T) {
	svc, entity := newTestService(t)

	require.NoError(t, svc.CreateSchema(0, entity.Schema()))
	require.NoError(t, svc.CreateEntity(0, entity, productColumns()))

	rows := []struct {
		name  string
		price float64
	}{{"a", 30}, {"b", 10}, {"c", 20}}
	for i, r := range rows {
		tid, err := svc.Insert(0, entity, []types.Value{
			types.LongValue(int64(i)), types.StringValue(r.name), types.DoubleValue(r.price),
		})
		require.NoError(t, err)
		assert.Equal(t, types.TupleId(i), tid)
	}

	recs, err := svc.Query(0, planner.LogicalSort{
		Column: "price",
		Child:  planner.LogicalScan{Entity: entity},
	})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var names []string
	for _, rec := range recs {
		v, ok := rec.Get("name")
		require.True(t, ok)
		names = append(names, string(v.(types.StringValue)))
	}
	assert.Equal(t, []string{"b", "c", "a"}, names)
}

// TestServiceExplicitTransactionCommit exercises an explicit Begin,
// several DML calls under the same txn.TxID, then Commit.
func TestServiceExplicitTransactionCommit(t *testing.T) {
	svc, entity := newTestService(t)
	require.NoError(t, svc.CreateSchema(0, entity.Schema()))
	require.NoError(t, svc.CreateEntity(0, entity, productColumns()))

	id, err := svc.Begin(txn.UserExplicit)
	require.NoError(t, err)

	_, err = svc.Insert(id, entity, []types.Value{types.LongValue(0), types.StringValue("a"), types.DoubleValue(1)})
	require.NoError(t, err)
	_, err = svc.Insert(id, entity, []types.Value{types.LongValue(1), types.StringValue("b"), types.DoubleValue(2)})
	require.NoError(t, err)

	require.NoError(t, svc.Commit(id))

	// the transaction is finalized; a second Commit must fail as unknown.
	err = svc.Commit(id)
	require.Error(t, err)
	assert.Equal(t, StatusFailedPrecondition, StatusOf(err))

	recs, err := svc.Query(0, planner.LogicalScan{Entity: entity})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

// TestServiceKillStopsQueryMidTransaction confirms a killed explicit
// transaction surfaces KindCancellation (mapped to ABORTED) on its next
// use rather than silently continuing.
func TestServiceKillStopsQueryMidTransaction(t *testing.T) {
	svc, entity := newTestService(t)
	require.NoError(t, svc.CreateSchema(0, entity.Schema()))
	require.NoError(t, svc.CreateEntity(0, entity, productColumns()))

	id, err := svc.Begin(txn.UserExplicit)
	require.NoError(t, err)
	require.NoError(t, svc.Kill(id))

	_, err = svc.Insert(id, entity, []types.Value{types.LongValue(0), types.StringValue("a"), types.DoubleValue(1)})
	require.Error(t, err)
	assert.True(t, dberrors.Is(err, dberrors.KindCancellation))
	assert.Equal(t, StatusAborted, StatusOf(err))
}

// TestServiceDropEntityMissingIsNotFound confirms the planning/DDL error
// path maps through StatusOf the way spec §7 asks.
func TestServiceDropEntityMissingIsNotFound(t *testing.T) {
	svc, entity := newTestService(t)
	require.NoError(t, svc.CreateSchema(0, entity.Schema()))

	err := svc.DropEntity(0, entity)
	require.Error(t, err)
	assert.Equal(t, StatusNotFound, StatusOf(err))
}

func TestStatusOfUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, StatusInternal, StatusOf(assert.AnError))
}

func TestServiceCreateIndexAndFilter(t *testing.T) {
	svc, entity := newTestService(t)
	require.NoError(t, svc.CreateSchema(0, entity.Schema()))
	require.NoError(t, svc.CreateEntity(0, entity, productColumns()))

	for i, r := range []struct {
		name  string
		price float64
	}{{"a", 30}, {"b", 10}, {"c", 20}} {
		_, err := svc.Insert(0, entity, []types.Value{
			types.LongValue(int64(i)), types.StringValue(r.name), types.DoubleValue(r.price),
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.CreateIndex(0, entity, "idx_name", catalog.IndexNonUniqueHash, "name", nil))

	recs, err := svc.Query(0, planner.LogicalFilter{
		Pred:  index.EqPredicate{Col: "name", Value: types.StringValue("b")},
		Child: planner.LogicalScan{Entity: entity},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, _ := recs[0].Get("name")
	assert.Equal(t, types.StringValue("b"), v)

	require.NoError(t, svc.DropIndex(0, entity, "idx_name"))
}
