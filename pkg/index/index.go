package index

import (
	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// SortOrder is the sort direction a produced cursor is known to respect.
type SortOrder int

const (
	Unordered SortOrder = iota
	Ascending
	Descending
)

// OrderedColumn pairs a produced column with the order its cursor respects.
type OrderedColumn struct {
	Column types.ColumnDef
	Order  SortOrder
}

// DataOp is the change an index must fold into its structure on a write
// (spec §4.4's `update(tx, DataOp)`).
type DataOp interface{ dataOp() }

type InsertOp struct {
	Tuple types.TupleId
	Value types.Value
}

func (InsertOp) dataOp() {}

type UpdateOp struct {
	Tuple    types.TupleId
	Old, New types.Value
}

func (UpdateOp) dataOp() {}

type DeleteOp struct {
	Tuple types.TupleId
	Value types.Value
}

func (DeleteOp) dataOp() {}

// Index is the uniform contract every variant implements (spec §4.4).
// Every method takes the caller's transaction; an Index holds no
// transaction state of its own, only its catalog identity and config.
type Index interface {
	Name() catalog.IndexName
	Type() catalog.IndexType

	CanProcess(p Predicate) bool
	Cost(tx storage.Tx, p Predicate) (Cost, error)

	// Rebuild repopulates the index's structure by scanning the whole
	// column. It does not touch the catalog state; exec.Entity records
	// CLEAN after a successful Rebuild.
	Rebuild(tx storage.Tx) error
	// Update folds a single data change into the index's structure. Only
	// called when SupportsIncrementalUpdate() is true; otherwise the
	// caller must mark the index STALE instead.
	Update(tx storage.Tx, op DataOp) error
	// Clear deletes the index's structure. It does not change the index's
	// catalog state.
	Clear(tx storage.Tx) error

	Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error)
	// FilterRange restricts Filter's scan to logical partition partIx of
	// parts, only meaningful when SupportsPartitioning() is true.
	FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error)

	SupportsIncrementalUpdate() bool
	SupportsPartitioning() bool
	Produces() []types.ColumnDef
	Order() []OrderedColumn
}
