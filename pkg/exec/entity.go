package exec

import (
	"fmt"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// Entity is the row-oriented DBO the planner and executor operate
// against: one entity's column set plus its live indexes, composed from
// pkg/catalog + pkg/column + pkg/index (spec §6.2's per-DBO contract).
type Entity struct {
	cat     *catalog.Catalog
	name    catalog.EntityName
	defs    []types.ColumnDef
	columns map[string]*column.Column
	indexes map[string]index.Index
	anchor  string // the column used to enumerate every live TupleId
}

// OpenEntity loads name's metadata from cat and constructs live Column
// and Index handles for it. Every subsequent Entity method takes the
// same storage.Tx this was opened against, or a later one over the same
// Store.
func OpenEntity(tx storage.Tx, cat *catalog.Catalog, name catalog.EntityName) (*Entity, error) {
	defs, ok, err := cat.Entity(tx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberrors.New(dberrors.KindEntityDoesNotExist, "exec.OpenEntity", fmt.Errorf("entity %q", name))
	}

	e := &Entity{cat: cat, name: name, defs: defs, columns: make(map[string]*column.Column), indexes: make(map[string]index.Index)}
	for _, def := range defs {
		colName := catalog.NewColumnName(name, def.Name())
		e.columns[def.Name()] = column.Open(cat, colName, def)
		if def.Primary() || e.anchor == "" {
			e.anchor = def.Name()
		}
	}

	ixNames, err := e.listIndexNames(tx)
	if err != nil {
		return nil, err
	}
	for _, short := range ixNames {
		full := catalog.NewIndexName(name, short)
		typ, _, cols, cfg, ok, err := cat.Index(tx, full)
		if err != nil {
			return nil, err
		}
		if !ok || len(cols) != 1 {
			continue
		}
		colDef, ok := e.colDef(cols[0])
		if !ok {
			continue
		}
		ix, err := buildIndex(full, typ, cols, cfg, e.columns[cols[0]], colDef)
		if err != nil {
			return nil, err
		}
		e.indexes[short] = ix
	}
	return e, nil
}

func (e *Entity) colDef(name string) (types.ColumnDef, bool) {
	for _, d := range e.defs {
		if d.Name() == name {
			return d, true
		}
	}
	return types.ColumnDef{}, false
}

func (e *Entity) listIndexNames(tx storage.Tx) ([]string, error) {
	return e.cat.ListIndexes(tx, e.name)
}

// Name returns the entity's fully-qualified name.
func (e *Entity) Name() catalog.EntityName { return e.name }

// Columns returns the entity's column definitions in declaration order.
func (e *Entity) Columns() []types.ColumnDef { return e.defs }

// Column returns the live handle for one of the entity's columns.
func (e *Entity) Column(name string) (*column.Column, bool) {
	c, ok := e.columns[name]
	return c, ok
}

// Indexes returns every live index handle on this entity.
func (e *Entity) Indexes() map[string]index.Index { return e.indexes }

// MaxTupleId returns the greatest TupleId written to this entity, via
// its anchor column (primary column if one is marked primary, else the
// first declared column — every column shares the same TupleId domain).
func (e *Entity) MaxTupleId(tx storage.Tx) (types.TupleId, error) {
	col := e.columns[e.anchor]
	id, ok, err := col.MaxTupleId(tx)
	if err != nil {
		return types.NoTupleId, err
	}
	if !ok {
		return types.NoTupleId, nil
	}
	return id, nil
}

// Count returns the number of live tuples in this entity.
func (e *Entity) Count(tx storage.Tx) (int64, error) {
	return e.columns[e.anchor].Count(tx)
}

// Read assembles one Record from every column at tid.
func (e *Entity) Read(tx storage.Tx, tid types.TupleId) (types.Record, error) {
	values := make([]types.Value, len(e.defs))
	for i, def := range e.defs {
		v, err := e.columns[def.Name()].Get(tx, tid)
		if err != nil {
			return types.Record{}, err
		}
		values[i] = v
	}
	return types.NewRecord(tid, e.defs, values), nil
}

// Scan returns a cursor over every live tuple, enumerated via the anchor
// column, each fully materialized into a Record.
func (e *Entity) Scan(tx storage.Tx) (types.RecordCursor, error) {
	cur, err := e.columns[e.anchor].Cursor(tx, nil)
	if err != nil {
		return nil, err
	}
	return &entityScanCursor{entity: e, tx: tx, anchor: cur}, nil
}

type entityScanCursor struct {
	entity *Entity
	tx     storage.Tx
	anchor *column.ColumnCursor
}

func (c *entityScanCursor) Next() (types.Record, bool, error) {
	if !c.anchor.Valid() {
		return types.Record{}, false, nil
	}
	tid, _, err := c.anchor.Entry()
	if err != nil {
		return types.Record{}, false, err
	}
	c.anchor.Next()
	rec, err := c.entity.Read(c.tx, tid)
	if err != nil {
		return types.Record{}, false, err
	}
	return rec, true, nil
}

// Insert assigns a fresh TupleId via the catalog sequence, writes values
// (positionally aligned with Columns()), and folds the change into every
// affected index.
func (e *Entity) Insert(tx storage.Tx, values []types.Value) (types.TupleId, error) {
	if len(values) != len(e.defs) {
		return types.NoTupleId, fmt.Errorf("exec: Insert: expected %d values, got %d", len(e.defs), len(values))
	}
	next, err := e.cat.SequenceNext(tx, "tuple."+string(e.name))
	if err != nil {
		return types.NoTupleId, err
	}
	tid := types.TupleId(next)
	for i, def := range e.defs {
		if err := e.columns[def.Name()].Put(tx, tid, values[i]); err != nil {
			return types.NoTupleId, err
		}
		if err := e.foldIndexes(tx, def.Name(), index.InsertOp{Tuple: tid, Value: values[i]}); err != nil {
			return types.NoTupleId, err
		}
	}
	return tid, nil
}

// Update overwrites tid's values and folds old/new pairs into indexes.
func (e *Entity) Update(tx storage.Tx, tid types.TupleId, values []types.Value) error {
	if len(values) != len(e.defs) {
		return fmt.Errorf("exec: Update: expected %d values, got %d", len(e.defs), len(values))
	}
	for i, def := range e.defs {
		col := e.columns[def.Name()]
		old, err := col.Get(tx, tid)
		if err != nil {
			return err
		}
		if err := col.Put(tx, tid, values[i]); err != nil {
			return err
		}
		if err := e.foldIndexes(tx, def.Name(), index.UpdateOp{Tuple: tid, Old: old, New: values[i]}); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes tid from every column and folds the retraction into
// every affected index.
func (e *Entity) Delete(tx storage.Tx, tid types.TupleId) error {
	for _, def := range e.defs {
		col := e.columns[def.Name()]
		old, err := col.Get(tx, tid)
		if err != nil {
			return err
		}
		if err := col.Delete(tx, tid); err != nil {
			return err
		}
		if err := e.foldIndexes(tx, def.Name(), index.DeleteOp{Tuple: tid, Value: old}); err != nil {
			return err
		}
	}
	return nil
}

// foldIndexes applies op to every index over column, either incrementally
// or by marking it STALE (spec §4.4's index state machine).
func (e *Entity) foldIndexes(tx storage.Tx, column string, op index.DataOp) error {
	for short, ix := range e.indexes {
		if len(ix.Produces()) != 1 || ix.Produces()[0].Name() != column {
			continue
		}
		if ix.SupportsIncrementalUpdate() {
			if err := ix.Update(tx, op); err != nil {
				return err
			}
			continue
		}
		full := catalog.NewIndexName(e.name, short)
		if err := e.cat.SetIndexState(tx, full, catalog.IndexStale); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex registers and rebuilds a new index over one of the
// entity's columns, leaving it CLEAN on success.
func (e *Entity) CreateIndex(tx storage.Tx, short string, typ catalog.IndexType, column string, cfg map[string]string) error {
	full := catalog.NewIndexName(e.name, short)
	if err := e.cat.CreateIndex(tx, full, typ, []string{column}, cfg); err != nil {
		return err
	}
	colDef, ok := e.colDef(column)
	if !ok {
		return fmt.Errorf("exec: CreateIndex: unknown column %q", column)
	}
	ix, err := buildIndex(full, typ, []string{column}, cfg, e.columns[column], colDef)
	if err != nil {
		return err
	}
	if err := ix.Rebuild(tx); err != nil {
		return err
	}
	if err := e.cat.SetIndexState(tx, full, catalog.IndexClean); err != nil {
		return err
	}
	e.indexes[short] = ix
	return nil
}

// DropIndex removes an index's catalog row and structure.
func (e *Entity) DropIndex(tx storage.Tx, short string) error {
	ix, ok := e.indexes[short]
	if !ok {
		return dberrors.New(dberrors.KindIndexDoesNotExist, "exec.Entity.DropIndex", fmt.Errorf("index %q", short))
	}
	if err := ix.Clear(tx); err != nil {
		return err
	}
	if err := e.cat.DropIndex(tx, catalog.NewIndexName(e.name, short)); err != nil {
		return err
	}
	delete(e.indexes, short)
	return nil
}

// RebuildIndex transitions a STALE index back to CLEAN by rescanning the
// entity (spec §4.4's state machine, driven by pkg/rebuildsched).
func (e *Entity) RebuildIndex(tx storage.Tx, short string) error {
	ix, ok := e.indexes[short]
	if !ok {
		return dberrors.New(dberrors.KindIndexDoesNotExist, "exec.Entity.RebuildIndex", fmt.Errorf("index %q", short))
	}
	if err := ix.Rebuild(tx); err != nil {
		return err
	}
	return e.cat.SetIndexState(tx, catalog.NewIndexName(e.name, short), catalog.IndexClean)
}

// Finalize satisfies txn.SubTx. The catalog/column/index writes an
// Entity performs already land in the caller's shared storage.Tx as they
// happen, so there is nothing left to flush here; this only exists to
// participate in the transaction's LIFO finalize ordering.
func (e *Entity) Finalize(commit bool) error { return nil }
