// Package column implements the per-column keyed value store (spec §4.3):
// one dedicated storage.Store bucket per column, keyed by TupleId, with
// in-band ValueStatistics maintenance and lazy statistics recomputation.
package column

import (
	"encoding/binary"
	"fmt"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// Column is a handle onto one column's dedicated keyed store. It holds no
// transaction state; every operation takes the caller's storage.Tx.
type Column struct {
	name    catalog.ColumnName
	def     types.ColumnDef
	bucket  []byte
	codec   types.Codec
	cat     *catalog.Catalog
}

// Open constructs a Column handle. The underlying bucket is created lazily
// on first write within an Update transaction.
func Open(cat *catalog.Catalog, name catalog.ColumnName, def types.ColumnDef) *Column {
	return &Column{
		name:   name,
		def:    def,
		bucket: name.StoreKey(),
		codec:  types.CodecFor(def.Type().Kind),
		cat:    cat,
	}
}

func tupleKey(id types.TupleId) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func keyTuple(key []byte) types.TupleId {
	return types.TupleId(binary.BigEndian.Uint64(key))
}

func (c *Column) bucketFor(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(c.bucket)
	}
	b := tx.Bucket(c.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindColumnDoesNotExist, "column.bucketFor", fmt.Errorf("column %q has no store", c.name))
	}
	return b, nil
}

func (c *Column) encode(v Value) ([]byte, error) {
	if v != nil {
		if err := c.def.Validate(v); err != nil {
			return nil, dberrors.New(dberrors.KindValidation, "column.encode", err)
		}
	} else if !c.def.Nullable() {
		return nil, dberrors.New(dberrors.KindValidation, "column.encode", fmt.Errorf("column %q is not nullable", c.name))
	}
	if c.codec == nil {
		return nil, dberrors.New(dberrors.KindReservedValue, "column.encode", fmt.Errorf("column %q: no codec registered for %s", c.name, c.def.Type()))
	}
	return c.codec.Encode(nil, v), nil
}

// Value is an alias kept local to avoid repeating types. everywhere.
type Value = types.Value

// Get reads the value stored at id, or nil if id has never been written or
// has been deleted.
func (c *Column) Get(tx storage.Tx, id types.TupleId) (Value, error) {
	b, err := c.bucketFor(tx, false)
	if err != nil {
		return nil, err
	}
	raw := b.Get(tupleKey(id))
	if raw == nil {
		return nil, nil
	}
	v, _, err := c.codec.Decode(raw)
	if err != nil {
		return nil, dberrors.New(dberrors.KindDataCorruption, "column.Get", err)
	}
	return v, nil
}

// Put writes value at id, updating in-band statistics against the prior
// value (spec §4.3's "every insert/delete/update reads old/new values,
// invokes stats.update(old,new)").
func (c *Column) Put(tx storage.Tx, id types.TupleId, value Value) error {
	b, err := c.bucketFor(tx, true)
	if err != nil {
		return err
	}
	old, err := c.Get(tx, id)
	if err != nil {
		return err
	}
	encoded, err := c.encode(value)
	if err != nil {
		return err
	}
	if err := b.Put(tupleKey(id), encoded); err != nil {
		return err
	}
	return c.updateStats(tx, old, value)
}

// CompareAndPut writes new at id only if the currently stored value
// equals expected (by encoded bytes); otherwise it returns false without
// writing.
func (c *Column) CompareAndPut(tx storage.Tx, id types.TupleId, new, expected Value) (bool, error) {
	current, err := c.Get(tx, id)
	if err != nil {
		return false, err
	}
	curEnc, err := c.encode(current)
	if err != nil {
		return false, err
	}
	expEnc, err := c.encode(expected)
	if err != nil {
		return false, err
	}
	if string(curEnc) != string(expEnc) {
		return false, nil
	}
	return true, c.Put(tx, id, new)
}

// Delete removes the value at id, if any, folding its retraction into
// statistics.
func (c *Column) Delete(tx storage.Tx, id types.TupleId) error {
	b, err := c.bucketFor(tx, false)
	if err != nil {
		if dberrors.Is(err, dberrors.KindColumnDoesNotExist) {
			return nil
		}
		return err
	}
	old, err := c.Get(tx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return nil
	}
	if err := b.Delete(tupleKey(id)); err != nil {
		return err
	}
	return c.deleteStats(tx, old)
}

// Cursor walks (TupleId, Value) pairs in ascending TupleId order, starting
// at from (or the beginning of the column if from is nil).
func (c *Column) Cursor(tx storage.Tx, from *types.TupleId) (*ColumnCursor, error) {
	b, err := c.bucketFor(tx, false)
	if err != nil {
		if dberrors.Is(err, dberrors.KindColumnDoesNotExist) {
			return &ColumnCursor{col: c}, nil
		}
		return nil, err
	}
	cur := b.Cursor()
	var k, v []byte
	if from != nil {
		k, v = cur.Seek(tupleKey(*from))
	} else {
		k, v = cur.First()
	}
	return &ColumnCursor{col: c, cur: cur, k: k, v: v}, nil
}

// ColumnCursor is the live iteration handle returned by Column.Cursor.
type ColumnCursor struct {
	col *Column
	cur storage.Cursor
	k, v []byte
}

// Valid reports whether the cursor currently sits on an entry.
func (cc *ColumnCursor) Valid() bool { return cc.k != nil }

// Entry decodes the current (TupleId, Value) pair.
func (cc *ColumnCursor) Entry() (types.TupleId, Value, error) {
	if cc.k == nil {
		return types.NoTupleId, nil, fmt.Errorf("column: cursor exhausted")
	}
	v, _, err := cc.col.codec.Decode(cc.v)
	if err != nil {
		return types.NoTupleId, nil, dberrors.New(dberrors.KindDataCorruption, "column.ColumnCursor.Entry", err)
	}
	return keyTuple(cc.k), v, nil
}

// Next advances the cursor.
func (cc *ColumnCursor) Next() {
	if cc.cur == nil {
		cc.k, cc.v = nil, nil
		return
	}
	cc.k, cc.v = cc.cur.Next()
}

// MaxTupleId returns the largest TupleId written to this column, and
// false if the column has no store yet or is empty.
func (c *Column) MaxTupleId(tx storage.Tx) (types.TupleId, bool, error) {
	b, err := c.bucketFor(tx, false)
	if err != nil {
		if dberrors.Is(err, dberrors.KindColumnDoesNotExist) {
			return types.NoTupleId, false, nil
		}
		return types.NoTupleId, false, err
	}
	k, _ := b.Cursor().Last()
	if k == nil {
		return types.NoTupleId, false, nil
	}
	return keyTuple(k), true, nil
}

// Count returns the number of entries (including explicit nulls) stored
// in this column, by a full cursor walk.
func (c *Column) Count(tx storage.Tx) (int64, error) {
	cur, err := c.Cursor(tx, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	for cur.Valid() {
		n++
		cur.Next()
	}
	return n, nil
}

// Truncate removes the column's entire keyed store (spec §4.2's cascading
// drop_entity). Statistics are reset to a fresh empty state.
func (c *Column) Truncate(tx storage.Tx) error {
	_ = tx.DeleteBucket(c.bucket)
	return c.cat.PutStatistics(tx, c.name, c.def.Type().Kind, types.NewValueStatistics())
}
