package index

import (
	"fmt"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// NonUniqueHash maps Value -> set(TupleId), built as a nested bucket per
// key (spec §4.4.2, adapting for BoltDB's lack of native MDB_DUPSORT —
// see DESIGN.md). String-typed columns additionally support `LIKE
// 'prefix%'` via a raw-bytes key encoding (not the length-prefixed scalar
// codec) so a storage.PrefixScan over the top-level bucket is a valid
// prefix match.
//
// BoltDB's own Update transaction already makes every write here
// all-or-nothing; that is what the spec's "pending mappings discarded on
// rollback" means in this substrate, so there is no separate in-memory
// staging map to flush on commit.
type NonUniqueHash struct {
	base
	codec     types.Codec
	supportsLike bool
}

func NewNonUniqueHash(name catalog.IndexName, col *column.Column, colDef types.ColumnDef) *NonUniqueHash {
	return &NonUniqueHash{
		base:         newBase(name, catalog.IndexNonUniqueHash, col, colDef),
		codec:        types.CodecFor(colDef.Type().Kind),
		supportsLike: colDef.Type().Kind == types.KindString,
	}
}

func (ix *NonUniqueHash) key(v types.Value) []byte {
	if ix.supportsLike {
		return []byte(string(v.(types.StringValue)))
	}
	return ix.codec.Encode(nil, v)
}

func (ix *NonUniqueHash) CanProcess(p Predicate) bool {
	if p.Column() != ix.colDef.Name() {
		return false
	}
	switch p.(type) {
	case EqPredicate, InPredicate:
		return true
	case LikePrefixPredicate:
		return ix.supportsLike
	default:
		return false
	}
}

func (ix *NonUniqueHash) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	switch pr := p.(type) {
	case EqPredicate:
		return Cost{IO: ioUnit, CPU: cpuUnit, Memory: float64(ix.colDef.Type().PhysicalSize())}, nil
	case InPredicate:
		n := float64(len(pr.Values))
		return Cost{IO: n * ioUnit, CPU: n * cpuUnit, Memory: float64(ix.colDef.Type().PhysicalSize())}, nil
	case LikePrefixPredicate:
		return Cost{IO: 4 * ioUnit, CPU: 4 * cpuUnit, Memory: memUnit}, nil
	}
	return InvalidCost, nil
}

func (ix *NonUniqueHash) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "NonUniqueHash.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

func (ix *NonUniqueHash) insert(b storage.Bucket, v types.Value, id types.TupleId) error {
	nb, err := b.CreateNestedBucketIfNotExists(ix.key(v))
	if err != nil {
		return err
	}
	return nb.Put(tupleBytes(id), nil)
}

func (ix *NonUniqueHash) remove(b storage.Bucket, v types.Value, id types.TupleId) error {
	nb := b.NestedBucket(ix.key(v))
	if nb == nil {
		return nil
	}
	return nb.Delete(tupleBytes(id))
}

func (ix *NonUniqueHash) Rebuild(tx storage.Tx) error {
	_ = tx.DeleteBucket(ix.base.bucket)
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	cur, err := ix.col.Cursor(tx, nil)
	if err != nil {
		return err
	}
	for cur.Valid() {
		id, v, err := cur.Entry()
		if err != nil {
			return err
		}
		if v != nil {
			if err := ix.insert(b, v, id); err != nil {
				return err
			}
		}
		cur.Next()
	}
	return nil
}

func (ix *NonUniqueHash) Update(tx storage.Tx, op DataOp) error {
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	switch o := op.(type) {
	case InsertOp:
		if o.Value == nil {
			return nil
		}
		return ix.insert(b, o.Value, o.Tuple)
	case DeleteOp:
		if o.Value == nil {
			return nil
		}
		return ix.remove(b, o.Value, o.Tuple)
	case UpdateOp:
		if o.Old != nil {
			if err := ix.remove(b, o.Old, o.Tuple); err != nil {
				return err
			}
		}
		if o.New != nil {
			return ix.insert(b, o.New, o.Tuple)
		}
		return nil
	default:
		return fmt.Errorf("index: NonUniqueHash.Update: unknown DataOp %T", op)
	}
}

func (ix *NonUniqueHash) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *NonUniqueHash) emitFromNested(nb storage.Bucket, v types.Value, out *[]types.Record) {
	if nb == nil {
		return
	}
	c := nb.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		*out = append(*out, types.NewRecord(bytesToTuple(k), ix.Produces(), []types.Value{v}))
	}
}

func (ix *NonUniqueHash) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	if !ix.CanProcess(p) {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "NonUniqueHash.Filter", fmt.Errorf("%T", p))
	}
	b, err := ix.bucket(tx, false)
	if err != nil {
		return nil, err
	}

	var records []types.Record
	switch pr := p.(type) {
	case EqPredicate:
		ix.emitFromNested(b.NestedBucket(ix.key(pr.Value)), pr.Value, &records)
	case InPredicate:
		for _, v := range pr.Values {
			ix.emitFromNested(b.NestedBucket(ix.key(v)), v, &records)
		}
	case LikePrefixPredicate:
		storage.PrefixScan(b.Cursor(), []byte(pr.Prefix), func(k, _ []byte) bool {
			nb := b.NestedBucket(k)
			ix.emitFromNested(nb, types.StringValue(k), &records)
			return true
		})
	}
	return types.NewRecordSlice(records), nil
}

func (ix *NonUniqueHash) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
	return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "NonUniqueHash.FilterRange", fmt.Errorf("non-unique hash does not support partitioning"))
}

func (ix *NonUniqueHash) SupportsIncrementalUpdate() bool { return true }
func (ix *NonUniqueHash) SupportsPartitioning() bool       { return false }
func (ix *NonUniqueHash) Order() []OrderedColumn           { return nil }
