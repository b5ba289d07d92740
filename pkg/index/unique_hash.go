package index

import (
	"fmt"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

// UniqueHash maps Value -> TupleId with at most one tuple per key (spec
// §4.4.1). It handles `= v` and `IN (v1..vn)` equality, never `NOT`.
type UniqueHash struct {
	base
	codec types.Codec
}

// NewUniqueHash constructs a UniqueHash index handle over col.
func NewUniqueHash(name catalog.IndexName, col *column.Column, colDef types.ColumnDef) *UniqueHash {
	return &UniqueHash{base: newBase(name, catalog.IndexUniqueHash, col, colDef), codec: types.CodecFor(colDef.Type().Kind)}
}

func (ix *UniqueHash) CanProcess(p Predicate) bool {
	if p.Column() != ix.colDef.Name() {
		return false
	}
	switch p.(type) {
	case EqPredicate, InPredicate:
		return true
	default:
		return false
	}
}

func (ix *UniqueHash) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	n := 1
	if in, ok := p.(InPredicate); ok {
		n = len(in.Values)
	}
	return Cost{
		IO:     float64(n) * ioUnit,
		CPU:    float64(n) * cpuUnit,
		Memory: float64(ix.colDef.Type().PhysicalSize()),
	}, nil
}

func (ix *UniqueHash) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "UniqueHash.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

func (ix *UniqueHash) Rebuild(tx storage.Tx) error {
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
			if err := ix.insertKey(b, v, id); err != nil {
				return err
			}
		}
		cur.Next()
	}
	return nil
}

func (ix *UniqueHash) insertKey(b storage.Bucket, v types.Value, id types.TupleId) error {
	key := ix.codec.Encode(nil, v)
	if b.Get(key) != nil {
		return dberrors.New(dberrors.KindValidation, "UniqueHash.insertKey", fmt.Errorf("duplicate key for unique index %q", ix.name))
	}
	return b.Put(key, tupleBytes(id))
}

func (ix *UniqueHash) Update(tx storage.Tx, op DataOp) error {
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	switch o := op.(type) {
	case InsertOp:
		if o.Value == nil {
			return nil
		}
		return ix.insertKey(b, o.Value, o.Tuple)
	case DeleteOp:
		if o.Value == nil {
			return nil
		}
		return b.Delete(ix.codec.Encode(nil, o.Value))
	case UpdateOp:
		if o.Old != nil {
			if err := b.Delete(ix.codec.Encode(nil, o.Old)); err != nil {
				return err
			}
		}
		if o.New != nil {
			return ix.insertKey(b, o.New, o.Tuple)
		}
		return nil
	default:
		return fmt.Errorf("index: UniqueHash.Update: unknown DataOp %T", op)
	}
}

func (ix *UniqueHash) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *UniqueHash) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	if !ix.CanProcess(p) {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "UniqueHash.Filter", fmt.Errorf("%T", p))
	}
	b, err := ix.bucket(tx, false)
	if err != nil {
		return nil, err
	}
	var values []types.Value
	switch pr := p.(type) {
	case EqPredicate:
		values = []types.Value{pr.Value}
	case InPredicate:
		values = pr.Values
	}

	records := make([]types.Record, 0, len(values))
	for _, v := range values {
		key := ix.codec.Encode(nil, v)
		idBytes := b.Get(key)
		if idBytes == nil {
			continue
		}
		id := bytesToTuple(idBytes)
		records = append(records, types.NewRecord(id, ix.Produces(), []types.Value{v}))
	}
	return types.NewRecordSlice(records), nil
}

func (ix *UniqueHash) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
	if !ix.SupportsPartitioning() {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "UniqueHash.FilterRange", fmt.Errorf("unique hash does not support partitioning"))
	}
	return ix.Filter(tx, p)
}

func (ix *UniqueHash) SupportsIncrementalUpdate() bool { return true }
func (ix *UniqueHash) SupportsPartitioning() bool       { return false }
func (ix *UniqueHash) Order() []OrderedColumn           { return nil }
