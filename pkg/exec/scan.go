package exec

import (
	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/types"
)

// EntityScan is the full-entity source operator: a pull-based wrapper
// around Entity.Scan's cursor.
type EntityScan struct {
	cancelCheck
	entity *Entity
	tx     storage.Tx
	cur    types.RecordCursor
}

// NewEntityScan builds a source operator over every live tuple in
// entity.
func NewEntityScan(tx storage.Tx, txh *txn.Transaction, entity *Entity) *EntityScan {
	return &EntityScan{cancelCheck: cancelCheck{tx: txh}, entity: entity, tx: tx}
}

func (s *EntityScan) Open() error {
	cur, err := s.entity.Scan(s.tx)
	if err != nil {
		return err
	}
	s.cur = cur
	return nil
}

func (s *EntityScan) Next() (types.Record, bool, error) {
	if err := s.check(); err != nil {
		return wrapCancellation(err)
	}
	return s.cur.Next()
}

func (s *EntityScan) Close() error { return nil }

// IndexFilterScan is the index-accelerated source operator: it delegates
// directly to an Index's Filter/FilterRange (spec §4.4, §4.6). When parts
// > 1 it restricts the scan to one logical partition, letting a planner
// fan a partitioned index (VAF, PQ) across several concurrent plans.
type IndexFilterScan struct {
	cancelCheck
	ix             index.Index
	tx             storage.Tx
	pred           index.Predicate
	partIx, parts  int
	cur            types.RecordCursor
}

// NewIndexFilterScan builds a source operator backed by ix.Filter. Pass
// parts <= 1 for an unpartitioned scan.
func NewIndexFilterScan(tx storage.Tx, txh *txn.Transaction, ix index.Index, pred index.Predicate, partIx, parts int) *IndexFilterScan {
	return &IndexFilterScan{cancelCheck: cancelCheck{tx: txh}, ix: ix, tx: tx, pred: pred, partIx: partIx, parts: parts}
}

func (s *IndexFilterScan) Open() error {
	var cur types.RecordCursor
	var err error
	if s.parts > 1 && s.ix.SupportsPartitioning() {
		cur, err = s.ix.FilterRange(s.tx, s.pred, s.partIx, s.parts)
	} else {
		cur, err = s.ix.Filter(s.tx, s.pred)
	}
	if err != nil {
		return err
	}
	s.cur = cur
	return nil
}

func (s *IndexFilterScan) Next() (types.Record, bool, error) {
	if err := s.check(); err != nil {
		return wrapCancellation(err)
	}
	return s.cur.Next()
}

func (s *IndexFilterScan) Close() error { return nil }
