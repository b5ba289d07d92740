package exec

import (
	"sort"

	"github.com/latticedb/lattice/pkg/index"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/txn"
	"github.com/latticedb/lattice/pkg/types"
)

// PartitionedIndexScan fans an Index.FilterRange call across parts
// disjoint tuple-id sub-ranges (spec §4.4.3). Unlike IndexFilterScan,
// which reuses the query's ambient Tx for every partition, each partition
// here is read inside its own store.View call, so each gets its own
// independent read snapshot instead of sharing one across partitions.
//
// Store only hands out callback-scoped transactions (see pkg/storage), so
// a partition's results are drained to a slice before its View call
// returns; the operator as a whole still streams from that materialized
// slice like any other source operator.
type PartitionedIndexScan struct {
	cancelCheck
	store storage.Store
	ix    index.Index
	pred  index.Predicate
	parts int

	recs []types.Record
	pos  int
}

// NewPartitionedIndexScan builds a source operator that only makes sense
// when ix.SupportsPartitioning() and parts > 1; callers (the planner's
// PhysPartitionedIndexScan) are expected to have already checked both.
func NewPartitionedIndexScan(store storage.Store, txh *txn.Transaction, ix index.Index, pred index.Predicate, parts int) *PartitionedIndexScan {
	return &PartitionedIndexScan{cancelCheck: cancelCheck{tx: txh}, store: store, ix: ix, pred: pred, parts: parts}
}

func (s *PartitionedIndexScan) Open() error {
	seen := make(map[types.TupleId]bool)
	var merged []types.Record

	for i := 0; i < s.parts; i++ {
		if err := s.check(); err != nil {
			return err
		}
		partIx := i
		err := s.store.View(func(tx storage.Tx) error {
			cur, err := s.ix.FilterRange(tx, s.pred, partIx, s.parts)
			if err != nil {
				return err
			}
			for {
				rec, ok, err := cur.Next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if seen[rec.Tuple] {
					continue
				}
				seen[rec.Tuple] = true
				merged = append(merged, rec)
			}
		})
		if err != nil {
			return err
		}
	}

	if knn, ok := s.pred.(index.KNNPredicate); ok {
		merged = reRankKNN(merged, knn)
	}
	s.recs = merged
	return nil
}

func (s *PartitionedIndexScan) Next() (types.Record, bool, error) {
	if err := s.check(); err != nil {
		return wrapCancellation(err)
	}
	if s.pos >= len(s.recs) {
		return types.Record{}, false, nil
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, true, nil
}

func (s *PartitionedIndexScan) Close() error { return nil }

// reRankKNN re-sorts a partition-merged candidate set by true distance to
// knn.Query and truncates to the global top K. Each partition only
// guarantees its own local top K, so the union of every partition's
// candidates needs one more ranking pass to match what a single
// unpartitioned Filter call over the whole index would have returned.
func reRankKNN(recs []types.Record, knn index.KNNPredicate) []types.Record {
	type scored struct {
		rec  types.Record
		dist float64
	}
	scoredRecs := make([]scored, 0, len(recs))
	for _, rec := range recs {
		v, ok := rec.Get(knn.Col)
		if !ok {
			continue
		}
		vec, ok := v.(types.VectorValue)
		if !ok {
			continue
		}
		scoredRecs = append(scoredRecs, scored{rec: rec, dist: index.Distance(knn.Query, vec.Components(), knn.Kernel)})
	}
	sort.Slice(scoredRecs, func(i, j int) bool { return scoredRecs[i].dist < scoredRecs[j].dist })
	if len(scoredRecs) > knn.K {
		scoredRecs = scoredRecs[:knn.K]
	}
	out := make([]types.Record, len(scoredRecs))
	for i, sr := range scoredRecs {
		out[i] = sr.rec
	}
	return out
}
