package index

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

var keyGroupMeans = []byte("~groups")

// groupMeans is the persisted group-center table: NumGroups mean vectors,
// one per greedily-formed cluster (spec §4.4.5).
type groupMeans struct {
	NumGroups int         `json:"num_groups"`
	Means     [][]float64 `json:"means"`
	Counts    []int64     `json:"counts"`
}

// refineFraction is the share of groups, ordered by mean-distance to the
// query, that Filter refines member-by-member.
const refineFraction = 0.10

// Grouping is the greedy pre-clustering approximate k-NN index (spec
// §4.4.5): vectors are partitioned once into num_groups clusters by
// nearest-seed assignment, each group's membership persisted in a nested
// bucket keyed by group index. Filter narrows to the closest 10% of
// groups by mean-distance, then exact-scores every member of those
// groups.
type Grouping struct {
	base
	numGroups int
	seed      int64
}

func NewGrouping(name catalog.IndexName, col *column.Column, colDef types.ColumnDef, numGroups int, seed int64) (*Grouping, error) {
	if numGroups < 1 {
		return nil, fmt.Errorf("index: Grouping: num_groups must be >= 1")
	}
	return &Grouping{base: newBase(name, catalog.IndexGrouping, col, colDef), numGroups: numGroups, seed: seed}, nil
}

func (ix *Grouping) CanProcess(p Predicate) bool {
	knn, ok := p.(KNNPredicate)
	return ok && knn.Column() == ix.colDef.Name()
}

func (ix *Grouping) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return InvalidCost, err
	}
	count := float64(stats.NumNonNull())
	dim := float64(ix.colDef.Type().LogicalSize)
	groups := float64(ix.numGroups)
	refined := count * refineFraction // expected member count under the refined groups, assuming uniform membership
	return Cost{
		IO:     groups*ioUnit + refined*ioUnit,
		CPU:    groups*dim*cpuUnit + refined*dim*cpuUnit,
		Memory: groups * dim,
	}, nil
}

func (ix *Grouping) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "Grouping.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

func groupKey(i int) []byte {
	return []byte(fmt.Sprintf("grp_%06d", i))
}

// Rebuild performs a single greedy assignment pass: seeds are a
// deterministic random sample of the column, then every vector joins its
// nearest seed, updating that group's running mean (spec §4.4.5: "greedy
// pre-clustering", one pass, no Lloyd-style refinement).
func (ix *Grouping) Rebuild(tx storage.Tx) error {
	cur, err := ix.col.Cursor(tx, nil)
	if err != nil {
		return err
	}
	var ids []types.TupleId
	var vecs [][]float64
	for cur.Valid() {
		id, v, err := cur.Entry()
		if err != nil {
			return err
		}
		if v != nil {
			ids = append(ids, id)
			vecs = append(vecs, v.(types.VectorValue).Components())
		}
		cur.Next()
	}

	numGroups := ix.numGroups
	if numGroups > len(vecs) {
		numGroups = len(vecs)
	}
	if numGroups == 0 {
		numGroups = 1
	}
	rng := rand.New(rand.NewSource(ix.seed))
	perm := rng.Perm(len(vecs))

	gm := groupMeans{NumGroups: numGroups}
	gm.Means = make([][]float64, numGroups)
	gm.Counts = make([]int64, numGroups)
	for i := 0; i < numGroups; i++ {
		if len(vecs) == 0 {
			gm.Means[i] = nil
			continue
		}
		gm.Means[i] = append([]float64(nil), vecs[perm[i]]...)
	}

	members := make([][]types.TupleId, numGroups)
	for i, v := range vecs {
		best, bestDist := 0, math.Inf(1)
		for g, mean := range gm.Means {
			d := sqDist(v, mean)
			if d < bestDist {
				best, bestDist = g, d
			}
		}
		members[best] = append(members[best], ids[i])
		gm.Counts[best]++
		n := float64(gm.Counts[best])
		for d := range gm.Means[best] {
			gm.Means[best][d] += (v[d] - gm.Means[best][d]) / n
		}
	}

	_ = tx.DeleteBucket(ix.base.bucket)
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	data, err := json.Marshal(gm)
	if err != nil {
		return err
	}
	if err := b.Put(keyGroupMeans, data); err != nil {
		return err
	}
	for g, ts := range members {
		if len(ts) == 0 {
			continue
		}
		nb, err := b.CreateNestedBucketIfNotExists(groupKey(g))
		if err != nil {
			return err
		}
		for _, id := range ts {
			if err := nb.Put(tupleBytes(id), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ix *Grouping) Update(tx storage.Tx, op DataOp) error {
	return dberrors.New(dberrors.KindUnsupportedPredicate, "Grouping.Update", fmt.Errorf("grouping index has no incremental update"))
}

func (ix *Grouping) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *Grouping) loadMeans(tx storage.Tx) (groupMeans, storage.Bucket, error) {
	b, err := ix.bucket(tx, false)
	if err != nil {
		return groupMeans{}, nil, err
	}
	data := b.Get(keyGroupMeans)
	if data == nil {
		return groupMeans{}, nil, dberrors.New(dberrors.KindIndexDoesNotExist, "Grouping.loadMeans", fmt.Errorf("index %q has no groups, rebuild required", ix.name))
	}
	var gm groupMeans
	if err := json.Unmarshal(data, &gm); err != nil {
		return groupMeans{}, nil, dberrors.New(dberrors.KindDataCorruption, "Grouping.loadMeans", err)
	}
	return gm, b, nil
}

func (ix *Grouping) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	knn, ok := p.(KNNPredicate)
	if !ok {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "Grouping.Filter", fmt.Errorf("%T", p))
	}
	gm, b, err := ix.loadMeans(tx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		group int
		dist  float64
	}
	order := make([]scored, 0, gm.NumGroups)
	for g, mean := range gm.Means {
		if mean == nil {
			continue
		}
		order = append(order, scored{group: g, dist: distance(knn.Query, mean, knn.Kernel)})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].dist < order[j].dist })

	refine := int(math.Ceil(refineFraction * float64(len(order))))
	if refine < 1 {
		refine = 1
	}
	if refine > len(order) {
		refine = len(order)
	}

	var records []types.Record
	for _, s := range order[:refine] {
		nb := b.NestedBucket(groupKey(s.group))
		if nb == nil {
			continue
		}
		c := nb.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			id := bytesToTuple(k)
			val, err := ix.col.Get(tx, id)
			if err != nil {
				return nil, err
			}
			if val == nil {
				continue
			}
			records = append(records, types.NewRecord(id, ix.Produces(), []types.Value{val}))
		}
	}

	// Exact top-k among the refined candidates.
	sort.Slice(records, func(i, j int) bool {
		vi := records[i].Values[0].(types.VectorValue).Components()
		vj := records[j].Values[0].(types.VectorValue).Components()
		return distance(knn.Query, vi, knn.Kernel) < distance(knn.Query, vj, knn.Kernel)
	})
	if len(records) > knn.K {
		records = records[:knn.K]
	}
	return types.NewRecordSlice(records), nil
}

func (ix *Grouping) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
	return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "Grouping.FilterRange", fmt.Errorf("grouping index does not support partitioning"))
}

func (ix *Grouping) SupportsIncrementalUpdate() bool { return false }
func (ix *Grouping) SupportsPartitioning() bool       { return false }
func (ix *Grouping) Order() []OrderedColumn           { return nil }
