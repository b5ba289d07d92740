package index

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

var keyLSHPlanes = []byte("~planes")

// SamplingMethod selects how LSH's random hyperplane normals are drawn.
type SamplingMethod int

const (
	SamplingGaussian SamplingMethod = iota
	SamplingRademacher
)

// lshPlanes is the persisted hash family: Stages independent sets of
// Bits hyperplane normals each, over a (possibly imaginary-doubled)
// component space (spec §4.4.6).
type lshPlanes struct {
	Stages  int         `json:"stages"`
	Buckets int         `json:"buckets"`
	Bits    int         `json:"bits"`
	Dim     int         `json:"dim"`
	Normals [][][]float64 `json:"normals"` // [stage][bit][dim]
}

// LSH is the super-bit locality-sensitive-hashing approximate k-NN index
// (spec §4.4.6): each stage hashes a vector to one of Buckets via a small
// family of random hyperplanes, and Filter unions the candidate tuples
// across every stage's matching bucket before exact re-ranking.
type LSH struct {
	base
	stages           int
	buckets          int
	seed             int64
	considerImaginary bool
	sampling         SamplingMethod
}

func NewLSH(name catalog.IndexName, col *column.Column, colDef types.ColumnDef, stages, buckets int, seed int64, considerImaginary bool, sampling SamplingMethod) (*LSH, error) {
	if stages < 1 {
		return nil, fmt.Errorf("index: LSH: stages must be >= 1")
	}
	if buckets < 2 {
		return nil, fmt.Errorf("index: LSH: buckets must be >= 2")
	}
	return &LSH{
		base:              newBase(name, catalog.IndexLSH, col, colDef),
		stages:            stages,
		buckets:           buckets,
		seed:              seed,
		considerImaginary: considerImaginary,
		sampling:          sampling,
	}, nil
}

func (ix *LSH) CanProcess(p Predicate) bool {
	knn, ok := p.(KNNPredicate)
	return ok && knn.Column() == ix.colDef.Name()
}

func (ix *LSH) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return InvalidCost, err
	}
	count := float64(stats.NumNonNull())
	dim := float64(ix.colDef.Type().LogicalSize)
	stages := float64(ix.stages)
	bits := float64(bitsFor(ix.buckets))
	return Cost{
		IO:     stages * ioUnit,
		CPU:    stages*bits*dim*cpuUnit + count/float64(ix.buckets)*stages*dim*cpuUnit,
		Memory: stages * dim * bits,
	}, nil
}

func bitsFor(buckets int) int {
	bits := 0
	for (1 << uint(bits)) < buckets {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

func (ix *LSH) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "LSH.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

func bucketKey(stage, bucket int) []byte {
	return []byte(fmt.Sprintf("s%04d_b%08d", stage, bucket))
}

// expand widens a vector's component list with its imaginary parts when
// the column holds a complex vector and considerImaginary is set (without
// it, only the real parts are used); for real-valued vectors it is the
// identity.
func (ix *LSH) expand(v types.VectorValue) []float64 {
	comp := v.Components()
	if ix.considerImaginary {
		return comp // Components() already interleaves real/imaginary for complex vector kinds (types.Complex32VecValue/Complex64VecValue)
	}
	switch v.(type) {
	case types.Complex32VecValue, types.Complex64VecValue:
		re := make([]float64, len(comp)/2)
		for i := range re {
			re[i] = comp[2*i]
		}
		return re
	}
	return comp
}

func (ix *LSH) drawNormal(rng *rand.Rand, dim int) []float64 {
	n := make([]float64, dim)
	for i := range n {
		switch ix.sampling {
		case SamplingRademacher:
			if rng.Intn(2) == 0 {
				n[i] = -1
			} else {
				n[i] = 1
			}
		default:
			n[i] = rng.NormFloat64()
		}
	}
	return n
}

// Rebuild draws a fresh hyperplane family, then scans the whole column
// hashing every vector into its per-stage bucket (spec §4.4.6).
func (ix *LSH) Rebuild(tx storage.Tx) error {
	dim := ix.colDef.Type().LogicalSize
	if ix.considerImaginary {
		dim *= 2
	}
	bits := bitsFor(ix.buckets)

	rng := rand.New(rand.NewSource(ix.seed))
	planes := lshPlanes{Stages: ix.stages, Buckets: ix.buckets, Bits: bits, Dim: dim}
	planes.Normals = make([][][]float64, ix.stages)
	for s := 0; s < ix.stages; s++ {
		planes.Normals[s] = make([][]float64, bits)
		for bIdx := 0; bIdx < bits; bIdx++ {
			planes.Normals[s][bIdx] = ix.drawNormal(rng, dim)
		}
	}

	_ = tx.DeleteBucket(ix.base.bucket)
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	data, err := json.Marshal(planes)
	if err != nil {
		return err
	}
	if err := b.Put(keyLSHPlanes, data); err != nil {
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
			comp := ix.expand(v.(types.VectorValue))
			for s := 0; s < ix.stages; s++ {
				bid := ix.hash(planes, s, comp)
				nb, err := b.CreateNestedBucketIfNotExists(bucketKey(s, bid))
				if err != nil {
					return err
				}
				if err := nb.Put(tupleBytes(id), nil); err != nil {
					return err
				}
			}
		}
		cur.Next()
	}
	return nil
}

func (ix *LSH) hash(planes lshPlanes, stage int, comp []float64) int {
	var h int
	for _, normal := range planes.Normals[stage] {
		var dot float64
		for i, c := range comp {
			dot += c * normal[i]
		}
		h <<= 1
		if dot >= 0 {
			h |= 1
		}
	}
	return h % planes.Buckets
}

func (ix *LSH) Update(tx storage.Tx, op DataOp) error {
	return dberrors.New(dberrors.KindUnsupportedPredicate, "LSH.Update", fmt.Errorf("super-bit LSH has no incremental update"))
}

func (ix *LSH) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *LSH) loadPlanes(tx storage.Tx) (lshPlanes, storage.Bucket, error) {
	b, err := ix.bucket(tx, false)
	if err != nil {
		return lshPlanes{}, nil, err
	}
	data := b.Get(keyLSHPlanes)
	if data == nil {
		return lshPlanes{}, nil, dberrors.New(dberrors.KindIndexDoesNotExist, "LSH.loadPlanes", fmt.Errorf("index %q has no planes, rebuild required", ix.name))
	}
	var planes lshPlanes
	if err := json.Unmarshal(data, &planes); err != nil {
		return lshPlanes{}, nil, dberrors.New(dberrors.KindDataCorruption, "LSH.loadPlanes", err)
	}
	return planes, b, nil
}

func (ix *LSH) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	knn, ok := p.(KNNPredicate)
	if !ok {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "LSH.Filter", fmt.Errorf("%T", p))
	}
	planes, b, err := ix.loadPlanes(tx)
	if err != nil {
		return nil, err
	}

	comp := knn.Query
	if ix.considerImaginary && len(comp) < planes.Dim {
		padded := make([]float64, planes.Dim)
		copy(padded, comp)
		comp = padded
	}

	seen := make(map[types.TupleId]bool)
	var records []types.Record
	for s := 0; s < planes.Stages; s++ {
		bid := ix.hash(planes, s, comp)
		nb := b.NestedBucket(bucketKey(s, bid))
		if nb == nil {
			continue
		}
		c := nb.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			id := bytesToTuple(k)
			if seen[id] {
				continue
			}
			seen[id] = true
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

func (ix *LSH) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
	return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "LSH.FilterRange", fmt.Errorf("LSH index does not support partitioning"))
}

func (ix *LSH) SupportsIncrementalUpdate() bool { return false }
func (ix *LSH) SupportsPartitioning() bool       { return false }
func (ix *LSH) Order() []OrderedColumn           { return nil }
