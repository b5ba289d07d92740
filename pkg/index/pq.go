package index

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

var keyPQCodebook = []byte("~codebook")

const kmeansIterations = 8

// pqCodebook is the trained product quantizer persisted at keyPQCodebook:
// NumSubspaces sub-vectors, each with NumCentroids centroids of dimension
// SubDim (spec §4.4.4).
type pqCodebook struct {
	NumSubspaces int         `json:"num_subspaces"`
	NumCentroids int         `json:"num_centroids"`
	SubDim       int         `json:"sub_dim"`
	Centroids    [][][]float64 `json:"centroids"` // [subspace][centroid][subDim]
}

// PQIndex is the product-quantization approximate k-NN index: vectors are
// split into subspaces, each quantized independently against a trained
// k-means codebook, and the resulting signature drives a cheap
// lookup-table distance approximation with exact re-ranking.
type PQIndex struct {
	base
	numSubspaces int
	numCentroids int
	sampleSize   int
	seed         int64
}

// NewPQIndex constructs a PQIndex. dim must be divisible by numSubspaces
// for an even split (spec §4.4.4's "preferred" constraint); numCentroids
// must be in [1,127] since signatures are one byte per subspace.
func NewPQIndex(name catalog.IndexName, col *column.Column, colDef types.ColumnDef, numSubspaces, numCentroids, sampleSize int, seed int64) (*PQIndex, error) {
	dim := colDef.Type().LogicalSize
	if numSubspaces < 1 || dim < numSubspaces {
		return nil, fmt.Errorf("index: PQIndex: num_subspaces %d invalid for dimension %d", numSubspaces, dim)
	}
	if numCentroids < 1 || numCentroids > 127 {
		return nil, fmt.Errorf("index: PQIndex: num_centroids %d out of range [1,127]", numCentroids)
	}
	return &PQIndex{
		base:         newBase(name, catalog.IndexPQ, col, colDef),
		numSubspaces: numSubspaces,
		numCentroids: numCentroids,
		sampleSize:   sampleSize,
		seed:         seed,
	}, nil
}

func (ix *PQIndex) CanProcess(p Predicate) bool {
	knn, ok := p.(KNNPredicate)
	return ok && knn.Column() == ix.colDef.Name()
}

func (ix *PQIndex) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return InvalidCost, err
	}
	count := float64(stats.NumNonNull())
	return Cost{
		IO:     count * ioUnit * 0.2, // signature scan only, re-rank reads are a small constant-factor tail
		CPU:    count * float64(ix.numSubspaces) * cpuUnit,
		Memory: count * float64(ix.numSubspaces), // 1 byte/subspace
	}, nil
}

func (ix *PQIndex) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "PQIndex.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

// Rebuild samples a learning set (Bernoulli with p = sampleSize/n), trains
// the per-subspace codebook, then rescans the whole column writing a
// fresh signature per tuple (spec §4.4.4).
func (ix *PQIndex) Rebuild(tx storage.Tx) error {
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return err
	}
	n := stats.NumNonNull()
	p := 1.0
	if n > 0 && int64(ix.sampleSize) < n {
		p = float64(ix.sampleSize) / float64(n)
	}

	rng := rand.New(rand.NewSource(ix.seed))
	dim := ix.colDef.Type().LogicalSize
	subDim := dim / ix.numSubspaces

	cur, err := ix.col.Cursor(tx, nil)
	if err != nil {
		return err
	}
	learning := make([][]float64, 0, ix.sampleSize)
	var all [][]float64 // every non-null vector; used as the learning set when sampling leaves too few points
	for cur.Valid() {
		_, v, err := cur.Entry()
		if err != nil {
			return err
		}
		if v != nil {
			comp := v.(types.VectorValue).Components()
			all = append(all, comp)
			if rng.Float64() < p {
				learning = append(learning, comp)
			}
		}
		cur.Next()
	}
	if len(learning) < ix.numCentroids {
		learning = all
	}

	codebook := pqCodebook{NumSubspaces: ix.numSubspaces, NumCentroids: ix.numCentroids, SubDim: subDim}
	codebook.Centroids = make([][][]float64, ix.numSubspaces)
	for s := 0; s < ix.numSubspaces; s++ {
		sub := make([][]float64, len(learning))
		for i, v := range learning {
			sub[i] = v[s*subDim : (s+1)*subDim]
		}
		codebook.Centroids[s] = kmeans(sub, ix.numCentroids, rng)
	}

	_ = tx.DeleteBucket(ix.base.bucket)
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	data, err := json.Marshal(codebook)
	if err != nil {
		return err
	}
	if err := b.Put(keyPQCodebook, data); err != nil {
		return err
	}

	cur2, err := ix.col.Cursor(tx, nil)
	if err != nil {
		return err
	}
	for cur2.Valid() {
		id, v, err := cur2.Entry()
		if err != nil {
			return err
		}
		if v != nil {
			sig := ix.signature(codebook, v.(types.VectorValue).Components())
			if err := b.Put(tupleBytes(id), sig); err != nil {
				return err
			}
		}
		cur2.Next()
	}
	return nil
}

// kmeans runs Lloyd's algorithm for a fixed number of iterations,
// initializing centroids from a deterministic seeded sample of points
// (k is reduced to len(points) when there are fewer points than requested
// centroids).
func kmeans(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	if len(points) == 0 {
		return make([][]float64, k)
	}
	if k > len(points) {
		k = len(points)
	}
	dim := len(points[0])
	centroids := make([][]float64, k)
	perm := rng.Perm(len(points))
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i]]...)
	}

	assign := make([]int, len(points))
	for iter := 0; iter < kmeansIterations; iter++ {
		for i, pt := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := sqDist(pt, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			assign[i] = best
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, pt := range points {
			c := assign[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += pt[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return centroids
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (ix *PQIndex) signature(codebook pqCodebook, components []float64) []byte {
	sig := make([]byte, codebook.NumSubspaces)
	for s := 0; s < codebook.NumSubspaces; s++ {
		sub := components[s*codebook.SubDim : (s+1)*codebook.SubDim]
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range codebook.Centroids[s] {
			d := sqDist(sub, centroid)
			if d < bestDist {
				best, bestDist = c, d
			}
		}
		sig[s] = byte(best)
	}
	return sig
}

// Update always returns an error: PQ retrains its codebook on rebuild and
// has no incremental write model. SupportsIncrementalUpdate is false, so
// exec.Entity marks the index STALE instead of calling Update.
func (ix *PQIndex) Update(tx storage.Tx, op DataOp) error {
	return dberrors.New(dberrors.KindUnsupportedPredicate, "PQIndex.Update", fmt.Errorf("product quantization has no incremental update"))
}

func (ix *PQIndex) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *PQIndex) loadCodebook(tx storage.Tx) (pqCodebook, storage.Bucket, error) {
	b, err := ix.bucket(tx, false)
	if err != nil {
		return pqCodebook{}, nil, err
	}
	data := b.Get(keyPQCodebook)
	if data == nil {
		return pqCodebook{}, nil, dberrors.New(dberrors.KindIndexDoesNotExist, "PQIndex.loadCodebook", fmt.Errorf("index %q has no codebook, rebuild required", ix.name))
	}
	var codebook pqCodebook
	if err := json.Unmarshal(data, &codebook); err != nil {
		return pqCodebook{}, nil, dberrors.New(dberrors.KindDataCorruption, "PQIndex.loadCodebook", err)
	}
	return codebook, b, nil
}

func (ix *PQIndex) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	knn, ok := p.(KNNPredicate)
	if !ok {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "PQIndex.Filter", fmt.Errorf("%T", p))
	}
	return ix.filterBounded(tx, knn, nil)
}

// FilterRange bounds filterBounded to the disjoint tuple-id sub-range
// [lo, hi) partIx owns out of parts (spec §4.4.4: "supported by
// splitting the signature-store keyspace the same way as VAF").
func (ix *PQIndex) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
	knn, ok := p.(KNNPredicate)
	if !ok {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "PQIndex.FilterRange", fmt.Errorf("%T", p))
	}
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return nil, err
	}
	count := stats.NumNonNull()
	partSize := (count+int64(parts)-1)/int64(parts) + 1
	lo := int64(partIx) * partSize
	hi := lo + partSize
	if hi > count {
		hi = count
	}
	return ix.filterBounded(tx, knn, &tupleRange{lo: types.TupleId(lo), hi: types.TupleId(hi)})
}

func (ix *PQIndex) filterBounded(tx storage.Tx, knn KNNPredicate, rng *tupleRange) (types.RecordCursor, error) {
	codebook, b, err := ix.loadCodebook(tx)
	if err != nil {
		return nil, err
	}

	// Step 1: lookup table, per-subspace distance from q's sub-vector to
	// every centroid.
	lookup := make([][]float64, codebook.NumSubspaces)
	for s := 0; s < codebook.NumSubspaces; s++ {
		sub := knn.Query[s*codebook.SubDim : (s+1)*codebook.SubDim]
		lookup[s] = make([]float64, len(codebook.Centroids[s]))
		for c, centroid := range codebook.Centroids[s] {
			lookup[s][c] = sqDist(sub, centroid)
		}
	}

	// Step 2: pre-kNN over the cheap lookup-table approximation, within
	// the partition's tuple-id sub-range when rng is set.
	preK := int(math.Ceil(1.15 * float64(knn.K)))
	h := &candidateMaxHeap{}
	heap.Init(h)
	c := b.Cursor()
	var k, v []byte
	if rng != nil {
		k, v = c.Seek(tupleBytes(rng.lo))
	} else {
		k, v = c.First()
	}
	for k != nil {
		if string(k) == string(keyPQCodebook) {
			k, v = c.Next()
			continue
		}
		id := bytesToTuple(k)
		if rng != nil && id >= rng.hi {
			break
		}
		var approx float64
		for s, cell := range v {
			approx += lookup[s][cell]
		}
		heap.Push(h, distRecord{rec: types.NewRecord(id, nil, nil), dist: approx})
		if h.Len() > preK {
			heap.Pop(h)
		}
		k, v = c.Next()
	}

	// Step 3: exact re-ranking against the real vector.
	reranked := &candidateMaxHeap{}
	heap.Init(reranked)
	for _, cand := range *h {
		val, err := ix.col.Get(tx, cand.rec.Tuple)
		if err != nil {
			return nil, err
		}
		if val == nil {
			continue
		}
		d := distance(knn.Query, val.(types.VectorValue).Components(), knn.Kernel)
		rec := types.NewRecord(cand.rec.Tuple, ix.Produces(), []types.Value{val})
		heap.Push(reranked, distRecord{rec: rec, dist: d})
		if reranked.Len() > knn.K {
			heap.Pop(reranked)
		}
	}

	out := make([]types.Record, reranked.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(reranked).(distRecord).rec
	}
	return types.NewRecordSlice(out), nil
}

func (ix *PQIndex) SupportsIncrementalUpdate() bool { return false }
func (ix *PQIndex) SupportsPartitioning() bool       { return true }
func (ix *PQIndex) Order() []OrderedColumn           { return nil }
