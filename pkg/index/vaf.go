package index

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"

	"github.com/latticedb/lattice/pkg/catalog"
	"github.com/latticedb/lattice/pkg/column"
	"github.com/latticedb/lattice/pkg/dberrors"
	"github.com/latticedb/lattice/pkg/storage"
	"github.com/latticedb/lattice/pkg/types"
)

var keyVAFMarks = []byte("~marks")

// vafMarks is the per-dimension boundary array persisted at keyVAFMarks.
type vafMarks struct {
	MarksPerDim int         `json:"marks_per_dim"`
	Bounds      [][]float64 `json:"bounds"` // Bounds[dim][0..marksPerDim]
}

// VAFile is the VA-file approximate k-NN index (spec §4.4.3): every
// vector is reduced to a compact per-dimension cell signature, and
// filtering uses a provable lower bound on the true distance (derived
// from the signature and the marks alone) to skip candidates that cannot
// beat the current top-k.
type VAFile struct {
	base
	marksPerDim int
}

// NewVAFile constructs a VAFile index. marksPerDim comes from the index's
// catalog config ("marks_per_dimension"), defaulting to 8.
func NewVAFile(name catalog.IndexName, col *column.Column, colDef types.ColumnDef, marksPerDim int) *VAFile {
	if marksPerDim <= 0 {
		marksPerDim = 8
	}
	return &VAFile{base: newBase(name, catalog.IndexVAFile, col, colDef), marksPerDim: marksPerDim}
}

func (ix *VAFile) CanProcess(p Predicate) bool {
	knn, ok := p.(KNNPredicate)
	return ok && knn.Column() == ix.colDef.Name()
}

func (ix *VAFile) Cost(tx storage.Tx, p Predicate) (Cost, error) {
	if !ix.CanProcess(p) {
		return InvalidCost, nil
	}
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return InvalidCost, err
	}
	count := float64(stats.NumNonNull())
	dim := float64(ix.colDef.Type().LogicalSize)
	return Cost{
		IO:     count * (0.9 + 0.1*dim) * ioUnit,
		CPU:    count * (0.9*(2*memUnit+flopUnit) + 0.1*dim*flopUnit),
		Memory: count * dim, // signature storage, 1 byte/dim
	}, nil
}

func (ix *VAFile) bucket(tx storage.Tx, create bool) (storage.Bucket, error) {
	if create {
		return tx.CreateBucketIfNotExists(ix.base.bucket)
	}
	b := tx.Bucket(ix.base.bucket)
	if b == nil {
		return nil, dberrors.New(dberrors.KindIndexDoesNotExist, "VAFile.bucket", fmt.Errorf("index %q", ix.name))
	}
	return b, nil
}

// Rebuild recomputes marks from the column's statistics (spec §4.4.3
// steps 1-2), persists them, then rescans the whole column writing a
// fresh signature per tuple.
func (ix *VAFile) Rebuild(tx storage.Tx) error {
	stats, err := ix.col.Statistics(tx)
	if err != nil {
		return err
	}
	dimMin, dimMax := stats.DimMin(), stats.DimMax()
	dim := ix.colDef.Type().LogicalSize
	if len(dimMin) != dim {
		dimMin = make([]float64, dim)
		dimMax = make([]float64, dim)
		for i := range dimMax {
			dimMax[i] = 1
		}
	}

	marks := vafMarks{MarksPerDim: ix.marksPerDim, Bounds: make([][]float64, dim)}
	for i := 0; i < dim; i++ {
		bounds := make([]float64, ix.marksPerDim+1)
		span := dimMax[i] - dimMin[i]
		for j := range bounds {
			bounds[j] = dimMin[i] + float64(j)*span/float64(ix.marksPerDim)
		}
		marks.Bounds[i] = bounds
	}

	_ = tx.DeleteBucket(ix.base.bucket)
	b, err := ix.bucket(tx, true)
	if err != nil {
		return err
	}
	marksData, err := json.Marshal(marks)
	if err != nil {
		return err
	}
	if err := b.Put(keyVAFMarks, marksData); err != nil {
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
			sig := ix.signature(marks, v.(types.VectorValue).Components())
			if err := b.Put(tupleBytes(id), sig); err != nil {
				return err
			}
		}
		cur.Next()
	}
	return nil
}

func (ix *VAFile) signature(marks vafMarks, components []float64) []byte {
	sig := make([]byte, len(components))
	for i, c := range components {
		bounds := marks.Bounds[i]
		j := 0
		for j+1 < len(bounds) && bounds[j+1] <= c {
			j++
		}
		if j > 255 {
			j = 255
		}
		sig[i] = byte(j)
	}
	return sig
}

// Update always returns an error: VA-file has no incremental write model
// (spec §4.4.3: "a write-model extension point is reserved").
// SupportsIncrementalUpdate is false, so exec.Entity marks the index
// STALE instead of calling Update.
func (ix *VAFile) Update(tx storage.Tx, op DataOp) error {
	return dberrors.New(dberrors.KindUnsupportedPredicate, "VAFile.Update", fmt.Errorf("VA-file has no incremental update"))
}

func (ix *VAFile) Clear(tx storage.Tx) error {
	return tx.DeleteBucket(ix.base.bucket)
}

func (ix *VAFile) loadMarks(tx storage.Tx) (vafMarks, storage.Bucket, error) {
	b, err := ix.bucket(tx, false)
	if err != nil {
		return vafMarks{}, nil, err
	}
	data := b.Get(keyVAFMarks)
	if data == nil {
		return vafMarks{}, nil, dberrors.New(dberrors.KindIndexDoesNotExist, "VAFile.loadMarks", fmt.Errorf("index %q has no marks, rebuild required", ix.name))
	}
	var marks vafMarks
	if err := json.Unmarshal(data, &marks); err != nil {
		return vafMarks{}, nil, dberrors.New(dberrors.KindDataCorruption, "VAFile.loadMarks", err)
	}
	return marks, b, nil
}

// lowerBound computes a provable lower bound of the true distance from q
// to any vector whose signature is sig, using only the marks (spec
// §4.4.3's "bounds.is_vassa_candidate").
func lowerBound(marks vafMarks, sig []byte, q []float64, kernel DistanceKernel) float64 {
	var sum float64
	for i, cell := range sig {
		bounds := marks.Bounds[i]
		lo := bounds[cell]
		hi := math.Inf(1)
		if int(cell)+1 < len(bounds) {
			hi = bounds[cell+1]
		}
		var c float64
		switch {
		case q[i] < lo:
			c = lo - q[i]
		case q[i] > hi:
			c = q[i] - hi
		default:
			c = 0
		}
		switch kernel {
		case L1:
			sum += c
		default: // L2, L2Squared
			sum += c * c
		}
	}
	if kernel == L2 {
		return math.Sqrt(sum)
	}
	return sum
}

func distance(a, b []float64, kernel DistanceKernel) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		switch kernel {
		case L1:
			sum += math.Abs(d)
		default:
			sum += d * d
		}
	}
	if kernel == L2 {
		return math.Sqrt(sum)
	}
	return sum
}

// distRecord pairs a candidate Record with its computed distance; the
// max-heap root is always the current worst of the retained top-k, so a
// better candidate can evict it in O(log k).
type distRecord struct {
	rec  types.Record
	dist float64
}
type candidateMaxHeap []distRecord

func (h candidateMaxHeap) Len() int            { return len(h) }
func (h candidateMaxHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h candidateMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMaxHeap) Push(x interface{}) { *h = append(*h, x.(distRecord)) }
func (h *candidateMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (ix *VAFile) Filter(tx storage.Tx, p Predicate) (types.RecordCursor, error) {
	return ix.filterBounded(tx, p, nil)
}

func (ix *VAFile) FilterRange(tx storage.Tx, p Predicate, partIx, parts int) (types.RecordCursor, error) {
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
	return ix.filterBounded(tx, p, &tupleRange{lo: types.TupleId(lo), hi: types.TupleId(hi)})
}

type tupleRange struct{ lo, hi types.TupleId }

func (ix *VAFile) filterBounded(tx storage.Tx, p Predicate, rng *tupleRange) (types.RecordCursor, error) {
	knn, ok := p.(KNNPredicate)
	if !ok {
		return nil, dberrors.New(dberrors.KindUnsupportedPredicate, "VAFile.Filter", fmt.Errorf("%T", p))
	}
	marks, b, err := ix.loadMarks(tx)
	if err != nil {
		return nil, err
	}

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
		if string(k) == string(keyVAFMarks) {
			k, v = c.Next()
			continue
		}
		id := bytesToTuple(k)
		if rng != nil && id >= rng.hi {
			break
		}
		sig := v
		proceed := h.Len() < knn.K
		var bound float64
		if !proceed {
			bound = lowerBound(marks, sig, knn.Query, knn.Kernel)
			proceed = bound < (*h)[0].dist
		}
		if proceed {
			val, err := ix.col.Get(tx, id)
			if err != nil {
				return nil, err
			}
			if val != nil {
				d := distance(knn.Query, val.(types.VectorValue).Components(), knn.Kernel)
				rec := types.NewRecord(id, ix.Produces(), []types.Value{val})
				heap.Push(h, distRecord{rec: rec, dist: d})
				if h.Len() > knn.K {
					heap.Pop(h)
				}
			}
		}
		k, v = c.Next()
	}

	out := make([]types.Record, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(distRecord).rec
	}
	return types.NewRecordSlice(out), nil
}

func (ix *VAFile) SupportsIncrementalUpdate() bool { return false }
func (ix *VAFile) SupportsPartitioning() bool       { return true }
func (ix *VAFile) Order() []OrderedColumn           { return nil }
