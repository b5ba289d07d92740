package types

// ValueStatistics is a running summary over every Value ever stored in one
// column (spec §3: "statistics form a monoid over insert/delete/update").
// It tracks enough to drive the planner's cost model and the VAF/PQ/GG
// index builders' normalization without re-scanning the column: null and
// non-null counts, scalar min/max, and for vector columns a per-dimension
// min/max/sum (from which the builders derive a mean vector). Fresh is
// cleared on Update/Delete and only Recompute (a full column scan) can set
// it again — it is read by the statistics scrubber and by
// column.Statistics to decide whether a recompute is needed.
type ValueStatistics struct {
	numNull    int64
	numNonNull int64

	// scalar columns only
	min ScalarValue
	max ScalarValue

	// vector columns only: per-dimension accumulators
	dimMin []float64
	dimMax []float64
	dimSum []float64

	// string columns only: byte-width extrema of the stored string
	minWidth int
	maxWidth int

	fresh bool
}

// NewValueStatistics returns a zeroed ValueStatistics for a column, marked
// fresh (nothing inserted yet is vacuously consistent with an empty column).
func NewValueStatistics() *ValueStatistics {
	return &ValueStatistics{fresh: true, minWidth: -1, maxWidth: -1}
}

func (s *ValueStatistics) NumNull() int64    { return s.numNull }
func (s *ValueStatistics) NumNonNull() int64 { return s.numNonNull }
func (s *ValueStatistics) Count() int64      { return s.numNull + s.numNonNull }
func (s *ValueStatistics) Fresh() bool       { return s.fresh }
func (s *ValueStatistics) Min() ScalarValue  { return s.min }
func (s *ValueStatistics) Max() ScalarValue  { return s.max }

// MeanVector returns the per-dimension mean of every vector seen by Insert,
// or nil if no vector has been recorded yet.
func (s *ValueStatistics) MeanVector() []float64 {
	if s.dimSum == nil || s.numNonNull == 0 {
		return nil
	}
	mean := make([]float64, len(s.dimSum))
	for i, sum := range s.dimSum {
		mean[i] = sum / float64(s.numNonNull)
	}
	return mean
}

func (s *ValueStatistics) DimMin() []float64 { return s.dimMin }
func (s *ValueStatistics) DimMax() []float64 { return s.dimMax }

// MinWidth and MaxWidth return the byte-width extrema observed for
// variable-width (String) values, or (-1, -1) if none have been recorded.
func (s *ValueStatistics) MinWidth() int { return s.minWidth }
func (s *ValueStatistics) MaxWidth() int { return s.maxWidth }

// Insert folds a newly-written value into the running statistics.
func (s *ValueStatistics) Insert(v Value) {
	if v == nil {
		s.numNull++
		return
	}
	s.numNonNull++
	s.foldScalar(v)
	s.foldVector(v)
	s.foldWidth(v)
}

// Delete retracts a previously-inserted value. min/max/dimMin/dimMax are
// monotone approximations under deletion: a deleted value that happened to
// be the extremum is not re-derived from the remaining population until
// Recompute runs, which is why Delete clears fresh.
func (s *ValueStatistics) Delete(v Value) {
	if v == nil {
		if s.numNull > 0 {
			s.numNull--
		}
		return
	}
	if s.numNonNull > 0 {
		s.numNonNull--
	}
	if vec, ok := v.(VectorValue); ok {
		comp := vec.Components()
		for i, c := range comp {
			if i < len(s.dimSum) {
				s.dimSum[i] -= c
			}
		}
	}
	s.fresh = false
}

// Update retracts old and folds in new, treating a NULL-to-non-NULL or
// non-NULL-to-NULL transition correctly.
func (s *ValueStatistics) Update(old, new Value) {
	s.Delete(old)
	if new == nil {
		s.numNull++
		return
	}
	s.numNonNull++
	s.foldScalar(new)
	s.foldVector(new)
	s.foldWidth(new)
	s.fresh = false
}

func (s *ValueStatistics) foldScalar(v Value) {
	sv, ok := v.(ScalarValue)
	if !ok {
		return
	}
	if s.min == nil {
		s.min, s.max = sv, sv
		return
	}
	if c, err := sv.CompareTo(s.min); err == nil && c < 0 {
		s.min = sv
	}
	if c, err := sv.CompareTo(s.max); err == nil && c > 0 {
		s.max = sv
	}
}

func (s *ValueStatistics) foldVector(v Value) {
	vec, ok := v.(VectorValue)
	if !ok {
		return
	}
	comp := vec.Components()
	if s.dimSum == nil {
		s.dimSum = make([]float64, len(comp))
		s.dimMin = make([]float64, len(comp))
		s.dimMax = make([]float64, len(comp))
		copy(s.dimMin, comp)
		copy(s.dimMax, comp)
	}
	for i, c := range comp {
		if i >= len(s.dimSum) {
			break
		}
		s.dimSum[i] += c
		if c < s.dimMin[i] {
			s.dimMin[i] = c
		}
		if c > s.dimMax[i] {
			s.dimMax[i] = c
		}
	}
}

func (s *ValueStatistics) foldWidth(v Value) {
	sv, ok := v.(StringValue)
	if !ok {
		return
	}
	w := len(string(sv))
	if s.minWidth < 0 || w < s.minWidth {
		s.minWidth = w
	}
	if w > s.maxWidth {
		s.maxWidth = w
	}
}

// SetCounts, SetMin, SetMax, SetDims, SetWidths and SetFresh let a
// persistence layer (pkg/catalog) reconstruct a ValueStatistics from its
// serialized form without exposing the struct's fields directly.
func (s *ValueStatistics) SetCounts(numNull, numNonNull int64) {
	s.numNull, s.numNonNull = numNull, numNonNull
}
func (s *ValueStatistics) SetMin(v Value) { s.min, _ = v.(ScalarValue) }
func (s *ValueStatistics) SetMax(v Value) { s.max, _ = v.(ScalarValue) }
func (s *ValueStatistics) SetDims(min, max, sum []float64) {
	s.dimMin, s.dimMax, s.dimSum = min, max, sum
}
func (s *ValueStatistics) SetWidths(min, max int) { s.minWidth, s.maxWidth = min, max }
func (s *ValueStatistics) SetFresh(fresh bool)    { s.fresh = fresh }

// Recompute replaces the receiver's contents with a from-scratch scan over
// values, marking the result fresh. Callers (the statistics scrubber) use
// this to repair the monotone approximation Delete/Update leave behind.
func (s *ValueStatistics) Recompute(values []Value) {
	fresh := NewValueStatistics()
	for _, v := range values {
		fresh.Insert(v)
	}
	fresh.fresh = true
	*s = *fresh
}
