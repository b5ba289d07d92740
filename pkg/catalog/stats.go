package catalog

import "github.com/latticedb/lattice/pkg/types"

// encodeStats projects a live ValueStatistics into its persisted form.
// Scalar min/max round-trip exactly through the column's registered Codec;
// kinds with no Codec (the complex scalars, which have no CompareTo order
// to begin with) persist without min/max, matching types.ValueStatistics'
// own behavior for those kinds.
func encodeStats(kind types.Kind, s *types.ValueStatistics) statsRecord {
	rec := statsRecord{
		NumNull:    s.NumNull(),
		NumNonNull: s.NumNonNull(),
		DimMin:     s.DimMin(),
		DimMax:     s.DimMax(),
		MinWidth:   s.MinWidth(),
		MaxWidth:   s.MaxWidth(),
		Fresh:      s.Fresh(),
	}
	if c := types.CodecFor(kind); c != nil {
		if min := s.Min(); min != nil {
			rec.HasScalar = true
			rec.MinEncoded = c.Encode(nil, min)
		}
		if max := s.Max(); max != nil {
			rec.HasScalar = true
			rec.MaxEncoded = c.Encode(nil, max)
		}
	}
	if sum := s.MeanVector(); sum != nil {
		rec.DimSum = make([]float64, len(sum))
		for i, mean := range sum {
			rec.DimSum[i] = mean * float64(s.NumNonNull())
		}
	}
	return rec
}

// decodeStats reconstructs a ValueStatistics from its persisted form. The
// result is a best-effort snapshot: Insert/Delete/Update keep evolving it
// in-band afterward exactly as if it had been built live.
func decodeStats(kind types.Kind, rec statsRecord) *types.ValueStatistics {
	s := types.NewValueStatistics()
	s.SetCounts(rec.NumNull, rec.NumNonNull)
	if rec.HasScalar {
		c := types.CodecFor(kind)
		if c != nil {
			if len(rec.MinEncoded) > 0 {
				if v, _, err := c.Decode(rec.MinEncoded); err == nil {
					s.SetMin(v)
				}
			}
			if len(rec.MaxEncoded) > 0 {
				if v, _, err := c.Decode(rec.MaxEncoded); err == nil {
					s.SetMax(v)
				}
			}
		}
	}
	s.SetDims(rec.DimMin, rec.DimMax, rec.DimSum)
	s.SetWidths(rec.MinWidth, rec.MaxWidth)
	s.SetFresh(rec.Fresh)
	return s
}
