package types

import "fmt"

// Value is a typed payload conforming to a Type (spec §3). A nil Value
// represents SQL-style NULL and is only legal for columns whose ColumnDef
// is marked nullable.
type Value interface {
	Type() Type
	LogicalSize() int
	String() string
}

// ScalarValue is implemented by every scalar Value and supports the total
// order needed for ValueStatistics min/max tracking.
type ScalarValue interface {
	Value
	// CompareTo returns -1, 0, 1 comparing the receiver to other. other
	// must have the same Type.
	CompareTo(other Value) (int, error)
}

// VectorValue is implemented by every vector Value and supports the
// elementwise arithmetic spec §3 requires for mean computation (used by
// ValueStatistics' per-dimension sum and by VAF/PQ/GG rebuild).
type VectorValue interface {
	Value
	Add(other Value) (Value, error)
	Sub(other Value) (Value, error)
	DivScalar(s float64) (Value, error)
	// Components returns a real-valued projection of the vector suitable
	// for Minkowski distance computation. For real-valued vector kinds
	// this is exact; for complex kinds it always interleaves real and
	// imaginary parts (real[0], imag[0], real[1], imag[1], ...), so the
	// result is twice the vector's dimension long.
	Components() []float64
}

func typeMismatch(op string, a, b Type) error {
	return fmt.Errorf("types: %s: type mismatch %s vs %s", op, a, b)
}
