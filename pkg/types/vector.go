package types

import (
	"fmt"
	"strings"
)

// numeric is the set of Go element types backing the real-valued vector
// kinds. A single generic NumericVector backs IntVec/LongVec/FloatVec/
// DoubleVec instead of four near-identical hand-written types.
type numeric interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// NumericVector is the VectorValue implementation shared by the four
// real-valued vector kinds.
type NumericVector[T numeric] struct {
	kind Kind
	data []T
}

func newNumericVector[T numeric](kind Kind, data []T) NumericVector[T] {
	return NumericVector[T]{kind: kind, data: append([]T(nil), data...)}
}

// NewIntVec constructs an INTEGER_VECTOR value.
func NewIntVec(data []int32) NumericVector[int32] { return newNumericVector(KindIntVec, data) }

// NewLongVec constructs a LONG_VECTOR value.
func NewLongVec(data []int64) NumericVector[int64] { return newNumericVector(KindLongVec, data) }

// NewFloatVec constructs a FLOAT_VECTOR value.
func NewFloatVec(data []float32) NumericVector[float32] { return newNumericVector(KindFloatVec, data) }

// NewDoubleVec constructs a DOUBLE_VECTOR value.
func NewDoubleVec(data []float64) NumericVector[float64] { return newNumericVector(KindDoubleVec, data) }

func (v NumericVector[T]) Type() Type      { return Vector(v.kind, len(v.data)) }
func (v NumericVector[T]) LogicalSize() int { return len(v.data) }
func (v NumericVector[T]) Data() []T        { return v.data }

func (v NumericVector[T]) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range v.data {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%v", e)
	}
	b.WriteByte(']')
	return b.String()
}

func (v NumericVector[T]) Components() []float64 {
	out := make([]float64, len(v.data))
	for i, e := range v.data {
		out[i] = float64(e)
	}
	return out
}

func (v NumericVector[T]) asNumericVector(op string, o Value) (NumericVector[T], error) {
	ov, ok := o.(NumericVector[T])
	if !ok || ov.kind != v.kind {
		return NumericVector[T]{}, typeMismatch(op, v.Type(), o.Type())
	}
	if len(ov.data) != len(v.data) {
		return NumericVector[T]{}, fmt.Errorf("types: %s: dimension mismatch %d vs %d", op, len(v.data), len(ov.data))
	}
	return ov, nil
}

func (v NumericVector[T]) Add(o Value) (Value, error) {
	ov, err := v.asNumericVector("Add", o)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(v.data))
	for i := range v.data {
		out[i] = v.data[i] + ov.data[i]
	}
	return NumericVector[T]{kind: v.kind, data: out}, nil
}

func (v NumericVector[T]) Sub(o Value) (Value, error) {
	ov, err := v.asNumericVector("Sub", o)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(v.data))
	for i := range v.data {
		out[i] = v.data[i] - ov.data[i]
	}
	return NumericVector[T]{kind: v.kind, data: out}, nil
}

func (v NumericVector[T]) DivScalar(s float64) (Value, error) {
	out := make([]T, len(v.data))
	for i := range v.data {
		out[i] = T(float64(v.data[i]) / s)
	}
	return NumericVector[T]{kind: v.kind, data: out}, nil
}

// BoolVecValue is a BOOLEAN_VECTOR value. Elementwise arithmetic is not
// meaningful for booleans (spec §3's "vectors support elementwise
// arithmetic" is exercised by the real-valued kinds used for k-NN); Add/
// Sub/DivScalar are unsupported and return an error instead of silently
// reinterpreting the vector as numeric.
type BoolVecValue []bool

func (v BoolVecValue) Type() Type       { return Vector(KindBoolVec, len(v)) }
func (v BoolVecValue) LogicalSize() int { return len(v) }
func (v BoolVecValue) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%t", e)
	}
	b.WriteByte(']')
	return b.String()
}
func (v BoolVecValue) Components() []float64 {
	out := make([]float64, len(v))
	for i, e := range v {
		if e {
			out[i] = 1
		}
	}
	return out
}
func (v BoolVecValue) Add(Value) (Value, error) {
	return nil, fmt.Errorf("types: BoolVecValue does not support elementwise arithmetic")
}
func (v BoolVecValue) Sub(Value) (Value, error) {
	return nil, fmt.Errorf("types: BoolVecValue does not support elementwise arithmetic")
}
func (v BoolVecValue) DivScalar(float64) (Value, error) {
	return nil, fmt.Errorf("types: BoolVecValue does not support elementwise arithmetic")
}

// Complex32VecValue is a COMPLEX32_VECTOR value (elements are complex64,
// i.e. two float32 components each).
type Complex32VecValue []complex64

func (v Complex32VecValue) Type() Type       { return Vector(KindComplex32Vec, len(v)) }
func (v Complex32VecValue) LogicalSize() int { return len(v) }
func (v Complex32VecValue) String() string   { return fmt.Sprintf("%v", []complex64(v)) }
func (v Complex32VecValue) Components() []float64 {
	out := make([]float64, 0, 2*len(v))
	for _, e := range v {
		out = append(out, float64(real(e)), float64(imag(e)))
	}
	return out
}
func (v Complex32VecValue) asComplex32Vec(op string, o Value) (Complex32VecValue, error) {
	ov, ok := o.(Complex32VecValue)
	if !ok || len(ov) != len(v) {
		return nil, typeMismatch(op, v.Type(), o.Type())
	}
	return ov, nil
}
func (v Complex32VecValue) Add(o Value) (Value, error) {
	ov, err := v.asComplex32Vec("Add", o)
	if err != nil {
		return nil, err
	}
	out := make(Complex32VecValue, len(v))
	for i := range v {
		out[i] = v[i] + ov[i]
	}
	return out, nil
}
func (v Complex32VecValue) Sub(o Value) (Value, error) {
	ov, err := v.asComplex32Vec("Sub", o)
	if err != nil {
		return nil, err
	}
	out := make(Complex32VecValue, len(v))
	for i := range v {
		out[i] = v[i] - ov[i]
	}
	return out, nil
}
func (v Complex32VecValue) DivScalar(s float64) (Value, error) {
	out := make(Complex32VecValue, len(v))
	for i := range v {
		out[i] = v[i] / complex(float32(s), 0)
	}
	return out, nil
}

// Complex64VecValue is a COMPLEX64_VECTOR value (elements are complex128).
type Complex64VecValue []complex128

func (v Complex64VecValue) Type() Type       { return Vector(KindComplex64Vec, len(v)) }
func (v Complex64VecValue) LogicalSize() int { return len(v) }
func (v Complex64VecValue) String() string   { return fmt.Sprintf("%v", []complex128(v)) }
func (v Complex64VecValue) Components() []float64 {
	out := make([]float64, 0, 2*len(v))
	for _, e := range v {
		out = append(out, real(e), imag(e))
	}
	return out
}
func (v Complex64VecValue) asComplex64Vec(op string, o Value) (Complex64VecValue, error) {
	ov, ok := o.(Complex64VecValue)
	if !ok || len(ov) != len(v) {
		return nil, typeMismatch(op, v.Type(), o.Type())
	}
	return ov, nil
}
func (v Complex64VecValue) Add(o Value) (Value, error) {
	ov, err := v.asComplex64Vec("Add", o)
	if err != nil {
		return nil, err
	}
	out := make(Complex64VecValue, len(v))
	for i := range v {
		out[i] = v[i] + ov[i]
	}
	return out, nil
}
func (v Complex64VecValue) Sub(o Value) (Value, error) {
	ov, err := v.asComplex64Vec("Sub", o)
	if err != nil {
		return nil, err
	}
	out := make(Complex64VecValue, len(v))
	for i := range v {
		out[i] = v[i] - ov[i]
	}
	return out, nil
}
func (v Complex64VecValue) DivScalar(s float64) (Value, error) {
	out := make(Complex64VecValue, len(v))
	for i := range v {
		out[i] = v[i] / complex(s, 0)
	}
	return out, nil
}
