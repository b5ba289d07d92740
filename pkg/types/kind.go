package types

import "fmt"

// Kind is the type discriminator ordinal. Ordinal values are part of the
// on-disk format (spec §2.6.1, "ordinal + size pair is canonical for
// on-disk type identity") and must never be reordered.
type Kind uint8

const (
	KindBool Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindDate
	KindString
	KindComplex32 // two float32 components (Go complex64)
	KindComplex64 // two float64 components (Go complex128)

	KindBoolVec
	KindIntVec
	KindLongVec
	KindFloatVec
	KindDoubleVec
	KindComplex32Vec
	KindComplex64Vec
)

var kindNames = map[Kind]string{
	KindBool:         "BOOLEAN",
	KindByte:         "BYTE",
	KindShort:        "SHORT",
	KindInt:          "INTEGER",
	KindLong:         "LONG",
	KindFloat:        "FLOAT",
	KindDouble:       "DOUBLE",
	KindDate:         "DATE",
	KindString:       "STRING",
	KindComplex32:    "COMPLEX32",
	KindComplex64:    "COMPLEX64",
	KindBoolVec:      "BOOLEAN_VECTOR",
	KindIntVec:       "INTEGER_VECTOR",
	KindLongVec:      "LONG_VECTOR",
	KindFloatVec:     "FLOAT_VECTOR",
	KindDoubleVec:    "DOUBLE_VECTOR",
	KindComplex32Vec: "COMPLEX32_VECTOR",
	KindComplex64Vec: "COMPLEX64_VECTOR",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// elemSize is the per-element physical byte width, used to derive
// Type.PhysicalSize from LogicalSize.
var elemSize = map[Kind]int{
	KindBool:         1,
	KindByte:         1,
	KindShort:        2,
	KindInt:          4,
	KindLong:         8,
	KindFloat:        4,
	KindDouble:       8,
	KindDate:         8,
	KindString:       1, // variable width; PhysicalSize is not meaningful for String
	KindComplex32:    8,
	KindComplex64:    16,
	KindBoolVec:      1,
	KindIntVec:       4,
	KindLongVec:      8,
	KindFloatVec:     4,
	KindDoubleVec:    8,
	KindComplex32Vec: 8,
	KindComplex64Vec: 16,
}

// IsVector reports whether k is a vector kind.
func (k Kind) IsVector() bool {
	switch k {
	case KindBoolVec, KindIntVec, KindLongVec, KindFloatVec, KindDoubleVec, KindComplex32Vec, KindComplex64Vec:
		return true
	default:
		return false
	}
}

// Type is the tagged scalar/vector type discriminator of spec §3. Identity
// is (Kind, LogicalSize): two Types with the same Kind but different
// LogicalSize are different column types.
type Type struct {
	Kind        Kind
	LogicalSize int // vector dimension, or 1 for scalars
}

// Scalar constructs a scalar Type for k. Panics if k is a vector kind.
func Scalar(k Kind) Type {
	if k.IsVector() {
		panic(fmt.Sprintf("types.Scalar: %s is a vector kind", k))
	}
	return Type{Kind: k, LogicalSize: 1}
}

// Vector constructs a vector Type of the given dimension. Panics if k is
// not a vector kind or dim < 1.
func Vector(k Kind, dim int) Type {
	if !k.IsVector() {
		panic(fmt.Sprintf("types.Vector: %s is not a vector kind", k))
	}
	if dim < 1 {
		panic("types.Vector: dimension must be >= 1")
	}
	return Type{Kind: k, LogicalSize: dim}
}

// PhysicalSize is the on-disk byte width of a value of this Type, excluding
// any framing (e.g. String's variable length is not included here; codecs
// frame it explicitly).
func (t Type) PhysicalSize() int {
	return elemSize[t.Kind] * t.LogicalSize
}

func (t Type) IsVector() bool { return t.Kind.IsVector() }

func (t Type) String() string {
	if t.Kind.IsVector() {
		return fmt.Sprintf("%s[%d]", t.Kind, t.LogicalSize)
	}
	return t.Kind.String()
}

// Equal reports whether t and o have the same on-disk identity.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.LogicalSize == o.LogicalSize
}
