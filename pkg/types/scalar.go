package types

import (
	"fmt"
	"time"
)

// BoolValue is a scalar KindBool Value.
type BoolValue bool

func (v BoolValue) Type() Type        { return Scalar(KindBool) }
func (v BoolValue) LogicalSize() int  { return 1 }
func (v BoolValue) String() string    { return fmt.Sprintf("%t", bool(v)) }
func (v BoolValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(BoolValue)
	if !ok {
		return 0, typeMismatch("BoolValue.CompareTo", v.Type(), o.Type())
	}
	if v == ov {
		return 0, nil
	}
	if !bool(v) && bool(ov) {
		return -1, nil
	}
	return 1, nil
}

// ByteValue is a scalar KindByte Value.
type ByteValue int8

func (v ByteValue) Type() Type       { return Scalar(KindByte) }
func (v ByteValue) LogicalSize() int { return 1 }
func (v ByteValue) String() string   { return fmt.Sprintf("%d", int8(v)) }
func (v ByteValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(ByteValue)
	if !ok {
		return 0, typeMismatch("ByteValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(int8(v), int8(ov)), nil
}

// ShortValue is a scalar KindShort Value.
type ShortValue int16

func (v ShortValue) Type() Type       { return Scalar(KindShort) }
func (v ShortValue) LogicalSize() int { return 1 }
func (v ShortValue) String() string   { return fmt.Sprintf("%d", int16(v)) }
func (v ShortValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(ShortValue)
	if !ok {
		return 0, typeMismatch("ShortValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(int16(v), int16(ov)), nil
}

// IntValue is a scalar KindInt Value.
type IntValue int32

func (v IntValue) Type() Type       { return Scalar(KindInt) }
func (v IntValue) LogicalSize() int { return 1 }
func (v IntValue) String() string   { return fmt.Sprintf("%d", int32(v)) }
func (v IntValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(IntValue)
	if !ok {
		return 0, typeMismatch("IntValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(int32(v), int32(ov)), nil
}

// LongValue is a scalar KindLong Value.
type LongValue int64

func (v LongValue) Type() Type       { return Scalar(KindLong) }
func (v LongValue) LogicalSize() int { return 1 }
func (v LongValue) String() string   { return fmt.Sprintf("%d", int64(v)) }
func (v LongValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(LongValue)
	if !ok {
		return 0, typeMismatch("LongValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(int64(v), int64(ov)), nil
}

// FloatValue is a scalar KindFloat Value.
type FloatValue float32

func (v FloatValue) Type() Type       { return Scalar(KindFloat) }
func (v FloatValue) LogicalSize() int { return 1 }
func (v FloatValue) String() string   { return fmt.Sprintf("%g", float32(v)) }
func (v FloatValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(FloatValue)
	if !ok {
		return 0, typeMismatch("FloatValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(float32(v), float32(ov)), nil
}

// DoubleValue is a scalar KindDouble Value.
type DoubleValue float64

func (v DoubleValue) Type() Type       { return Scalar(KindDouble) }
func (v DoubleValue) LogicalSize() int { return 1 }
func (v DoubleValue) String() string   { return fmt.Sprintf("%g", float64(v)) }
func (v DoubleValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(DoubleValue)
	if !ok {
		return 0, typeMismatch("DoubleValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(float64(v), float64(ov)), nil
}

// DateValue is a scalar KindDate Value, stored as milliseconds since the
// Unix epoch (UTC).
type DateValue struct{ time.Time }

func NewDateValue(t time.Time) DateValue { return DateValue{t.UTC()} }

func (v DateValue) Type() Type       { return Scalar(KindDate) }
func (v DateValue) LogicalSize() int { return 1 }
func (v DateValue) String() string   { return v.Time.Format(time.RFC3339) }
func (v DateValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(DateValue)
	if !ok {
		return 0, typeMismatch("DateValue.CompareTo", v.Type(), o.Type())
	}
	switch {
	case v.Time.Before(ov.Time):
		return -1, nil
	case v.Time.After(ov.Time):
		return 1, nil
	default:
		return 0, nil
	}
}

// StringValue is a scalar KindString Value.
type StringValue string

func (v StringValue) Type() Type       { return Scalar(KindString) }
func (v StringValue) LogicalSize() int { return 1 }
func (v StringValue) String() string   { return string(v) }
func (v StringValue) CompareTo(o Value) (int, error) {
	ov, ok := o.(StringValue)
	if !ok {
		return 0, typeMismatch("StringValue.CompareTo", v.Type(), o.Type())
	}
	return compareOrdered(string(v), string(ov)), nil
}

// Complex32Value is a scalar KindComplex32 Value (two float32 components).
type Complex32Value complex64

func (v Complex32Value) Type() Type       { return Scalar(KindComplex32) }
func (v Complex32Value) LogicalSize() int { return 1 }
func (v Complex32Value) String() string   { return fmt.Sprintf("%v", complex64(v)) }

// Complex64Value is a scalar KindComplex64 Value (two float64 components).
type Complex64Value complex128

func (v Complex64Value) Type() Type       { return Scalar(KindComplex64) }
func (v Complex64Value) LogicalSize() int { return 1 }
func (v Complex64Value) String() string   { return fmt.Sprintf("%v", complex128(v)) }

type ordered interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64 | ~string
}

func compareOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
