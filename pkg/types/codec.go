package types

import (
	"encoding/binary"
	"math"
	"time"
)

// Codec encodes and decodes Values of a single Kind to and from their
// on-disk byte representation (spec §6.1). A nil Value (SQL NULL) encodes
// to the Kind's reserved null sentinel; decoding the sentinel yields a nil
// Value back. Reserving a sentinel means one value per Kind can never be
// stored (spec §6.1, "KindReservedValue"): the minimum value for the signed
// integer kinds, the most negative finite value (-MaxFloat32/-MaxFloat64)
// for the floating point kinds, and the minimum millisecond timestamp
// (math.MinInt64) for Date. Bool and String encode NULL outside their
// value range (byte 2, length prefix 0xFFFFFFFF), so every bool and every
// string, the empty one included, can be stored.
type Codec interface {
	Kind() Kind
	// Encode appends the wire representation of v to dst and returns the
	// extended slice. v may be nil (NULL).
	Encode(dst []byte, v Value) []byte
	// Decode reads one value from src, returning it (nil for NULL) and the
	// number of bytes consumed.
	Decode(src []byte) (Value, int, error)
	// FixedWidth returns the on-disk width in bytes, or (0, false) if the
	// Kind is variable width (String and all vector kinds).
	FixedWidth() (int, bool)
}

var codecs = map[Kind]Codec{}

func registerCodec(c Codec) { codecs[c.Kind()] = c }

// CodecFor returns the registered Codec for k, or nil if none exists.
func CodecFor(k Kind) Codec { return codecs[k] }

type boolCodec struct{}

func (boolCodec) Kind() Kind         { return KindBool }
func (boolCodec) FixedWidth() (int, bool) { return 1, true }
func (boolCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return append(dst, 2) // 2 is outside {0,1}, reserved as the null sentinel
	}
	if bool(v.(BoolValue)) {
		return append(dst, 1)
	}
	return append(dst, 0)
}
func (boolCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 1 {
		return nil, 0, errShortBuffer(KindBool)
	}
	switch src[0] {
	case 2:
		return nil, 1, nil
	case 1:
		return BoolValue(true), 1, nil
	default:
		return BoolValue(false), 1, nil
	}
}

type byteCodec struct{}

func (byteCodec) Kind() Kind         { return KindByte }
func (byteCodec) FixedWidth() (int, bool) { return 1, true }
func (byteCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return append(dst, byte(math.MinInt8))
	}
	return append(dst, byte(v.(ByteValue)))
}
func (byteCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 1 {
		return nil, 0, errShortBuffer(KindByte)
	}
	b := int8(src[0])
	if b == math.MinInt8 {
		return nil, 1, nil
	}
	return ByteValue(b), 1, nil
}

type shortCodec struct{}

func (shortCodec) Kind() Kind         { return KindShort }
func (shortCodec) FixedWidth() (int, bool) { return 2, true }
func (shortCodec) Encode(dst []byte, v Value) []byte {
	var buf [2]byte
	if v == nil {
		binary.BigEndian.PutUint16(buf[:], uint16(int16(math.MinInt16)))
	} else {
		binary.BigEndian.PutUint16(buf[:], uint16(int16(v.(ShortValue))))
	}
	return append(dst, buf[:]...)
}
func (shortCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 2 {
		return nil, 0, errShortBuffer(KindShort)
	}
	s := int16(binary.BigEndian.Uint16(src))
	if s == math.MinInt16 {
		return nil, 2, nil
	}
	return ShortValue(s), 2, nil
}

type intCodec struct{}

func (intCodec) Kind() Kind         { return KindInt }
func (intCodec) FixedWidth() (int, bool) { return 4, true }
func (intCodec) Encode(dst []byte, v Value) []byte {
	var buf [4]byte
	if v == nil {
		binary.BigEndian.PutUint32(buf[:], uint32(int32(math.MinInt32)))
	} else {
		binary.BigEndian.PutUint32(buf[:], uint32(int32(v.(IntValue))))
	}
	return append(dst, buf[:]...)
}
func (intCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 4 {
		return nil, 0, errShortBuffer(KindInt)
	}
	i := int32(binary.BigEndian.Uint32(src))
	if i == math.MinInt32 {
		return nil, 4, nil
	}
	return IntValue(i), 4, nil
}

type longCodec struct{}

func (longCodec) Kind() Kind         { return KindLong }
func (longCodec) FixedWidth() (int, bool) { return 8, true }
func (longCodec) Encode(dst []byte, v Value) []byte {
	var buf [8]byte
	if v == nil {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(math.MinInt64)))
	} else {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v.(LongValue))))
	}
	return append(dst, buf[:]...)
}
func (longCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 8 {
		return nil, 0, errShortBuffer(KindLong)
	}
	l := int64(binary.BigEndian.Uint64(src))
	if l == math.MinInt64 {
		return nil, 8, nil
	}
	return LongValue(l), 8, nil
}

type floatCodec struct{}

func (floatCodec) Kind() Kind         { return KindFloat }
func (floatCodec) FixedWidth() (int, bool) { return 4, true }
func (floatCodec) Encode(dst []byte, v Value) []byte {
	var buf [4]byte
	var bits uint32
	if v == nil {
		bits = math.Float32bits(-math.MaxFloat32)
	} else {
		bits = math.Float32bits(float32(v.(FloatValue)))
	}
	binary.BigEndian.PutUint32(buf[:], bits)
	return append(dst, buf[:]...)
}
func (floatCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 4 {
		return nil, 0, errShortBuffer(KindFloat)
	}
	f := math.Float32frombits(binary.BigEndian.Uint32(src))
	if f == -math.MaxFloat32 {
		return nil, 4, nil
	}
	return FloatValue(f), 4, nil
}

type doubleCodec struct{}

func (doubleCodec) Kind() Kind         { return KindDouble }
func (doubleCodec) FixedWidth() (int, bool) { return 8, true }
func (doubleCodec) Encode(dst []byte, v Value) []byte {
	var buf [8]byte
	var bits uint64
	if v == nil {
		bits = math.Float64bits(-math.MaxFloat64)
	} else {
		bits = math.Float64bits(float64(v.(DoubleValue)))
	}
	binary.BigEndian.PutUint64(buf[:], bits)
	return append(dst, buf[:]...)
}
func (doubleCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 8 {
		return nil, 0, errShortBuffer(KindDouble)
	}
	d := math.Float64frombits(binary.BigEndian.Uint64(src))
	if d == -math.MaxFloat64 {
		return nil, 8, nil
	}
	return DoubleValue(d), 8, nil
}

type dateCodec struct{}

func (dateCodec) Kind() Kind         { return KindDate }
func (dateCodec) FixedWidth() (int, bool) { return 8, true }
func (dateCodec) Encode(dst []byte, v Value) []byte {
	var buf [8]byte
	if v == nil {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(math.MinInt64)))
	} else {
		ms := v.(DateValue).Time.UnixMilli()
		binary.BigEndian.PutUint64(buf[:], uint64(ms))
	}
	return append(dst, buf[:]...)
}
func (dateCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 8 {
		return nil, 0, errShortBuffer(KindDate)
	}
	ms := int64(binary.BigEndian.Uint64(src))
	if ms == math.MinInt64 {
		return nil, 8, nil
	}
	return NewDateValue(time.UnixMilli(ms)), 8, nil
}

// stringCodec frames strings as a uint32 length prefix followed by the raw
// bytes. NULL is encoded as length sentinel 0xFFFFFFFF (an empty string
// still encodes as length 0, distinct from NULL).
type stringCodec struct{}

func (stringCodec) Kind() Kind              { return KindString }
func (stringCodec) FixedWidth() (int, bool) { return 0, false }
func (stringCodec) Encode(dst []byte, v Value) []byte {
	var lenBuf [4]byte
	if v == nil {
		binary.BigEndian.PutUint32(lenBuf[:], math.MaxUint32)
		return append(dst, lenBuf[:]...)
	}
	s := string(v.(StringValue))
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}
func (stringCodec) Decode(src []byte) (Value, int, error) {
	if len(src) < 4 {
		return nil, 0, errShortBuffer(KindString)
	}
	n := binary.BigEndian.Uint32(src)
	if n == math.MaxUint32 {
		return nil, 4, nil
	}
	if uint32(len(src)-4) < n {
		return nil, 0, errShortBuffer(KindString)
	}
	return StringValue(src[4 : 4+n]), 4 + int(n), nil
}

func errShortBuffer(k Kind) error {
	return &shortBufferError{k}
}

type shortBufferError struct{ k Kind }

func (e *shortBufferError) Error() string {
	return "types: short buffer decoding " + e.k.String()
}

func init() {
	registerCodec(boolCodec{})
	registerCodec(byteCodec{})
	registerCodec(shortCodec{})
	registerCodec(intCodec{})
	registerCodec(longCodec{})
	registerCodec(floatCodec{})
	registerCodec(doubleCodec{})
	registerCodec(dateCodec{})
	registerCodec(stringCodec{})
}
