package types

import (
	"encoding/binary"
	"math"
)

// Vector codecs frame every vector the same way: a uint32 dimension
// prefix (0xFFFFFFFF meaning NULL) followed by that many fixed-width
// elements. Unlike the scalar codecs, no per-element value is reserved as
// a null sentinel — NULL is represented at the dimension-prefix level,
// since an all-zero (or any other) vector is always a legal value.

type intVecCodec struct{}

func (intVecCodec) Kind() Kind              { return KindIntVec }
func (intVecCodec) FixedWidth() (int, bool) { return 0, false }
func (intVecCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return appendDimSentinel(dst)
	}
	vec := v.(NumericVector[int32])
	dst = appendDim(dst, len(vec.data))
	for _, e := range vec.data {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(e))
		dst = append(dst, buf[:]...)
	}
	return dst
}
func (intVecCodec) Decode(src []byte) (Value, int, error) {
	n, consumed, null, err := readDim(src, KindIntVec)
	if err != nil || null {
		return nil, consumed, err
	}
	data := make([]int32, n)
	off := consumed
	for i := range data {
		if len(src) < off+4 {
			return nil, 0, errShortBuffer(KindIntVec)
		}
		data[i] = int32(binary.BigEndian.Uint32(src[off:]))
		off += 4
	}
	return NumericVector[int32]{kind: KindIntVec, data: data}, off, nil
}

type longVecCodec struct{}

func (longVecCodec) Kind() Kind              { return KindLongVec }
func (longVecCodec) FixedWidth() (int, bool) { return 0, false }
func (longVecCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return appendDimSentinel(dst)
	}
	vec := v.(NumericVector[int64])
	dst = appendDim(dst, len(vec.data))
	for _, e := range vec.data {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(e))
		dst = append(dst, buf[:]...)
	}
	return dst
}
func (longVecCodec) Decode(src []byte) (Value, int, error) {
	n, consumed, null, err := readDim(src, KindLongVec)
	if err != nil || null {
		return nil, consumed, err
	}
	data := make([]int64, n)
	off := consumed
	for i := range data {
		if len(src) < off+8 {
			return nil, 0, errShortBuffer(KindLongVec)
		}
		data[i] = int64(binary.BigEndian.Uint64(src[off:]))
		off += 8
	}
	return NumericVector[int64]{kind: KindLongVec, data: data}, off, nil
}

type floatVecCodec struct{}

func (floatVecCodec) Kind() Kind              { return KindFloatVec }
func (floatVecCodec) FixedWidth() (int, bool) { return 0, false }
func (floatVecCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return appendDimSentinel(dst)
	}
	vec := v.(NumericVector[float32])
	dst = appendDim(dst, len(vec.data))
	for _, e := range vec.data {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(e))
		dst = append(dst, buf[:]...)
	}
	return dst
}
func (floatVecCodec) Decode(src []byte) (Value, int, error) {
	n, consumed, null, err := readDim(src, KindFloatVec)
	if err != nil || null {
		return nil, consumed, err
	}
	data := make([]float32, n)
	off := consumed
	for i := range data {
		if len(src) < off+4 {
			return nil, 0, errShortBuffer(KindFloatVec)
		}
		data[i] = math.Float32frombits(binary.BigEndian.Uint32(src[off:]))
		off += 4
	}
	return NumericVector[float32]{kind: KindFloatVec, data: data}, off, nil
}

type doubleVecCodec struct{}

func (doubleVecCodec) Kind() Kind              { return KindDoubleVec }
func (doubleVecCodec) FixedWidth() (int, bool) { return 0, false }
func (doubleVecCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return appendDimSentinel(dst)
	}
	vec := v.(NumericVector[float64])
	dst = appendDim(dst, len(vec.data))
	for _, e := range vec.data {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(e))
		dst = append(dst, buf[:]...)
	}
	return dst
}
func (doubleVecCodec) Decode(src []byte) (Value, int, error) {
	n, consumed, null, err := readDim(src, KindDoubleVec)
	if err != nil || null {
		return nil, consumed, err
	}
	data := make([]float64, n)
	off := consumed
	for i := range data {
		if len(src) < off+8 {
			return nil, 0, errShortBuffer(KindDoubleVec)
		}
		data[i] = math.Float64frombits(binary.BigEndian.Uint64(src[off:]))
		off += 8
	}
	return NumericVector[float64]{kind: KindDoubleVec, data: data}, off, nil
}

type boolVecCodec struct{}

func (boolVecCodec) Kind() Kind              { return KindBoolVec }
func (boolVecCodec) FixedWidth() (int, bool) { return 0, false }
func (boolVecCodec) Encode(dst []byte, v Value) []byte {
	if v == nil {
		return appendDimSentinel(dst)
	}
	vec := v.(BoolVecValue)
	dst = appendDim(dst, len(vec))
	for _, e := range vec {
		if e {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}
func (boolVecCodec) Decode(src []byte) (Value, int, error) {
	n, consumed, null, err := readDim(src, KindBoolVec)
	if err != nil || null {
		return nil, consumed, err
	}
	data := make(BoolVecValue, n)
	off := consumed
	for i := range data {
		if len(src) <= off {
			return nil, 0, errShortBuffer(KindBoolVec)
		}
		data[i] = src[off] != 0
		off++
	}
	return data, off, nil
}

func appendDim(dst []byte, n int) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	return append(dst, buf[:]...)
}

func appendDimSentinel(dst []byte) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.MaxUint32)
	return append(dst, buf[:]...)
}

func readDim(src []byte, k Kind) (n, consumed int, null bool, err error) {
	if len(src) < 4 {
		return 0, 0, false, errShortBuffer(k)
	}
	dim := binary.BigEndian.Uint32(src)
	if dim == math.MaxUint32 {
		return 0, 4, true, nil
	}
	return int(dim), 4, false, nil
}

func init() {
	registerCodec(intVecCodec{})
	registerCodec(longVecCodec{})
	registerCodec(floatVecCodec{})
	registerCodec(doubleVecCodec{})
	registerCodec(boolVecCodec{})
}
