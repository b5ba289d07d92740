package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarCodecRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		v    Value
	}{
		{KindBool, BoolValue(true)},
		{KindBool, BoolValue(false)},
		{KindByte, ByteValue(-12)},
		{KindShort, ShortValue(1234)},
		{KindInt, IntValue(-987654)},
		{KindLong, LongValue(1 << 40)},
		{KindFloat, FloatValue(3.5)},
		{KindDouble, DoubleValue(2.71828)},
		{KindString, StringValue("hello")},
		{KindString, StringValue("")},
	}
	for _, c := range cases {
		codec := CodecFor(c.kind)
		require.NotNil(t, codec, c.kind.String())
		encoded := codec.Encode(nil, c.v)
		decoded, n, err := codec.Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, len(encoded), n)
		require.Equal(t, c.v, decoded)
	}
}

func TestScalarCodecNullRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindBool, KindByte, KindShort, KindInt, KindLong, KindFloat, KindDouble, KindDate, KindString} {
		codec := CodecFor(k)
		require.NotNil(t, codec)
		encoded := codec.Encode(nil, nil)
		decoded, _, err := codec.Decode(encoded)
		require.NoError(t, err)
		require.Nil(t, decoded)
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	fv := NewFloatVec([]float32{1, 2, 3})
	codec := CodecFor(KindFloatVec)
	encoded := codec.Encode(nil, fv)
	decoded, n, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, fv, decoded)
}

func TestVectorCodecNull(t *testing.T) {
	codec := CodecFor(KindDoubleVec)
	encoded := codec.Encode(nil, nil)
	decoded, _, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestValueStatisticsScalarMonoid(t *testing.T) {
	s := NewValueStatistics()
	s.Insert(IntValue(5))
	s.Insert(IntValue(1))
	s.Insert(IntValue(9))
	require.Equal(t, int64(3), s.NumNonNull())
	require.Equal(t, IntValue(1), s.Min())
	require.Equal(t, IntValue(9), s.Max())

	s.Delete(IntValue(9))
	require.False(t, s.Fresh())
}

func TestValueStatisticsVectorMean(t *testing.T) {
	s := NewValueStatistics()
	s.Insert(NewFloatVec([]float32{2, 4}))
	s.Insert(NewFloatVec([]float32{4, 8}))
	mean := s.MeanVector()
	require.Equal(t, []float64{3, 6}, mean)
}

func TestColumnDefValidation(t *testing.T) {
	cd, err := NewColumnDef("price", Scalar(KindDouble), true, false)
	require.NoError(t, err)
	require.NoError(t, cd.Validate(nil))
	require.NoError(t, cd.Validate(DoubleValue(1.5)))
	require.Error(t, cd.Validate(IntValue(1)))

	_, err = NewColumnDef("id", Scalar(KindLong), true, true)
	require.Error(t, err, "primary key column cannot be nullable")
}
