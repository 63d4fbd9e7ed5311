package zkvm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicValuesRoundTrip(t *testing.T) {
	cases := []PublicValues{
		{N: 0, A: 0, B: 1},
		{N: 1, A: 1, B: 1},
		{N: 20, A: 6765, B: 10946},
		{N: 64, A: 10610209857723, B: 17167680177565},
		{N: math.MaxUint32, A: math.MaxUint64, B: math.MaxUint64},
	}
	for _, v := range cases {
		enc := EncodePublicValues(v)
		require.Len(t, enc, publicValuesLen)
		dec, err := DecodePublicValues(enc)
		require.NoError(t, err)
		require.Equal(t, v, dec)
	}
}

func TestPublicValuesEncoding(t *testing.T) {
	// Each value right-aligned big-endian in its own 32-byte word.
	enc := EncodePublicValues(PublicValues{N: 1, A: 2, B: 3})
	expected := make([]byte, publicValuesLen)
	expected[31] = 1
	expected[63] = 2
	expected[95] = 3
	require.Equal(t, expected, enc)
}

func TestDecodePublicValuesRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 1, publicValuesLen - 1, publicValuesLen + 1, 2 * publicValuesLen} {
		_, err := DecodePublicValues(make([]byte, n))
		require.ErrorIs(t, err, ErrMalformedValues, "length %d", n)
	}
}

func TestDecodePublicValuesRejectsOverflowingWords(t *testing.T) {
	t.Run("U32Padding", func(t *testing.T) {
		enc := EncodePublicValues(PublicValues{N: 20, A: 6765, B: 10946})
		enc[5] = 0xff // high bytes of the uint32 word must be zero
		_, err := DecodePublicValues(enc)
		require.ErrorIs(t, err, ErrMalformedValues)
	})
	t.Run("U64Padding", func(t *testing.T) {
		enc := EncodePublicValues(PublicValues{N: 20, A: 6765, B: 10946})
		enc[40] = 0xff
		_, err := DecodePublicValues(enc)
		require.ErrorIs(t, err, ErrMalformedValues)
	})
}
