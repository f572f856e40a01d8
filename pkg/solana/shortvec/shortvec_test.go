package shortvec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDecode(t *testing.T) {
	for n := 0; n <= math.MaxUint16; n++ {
		encoded, err := AppendLen(nil, n)
		require.NoError(t, err)
		require.Len(t, encoded, EncodedLen(n))

		decoded, size, err := DecodeLen(append(encoded, 0xaa))
		require.NoError(t, err)
		require.Equal(t, n, decoded)
		require.Equal(t, len(encoded), size)
	}
}

func TestAppendLen_Vectors(t *testing.T) {
	vectors := map[int][]byte{
		0:      {0x00},
		127:    {0x7f},
		128:    {0x80, 0x01},
		255:    {0xff, 0x01},
		256:    {0x80, 0x02},
		16383:  {0xff, 0x7f},
		16384:  {0x80, 0x80, 0x01},
		0xffff: {0xff, 0xff, 0x03},
	}
	for n, expected := range vectors {
		encoded, err := AppendLen([]byte{9}, n)
		require.NoError(t, err)
		assert.Equal(t, append([]byte{9}, expected...), encoded, "n=%d", n)
	}
}

func TestErrors(t *testing.T) {
	_, err := AppendLen(nil, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = AppendLen(nil, math.MaxUint16+1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, _, err = DecodeLen(nil)
	assert.ErrorIs(t, err, ErrTruncated)
	_, _, err = DecodeLen([]byte{0x80})
	assert.ErrorIs(t, err, ErrTruncated)
	_, _, err = DecodeLen([]byte{0x80, 0x80, 0x80})
	assert.ErrorIs(t, err, ErrOverlong)
	_, _, err = DecodeLen([]byte{0x80, 0x80, 0x80, 0x01})
	assert.ErrorIs(t, err, ErrOverlong)
}
