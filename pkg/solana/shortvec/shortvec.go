// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format: seven bits per byte, least significant group first,
// with the high bit marking continuation.
package shortvec

import (
	"math"

	"github.com/pkg/errors"
)

// MaxEncodedLen is the most bytes a length can occupy
const MaxEncodedLen = 3

var (
	ErrOutOfRange = errors.Errorf("shortvec: length must be within [0, %d]", math.MaxUint16)
	ErrTruncated  = errors.New("shortvec: truncated length")
	ErrOverlong   = errors.New("shortvec: length exceeds 3 bytes")
)

// AppendLen appends the encoding of n to dst
func AppendLen(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > math.MaxUint16 {
		return dst, ErrOutOfRange
	}

	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	return append(dst, byte(n)), nil
}

// EncodedLen is the number of bytes AppendLen uses for n
func EncodedLen(n int) int {
	switch {
	case n < 1<<7:
		return 1
	case n < 1<<14:
		return 2
	default:
		return 3
	}
}

// DecodeLen reads a length from the front of b, returning it along with the
// number of bytes consumed
func DecodeLen(b []byte) (n, size int, err error) {
	for size < len(b) {
		if size == MaxEncodedLen {
			return 0, 0, ErrOverlong
		}

		v := b[size]
		n |= int(v&0x7f) << (7 * size)
		size++

		if v&0x80 == 0 {
			if n > math.MaxUint16 {
				return 0, 0, ErrOutOfRange
			}
			return n, size, nil
		}
	}

	if size == MaxEncodedLen {
		return 0, 0, ErrOverlong
	}
	return 0, 0, ErrTruncated
}
