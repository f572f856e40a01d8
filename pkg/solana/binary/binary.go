// Package binary reads and writes the little endian layouts used by Solana
// programs for instruction data and account state.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrShortBuffer = errors.New("binary: buffer too short")

// Encoder appends values to a growing buffer
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder whose buffer starts with the given capacity
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.Uint8(1)
	}
	return e.Uint8(0)
}

func (e *Encoder) Uint16(v uint16) *Encoder {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
	return e
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) Uint64(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

// String writes a u32 length prefix followed by the raw bytes of v
func (e *Encoder) String(v string) *Encoder {
	e.Uint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
	return e
}

// Key writes a 32 byte public key
func (e *Encoder) Key(key ed25519.PublicKey) *Encoder {
	var padded [ed25519.PublicKeySize]byte
	copy(padded[:], key)
	e.buf = append(e.buf, padded[:]...)
	return e
}

// OptionalKey writes a COption<Pubkey>: a u32 tag followed by 32 bytes that
// are zero when key is unset
func (e *Encoder) OptionalKey(key ed25519.PublicKey) *Encoder {
	var padded [ed25519.PublicKeySize]byte
	if len(key) > 0 {
		e.Uint32(1)
		copy(padded[:], key)
	} else {
		e.Uint32(0)
	}
	e.buf = append(e.buf, padded[:]...)
	return e
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

// StringSize is the encoded size of v
func StringSize(v string) int {
	return 4 + len(v)
}

// Decoder reads values sequentially. The first out of bounds read sets a
// sticky error, after which every read returns a zero value.
type Decoder struct {
	buf    []byte
	offset int
	err    error
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.offset < n {
		d.err = ErrShortBuffer
		return nil
	}

	b := d.buf[d.offset : d.offset+n]
	d.offset += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Bool() bool {
	return d.Uint8() == 1
}

func (d *Decoder) Uint16() uint16 {
	b := d.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) Uint32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) String() string {
	length := d.Uint32()
	if d.err != nil {
		return ""
	}

	b := d.next(int(length))
	if b == nil {
		return ""
	}
	return string(b)
}

func (d *Decoder) Key() ed25519.PublicKey {
	b := d.next(ed25519.PublicKeySize)
	if b == nil {
		return nil
	}

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return key
}

// OptionalKey reads a COption<Pubkey>, returning nil when the tag is unset
func (d *Decoder) OptionalKey() ed25519.PublicKey {
	tag := d.Uint32()
	b := d.next(ed25519.PublicKeySize)
	if b == nil || tag != 1 {
		return nil
	}

	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, b)
	return key
}

// Remaining is the number of unread bytes
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.offset
}

func (d *Decoder) Err() error {
	return d.err
}
