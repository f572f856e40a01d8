package common

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var ErrInvalidKeyLength = errors.New("key must be a 32 byte public key or a 64 byte private key")

// Key is an ed25519 public or private key. The base58 form is computed once.
type Key struct {
	raw     []byte
	encoded string
}

func NewKeyFromBytes(value []byte) (*Key, error) {
	if !isKeyLength(len(value)) {
		return nil, ErrInvalidKeyLength
	}

	raw := make([]byte, len(value))
	copy(raw, value)
	return &Key{raw: raw, encoded: base58.Encode(raw)}, nil
}

func NewKeyFromString(value string) (*Key, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "key is not valid base58")
	}
	if !isKeyLength(len(raw)) {
		return nil, ErrInvalidKeyLength
	}

	return &Key{raw: raw, encoded: base58.Encode(raw)}, nil
}

// NewRandomKey generates a private key
func NewRandomKey() (*Key, error) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating private key")
	}
	return &Key{raw: privateKey, encoded: base58.Encode(privateKey)}, nil
}

func (k *Key) ToBytes() []byte {
	return k.raw
}

func (k *Key) ToBase58() string {
	return k.encoded
}

func (k *Key) IsPublic() bool {
	return len(k.raw) == ed25519.PublicKeySize
}

func (k *Key) Equals(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.raw, other.raw)
}

// public derives the public key of a private key
func (k *Key) public() *Key {
	publicKey := ed25519.PrivateKey(k.raw).Public().(ed25519.PublicKey)
	return &Key{raw: publicKey, encoded: base58.Encode(publicKey)}
}

func (k *Key) Validate() error {
	if k == nil {
		return errors.New("key is nil")
	}
	if !isKeyLength(len(k.raw)) {
		return ErrInvalidKeyLength
	}
	return nil
}

func isKeyLength(n int) bool {
	return n == ed25519.PublicKeySize || n == ed25519.PrivateKeySize
}
