package common

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
)

// Account is an address, optionally with the private key that controls it.
// The mint of a token creation is an Account generated with its key so it can
// co-sign the creation transaction.
type Account struct {
	publicKey  *Key
	privateKey *Key
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{publicKey: publicKey}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}
	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}
	return NewAccountFromPublicKey(key)
}

// NewAccountFromPrivateKey derives the account's address from privateKey
func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if err := privateKey.Validate(); err != nil {
		return nil, err
	}
	if privateKey.IsPublic() {
		return nil, errors.New("private key isn't private")
	}

	return &Account{
		publicKey:  privateKey.public(),
		privateKey: privateKey,
	}, nil
}

func NewAccountFromPrivateKeyString(privateKey string) (*Account, error) {
	key, err := NewKeyFromString(privateKey)
	if err != nil {
		return nil, err
	}
	return NewAccountFromPrivateKey(key)
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}
	return NewAccountFromPrivateKey(key)
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

// PrivateKey is nil for accounts built from an address
func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) HasPrivateKey() bool {
	return a.privateKey != nil
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if !a.HasPrivateKey() {
		return nil, errors.New("private key not available")
	}
	return ed25519.Sign(a.privateKey.ToBytes(), message), nil
}

// IsOnCurve is false for program derived addresses
func (a *Account) IsOnCurve() bool {
	return solana.IsOnCurve(a.publicKey.ToBytes())
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "invalid public key")
	}
	if !a.publicKey.IsPublic() {
		return errors.New("public key isn't public")
	}
	if a.privateKey == nil {
		return nil
	}

	switch {
	case a.privateKey.Validate() != nil:
		return errors.Wrap(a.privateKey.Validate(), "invalid private key")
	case a.privateKey.IsPublic():
		return errors.New("private key isn't private")
	case !a.privateKey.public().Equals(a.publicKey):
		return errors.New("private key doesn't map to public key")
	}
	return nil
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
