package common

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/solana/token"
)

func TestAccountWithPublicKey(t *testing.T) {
	publicKey, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	fromBytes, err := NewAccountFromPublicKeyBytes(publicKey)
	require.NoError(t, err)

	fromString, err := NewAccountFromPublicKeyString(base58.Encode(publicKey))
	require.NoError(t, err)

	for _, account := range []*Account{fromBytes, fromString} {
		assert.EqualValues(t, publicKey, account.PublicKey().ToBytes())
		assert.Equal(t, base58.Encode(publicKey), account.String())
		assert.False(t, account.HasPrivateKey())
		assert.True(t, account.IsOnCurve())

		_, err := account.Sign([]byte("message"))
		assert.Error(t, err)
	}
}

func TestAccountWithPrivateKey(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	account, err := NewAccountFromPrivateKeyString(base58.Encode(privateKey))
	require.NoError(t, err)
	assert.True(t, account.HasPrivateKey())
	assert.EqualValues(t, publicKey, account.PublicKey().ToBytes())
	assert.EqualValues(t, privateKey, account.PrivateKey().ToBytes())

	signature, err := account.Sign([]byte("message"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(publicKey, []byte("message"), signature))

	_, err = NewAccountFromPrivateKeyString(base58.Encode(publicKey))
	assert.Error(t, err)
}

func TestInvalidAccounts(t *testing.T) {
	_, err := NewAccountFromPublicKeyString("not-base58-0OIl")
	assert.Error(t, err)

	_, err = NewAccountFromPublicKeyBytes(make([]byte, 31))
	assert.Error(t, err)

	_, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = NewAccountFromPublicKeyBytes(privateKey)
	assert.Error(t, err)

	var nilAccount *Account
	assert.Error(t, nilAccount.Validate())
}

func TestRandomAccountsAreUnique(t *testing.T) {
	a := NewRandomTestAccount(t)
	b := NewRandomTestAccount(t)
	assert.NotEqual(t, a.PublicKey().ToBase58(), b.PublicKey().ToBase58())
	assert.NoError(t, a.Validate())
}

func TestProgramDerivedAccountIsOffCurve(t *testing.T) {
	owner := NewRandomTestAccount(t)
	mint := NewRandomTestAccount(t)
	assert.True(t, mint.IsOnCurve())

	ata, err := token.GetAssociatedAccount(owner.PublicKey().ToBytes(), mint.PublicKey().ToBytes())
	require.NoError(t, err)
	account, err := NewAccountFromPublicKeyBytes(ata)
	require.NoError(t, err)
	assert.False(t, account.IsOnCurve())
}

func TestValidate_MismatchedKeys(t *testing.T) {
	a := NewRandomTestAccount(t)
	b := NewRandomTestAccount(t)

	mismatched := &Account{publicKey: a.PublicKey(), privateKey: b.PrivateKey()}
	assert.ErrorContains(t, mismatched.Validate(), "doesn't map")

	swapped := &Account{publicKey: a.PrivateKey(), privateKey: a.PrivateKey()}
	assert.ErrorContains(t, swapped.Validate(), "isn't public")
}

func TestExplorerURLs(t *testing.T) {
	assert.Equal(t, "https://solscan.io/token/Mint111", SolscanTokenURL("Mint111"))
	assert.Equal(t, "https://explorer.solana.com/address/Mint111", ExplorerAddressURL("Mint111"))
	assert.Equal(t, "https://explorer.solana.com/tx/Sig111", ExplorerTransactionURL("Sig111"))
}

func TestKey(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	raw := append([]byte{}, publicKey...)
	fromBytes, err := NewKeyFromBytes(raw)
	require.NoError(t, err)
	raw[0]++
	assert.EqualValues(t, publicKey, fromBytes.ToBytes())

	fromString, err := NewKeyFromString(base58.Encode(publicKey))
	require.NoError(t, err)
	assert.True(t, fromBytes.Equals(fromString))
	assert.True(t, fromString.IsPublic())
	assert.Equal(t, base58.Encode(publicKey), fromString.ToBase58())

	private, err := NewKeyFromBytes(privateKey)
	require.NoError(t, err)
	assert.False(t, private.IsPublic())
	assert.False(t, private.Equals(fromBytes))
	assert.True(t, private.public().Equals(fromBytes))

	_, err = NewKeyFromBytes(make([]byte, 33))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
	_, err = NewKeyFromString(base58.Encode(make([]byte, 16)))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	var nilKey *Key
	assert.Error(t, nilKey.Validate())
	assert.True(t, nilKey.Equals(nil))
}
