package solana

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress_Vectors(t *testing.T) {
	program := MustPublicKeyFromBase58("BPFLoader1111111111111111111111111111111111")

	// Vectors from the Solana SDK's pubkey tests, typo included
	seedKey := MustPublicKeyFromBase58("SeedPubey1111111111111111111111111111111111")
	vectors := map[string][][]byte{
		"3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT": {{}, {1}},
		"7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7": {[]byte("☉")},
		"HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds": {[]byte("Talking"), []byte("Squirrels")},
		"GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K": {seedKey},
	}
	for expected, seeds := range vectors {
		address, err := CreateProgramAddress(program, seeds...)
		require.NoError(t, err)
		assert.Equal(t, expected, base58.Encode(address))
	}

	single, err := CreateProgramAddress(program, []byte("Talking"))
	require.NoError(t, err)
	assert.NotEqual(t, "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds", base58.Encode(single))
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	program := MustPublicKeyFromBase58("BPFLoader1111111111111111111111111111111111")

	_, err := CreateProgramAddress(program, make([]byte, maxSeedLength))
	assert.NoError(t, err)

	_, err = CreateProgramAddress(program, make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(program, []byte("ok"), make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(program, make([][]byte, maxSeeds+1)...)
	assert.Equal(t, ErrTooManySeeds, err)
}

func TestFindProgramAddress(t *testing.T) {
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		seed, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		seeds := [][]byte{[]byte("metadata"), seed}

		address, bump, err := FindProgramAddressAndBump(program, seeds...)
		require.NoError(t, err)
		assert.False(t, IsOnCurve(address))

		// Every higher bump must have landed on the curve
		for higher := 255; higher > int(bump); higher-- {
			_, err := CreateProgramAddress(program, append(seeds, []byte{byte(higher)})...)
			assert.Equal(t, ErrInvalidPublicKey, err)
		}

		derived, err := CreateProgramAddress(program, append(seeds, []byte{bump})...)
		require.NoError(t, err)
		assert.Equal(t, address, derived)

		withoutBump, err := FindProgramAddress(program, seeds...)
		require.NoError(t, err)
		assert.Equal(t, address, withoutBump)
	}
}

func TestPublicKeyFromBase58(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	assert.True(t, IsOnCurve(pub))
	assert.False(t, IsOnCurve(pub[:31]))

	decoded, err := PublicKeyFromBase58(base58.Encode(pub))
	require.NoError(t, err)
	assert.EqualValues(t, pub, decoded)

	_, err = PublicKeyFromBase58("0OIl")
	assert.Error(t, err)

	_, err = PublicKeyFromBase58(base58.Encode(pub[:31]))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	assert.Panics(t, func() {
		MustPublicKeyFromBase58("not-a-key")
	})
}
