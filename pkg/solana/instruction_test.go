package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAccounts(t *testing.T) {
	keys := generateKeys(t, 3)

	merged := mergeAccounts([]AccountMeta{
		NewReadonlyAccountMeta(public(keys[0]), false),
		NewAccountMeta(public(keys[1]), false),
		NewReadonlyAccountMeta(public(keys[0]), true),
		NewAccountMeta(public(keys[0]), false),
		NewReadonlyAccountMeta(public(keys[2]), false),
	})

	require.Len(t, merged, 3)
	assert.Equal(t, public(keys[0]), merged[0].PublicKey)
	assert.True(t, merged[0].IsSigner)
	assert.True(t, merged[0].IsWritable)
	assert.Equal(t, public(keys[1]), merged[1].PublicKey)
	assert.Equal(t, public(keys[2]), merged[2].PublicKey)
	assert.False(t, merged[2].IsWritable)
}

func TestAccountLess(t *testing.T) {
	keys := generateKeys(t, 2)

	payer := AccountMeta{PublicKey: public(keys[0]), IsSigner: true, IsWritable: true, isPayer: true}
	program := AccountMeta{PublicKey: public(keys[1]), isProgram: true}
	signer := NewReadonlyAccountMeta(public(keys[1]), true)
	writable := NewAccountMeta(public(keys[1]), false)
	readonly := NewReadonlyAccountMeta(public(keys[1]), false)

	assert.True(t, accountLess(payer, signer))
	assert.True(t, accountLess(signer, writable))
	assert.True(t, accountLess(writable, readonly))
	assert.True(t, accountLess(readonly, program))
	assert.False(t, accountLess(program, readonly))
}
