package token

import (
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Derived with spl-token for the same owner and mint
	owner, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	expected, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(owner, mint)
	require.NoError(t, err)
	assert.EqualValues(t, expected, actual)
}

func TestCreateAssociatedTokenAccount(t *testing.T) {
	owner, mint := newKey(t), newKey(t)

	instruction, addr, err := CreateAssociatedTokenAccount(owner, owner, mint)
	require.NoError(t, err)

	expected, err := GetAssociatedAccount(owner, mint)
	require.NoError(t, err)
	assert.EqualValues(t, expected, addr)

	assert.Empty(t, instruction.Data)
	require.Len(t, instruction.Accounts, 6)
	assert.True(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.True(t, instruction.Accounts[1].IsWritable)
	for _, account := range instruction.Accounts[2:] {
		assert.False(t, account.IsSigner)
		assert.False(t, account.IsWritable)
	}
	assert.EqualValues(t, system.ProgramKey[:], instruction.Accounts[4].PublicKey)
	assert.EqualValues(t, ProgramKey, instruction.Accounts[5].PublicKey)

	decompiled, err := DecompileCreateAssociatedAccount(solana.NewTransaction(owner, instruction).Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, owner, decompiled.Payer)
	assert.EqualValues(t, owner, decompiled.Owner)
	assert.EqualValues(t, mint, decompiled.Mint)
	assert.EqualValues(t, addr, decompiled.Address)
}

func TestDecompileCreateAssociatedAccount_Invalid(t *testing.T) {
	owner, mint, other := newKey(t), newKey(t), newKey(t)

	instruction, _, err := CreateAssociatedTokenAccount(owner, owner, mint)
	require.NoError(t, err)

	truncated := instruction
	truncated.Accounts = instruction.Accounts[:5]
	_, err = DecompileCreateAssociatedAccount(solana.NewTransaction(owner, truncated).Message, 0)
	assert.Error(t, err)

	wrongAddress := instruction
	wrongAddress.Accounts = append([]solana.AccountMeta{}, instruction.Accounts...)
	wrongAddress.Accounts[1] = solana.NewAccountMeta(other, false)
	_, err = DecompileCreateAssociatedAccount(solana.NewTransaction(owner, wrongAddress).Message, 0)
	assert.Error(t, err)

	_, err = DecompileCreateAssociatedAccount(solana.NewTransaction(owner, instruction).Message, 1)
	assert.Error(t, err)
}
