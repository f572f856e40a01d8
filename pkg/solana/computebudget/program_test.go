package compute_budget

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/solana"
)

func TestSetComputeUnitLimit(t *testing.T) {
	ixn := SetComputeUnitLimit(120_000)
	assert.EqualValues(t, ProgramKey, ixn.Program)
	assert.Empty(t, ixn.Accounts)
	assert.Equal(t, []byte{2, 0xc0, 0xd4, 0x01, 0x00}, ixn.Data)

	limit, err := ParseSetComputeUnitLimitIxnData(ixn.Data)
	require.NoError(t, err)
	assert.EqualValues(t, 120_000, limit)

	_, err = ParseSetComputeUnitLimitIxnData(SetComputeUnitPrice(1).Data)
	assert.ErrorIs(t, err, ErrInvalidInstructionData)
}

func TestSetComputeUnitPrice(t *testing.T) {
	ixn := SetComputeUnitPrice(1_670_000)
	assert.EqualValues(t, ProgramKey, ixn.Program)
	assert.Len(t, ixn.Data, 9)
	assert.EqualValues(t, 3, ixn.Data[0])

	price, err := ParseSetComputeUnitPriceIxnData(ixn.Data)
	require.NoError(t, err)
	assert.EqualValues(t, 1_670_000, price)

	_, err = ParseSetComputeUnitPriceIxnData(ixn.Data[:5])
	assert.ErrorIs(t, err, ErrInvalidInstructionData)
}

func TestStripInstructions(t *testing.T) {
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	first := solana.NewInstruction(program, []byte{1})
	second := solana.NewInstruction(program, []byte{2})

	stripped := StripInstructions([]solana.Instruction{
		SetComputeUnitLimit(1),
		first,
		SetComputeUnitPrice(1),
		second,
	})
	require.Len(t, stripped, 2)
	assert.Equal(t, []byte{1}, stripped[0].Data)
	assert.Equal(t, []byte{2}, stripped[1].Data)

	assert.True(t, IsComputeBudgetInstruction(SetComputeUnitLimit(5)))
	assert.False(t, IsComputeBudgetInstruction(first))
}
