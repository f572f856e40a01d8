package compute_budget

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/binary"
)

// ProgramKey is ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

// Reference: https://github.com/solana-labs/solana/blob/master/sdk/src/compute_budget.rs
const (
	commandSetComputeUnitLimit uint8 = 2
	commandSetComputeUnitPrice uint8 = 3
)

var ErrInvalidInstructionData = errors.New("invalid compute budget instruction data")

// SetComputeUnitLimit caps the compute units the transaction may consume.
// The fee payer is charged the priority fee against this limit.
func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		binary.NewEncoder(5).Uint8(commandSetComputeUnitLimit).Uint32(computeUnitLimit).Bytes(),
	)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit
func SetComputeUnitPrice(computeUnitPrice uint64) solana.Instruction {
	return solana.NewInstruction(
		ProgramKey,
		binary.NewEncoder(9).Uint8(commandSetComputeUnitPrice).Uint64(computeUnitPrice).Bytes(),
	)
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	d, err := parse(data, commandSetComputeUnitLimit, 5)
	if err != nil {
		return 0, err
	}
	return d.Uint32(), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	d, err := parse(data, commandSetComputeUnitPrice, 9)
	if err != nil {
		return 0, err
	}
	return d.Uint64(), nil
}

func parse(data []byte, command uint8, size int) (*binary.Decoder, error) {
	if len(data) != size {
		return nil, ErrInvalidInstructionData
	}

	d := binary.NewDecoder(data)
	if d.Uint8() != command {
		return nil, ErrInvalidInstructionData
	}
	return d, nil
}

// IsComputeBudgetInstruction reports whether ixn targets the compute budget program.
func IsComputeBudgetInstruction(ixn solana.Instruction) bool {
	return ixn.IsForProgram(ProgramKey)
}

// StripInstructions drops compute budget instructions, keeping the rest in
// order.
func StripInstructions(ixns []solana.Instruction) []solana.Instruction {
	var stripped []solana.Instruction
	for _, ixn := range ixns {
		if !IsComputeBudgetInstruction(ixn) {
			stripped = append(stripped, ixn)
		}
	}
	return stripped
}
