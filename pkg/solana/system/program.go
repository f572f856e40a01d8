package system

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/binary"
)

// ProgramKey is 11111111111111111111111111111111
var ProgramKey [32]byte

// Instruction discriminators, encoded as u32 LE
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/program/src/system_instruction.rs
const (
	commandCreateAccount uint32 = 0
	commandTransfer      uint32 = 2
	commandAllocate      uint32 = 8
)

const (
	createAccountDataSize = 4 + 8 + 8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// CreateAccount funds a new account of size bytes owned by owner.
//
// Accounts:
//  0. [WRITE, SIGNER] funder
//  1. [WRITE, SIGNER] new account
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	data := binary.NewEncoder(createAccountDataSize).
		Uint32(commandCreateAccount).
		Uint64(lamports).
		Uint64(size).
		Key(owner).
		Bytes()

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	accounts, d, err := decompile(m, index, commandCreateAccount, 2, createAccountDataSize)
	if err != nil {
		return nil, err
	}

	return &DecompiledCreateAccount{
		Funder:   accounts[0],
		Address:  accounts[1],
		Lamports: d.Uint64(),
		Size:     d.Uint64(),
		Owner:    d.Key(),
	}, nil
}

// Transfer moves lamports between two system accounts.
//
// Accounts:
//  0. [WRITE, SIGNER] source
//  1. [WRITE] destination
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	data := binary.NewEncoder(transferDataSize).
		Uint32(commandTransfer).
		Uint64(lamports).
		Bytes()

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	accounts, d, err := decompile(m, index, commandTransfer, 2, transferDataSize)
	if err != nil {
		return nil, err
	}

	return &DecompiledTransfer{
		From:     accounts[0],
		To:       accounts[1],
		Lamports: d.Uint64(),
	}, nil
}

// decompile checks the instruction at index is the system command with the
// expected shape, returning its accounts and a decoder positioned after the
// command.
func decompile(m solana.Message, index int, command uint32, accountCount, dataSize int) ([]ed25519.PublicKey, *binary.Decoder, error) {
	i, err := m.ProgramInstruction(index, ProgramKey[:])
	if err != nil {
		return nil, nil, err
	}

	d := binary.NewDecoder(i.Data)
	if actual := d.Uint32(); d.Err() != nil || actual != command {
		return nil, nil, solana.ErrIncorrectInstruction
	}

	if len(i.Accounts) != accountCount {
		return nil, nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != dataSize {
		return nil, nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	accounts, err := m.InstructionAccounts(i)
	if err != nil {
		return nil, nil, err
	}
	return accounts, d, nil
}
