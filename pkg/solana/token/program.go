package token

import (
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/binary"
	"github.com/solana-token-factory/factory/pkg/solana/system"
)

// ProgramKey is TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

// Command is the leading byte of token program instruction data
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs
type Command byte

const (
	CommandInitializeMint Command = 0
	CommandSetAuthority   Command = 6
	CommandMintTo         Command = 7

	CommandUnknown = Command(math.MaxUint8)
)

const (
	initializeMintDataSize = 1 + 1 + ed25519.PublicKeySize + 1 + ed25519.PublicKeySize
	mintToDataSize         = 1 + 8
	setAuthorityDataSize   = 1 + 1 + 1
)

func GetCommand(m solana.Message, index int) (Command, error) {
	i, err := m.ProgramInstruction(index, ProgramKey)
	if err != nil {
		return CommandUnknown, err
	}
	if len(i.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(i.Data[0]), nil
}

// InitializeMint sets up a freshly allocated mint account. A nil
// freezeAuthority leaves the mint without one.
//
// Accounts:
//  0. [WRITE] mint
//  1. [] rent sysvar
func InitializeMint(mint ed25519.PublicKey, decimals byte, mintAuthority, freezeAuthority ed25519.PublicKey) solana.Instruction {
	// freeze_authority is a single byte tagged option, padded to full width
	data := binary.NewEncoder(initializeMintDataSize).
		Uint8(byte(CommandInitializeMint)).
		Uint8(decimals).
		Key(mintAuthority).
		Bool(len(freezeAuthority) > 0).
		Key(freezeAuthority).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

type DecompiledInitializeMint struct {
	Mint            ed25519.PublicKey
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

func DecompileInitializeMint(m solana.Message, index int) (*DecompiledInitializeMint, error) {
	i, d, err := instruction(m, index, CommandInitializeMint)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	accounts, err := m.InstructionAccounts(i)
	if err != nil {
		return nil, err
	}
	if !accounts[1].Equal(system.RentSysVar) {
		return nil, errors.New("invalid rent program")
	}
	if len(i.Data) != initializeMintDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	v := &DecompiledInitializeMint{
		Mint:          accounts[0],
		Decimals:      d.Uint8(),
		MintAuthority: d.Key(),
	}
	hasFreeze := d.Bool()
	freeze := d.Key()
	if hasFreeze {
		v.FreezeAuthority = freeze
	}
	return v, nil
}

// MintTo issues amount base units of mint into destination.
//
// Accounts:
//  0. [WRITE] mint
//  1. [WRITE] destination token account
//  2. [SIGNER] mint authority
func MintTo(mint, destination, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	data := binary.NewEncoder(mintToDataSize).
		Uint8(byte(CommandMintTo)).
		Uint64(amount).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

type DecompiledMintTo struct {
	Mint        ed25519.PublicKey
	Destination ed25519.PublicKey
	Authority   ed25519.PublicKey
	Amount      uint64
}

func DecompileMintTo(m solana.Message, index int) (*DecompiledMintTo, error) {
	i, d, err := instruction(m, index, CommandMintTo)
	if err != nil {
		return nil, err
	}
	// Multisig authorities append their signers after the authority
	if len(i.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != mintToDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	accounts, err := m.InstructionAccounts(i)
	if err != nil {
		return nil, err
	}
	return &DecompiledMintTo{
		Mint:        accounts[0],
		Destination: accounts[1],
		Authority:   accounts[2],
		Amount:      d.Uint64(),
	}, nil
}

type AuthorityType byte

const (
	AuthorityTypeMintTokens AuthorityType = iota
	AuthorityTypeFreezeAccount
	AuthorityTypeAccountHolder
	AuthorityTypeCloseAccount
)

// SetAuthority changes, or with a nil newAuthority permanently revokes, an
// authority of a mint or account.
//
// Accounts:
//  0. [WRITE] mint or token account
//  1. [SIGNER] current authority
func SetAuthority(account, currentAuthority, newAuthority ed25519.PublicKey, authorityType AuthorityType) solana.Instruction {
	e := binary.NewEncoder(setAuthorityDataSize+len(newAuthority)).
		Uint8(byte(CommandSetAuthority)).
		Uint8(byte(authorityType)).
		Bool(len(newAuthority) > 0)
	if len(newAuthority) > 0 {
		e.Key(newAuthority)
	}

	return solana.NewInstruction(
		ProgramKey,
		e.Bytes(),
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(currentAuthority, true),
	)
}

type DecompiledSetAuthority struct {
	Account          ed25519.PublicKey
	CurrentAuthority ed25519.PublicKey
	NewAuthority     ed25519.PublicKey
	Type             AuthorityType
}

func DecompileSetAuthority(m solana.Message, index int) (*DecompiledSetAuthority, error) {
	i, d, err := instruction(m, index, CommandSetAuthority)
	if err != nil {
		return nil, err
	}
	if len(i.Accounts) < 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}

	authorityType := AuthorityType(d.Uint8())
	hasNew := d.Bool()

	expected := setAuthorityDataSize
	if hasNew {
		expected += ed25519.PublicKeySize
	}
	if d.Err() != nil || len(i.Data) != expected {
		return nil, errors.Errorf("invalid data size: %d (expect %d)", len(i.Data), expected)
	}

	accounts, err := m.InstructionAccounts(i)
	if err != nil {
		return nil, err
	}
	decompiled := &DecompiledSetAuthority{
		Account:          accounts[0],
		CurrentAuthority: accounts[1],
		Type:             authorityType,
	}
	if hasNew {
		decompiled.NewAuthority = d.Key()
	}
	return decompiled, nil
}

// instruction resolves the token instruction at index and checks its command
// byte, returning a decoder positioned after it.
func instruction(m solana.Message, index int, command Command) (solana.CompiledInstruction, *binary.Decoder, error) {
	i, err := m.ProgramInstruction(index, ProgramKey)
	if err != nil {
		return i, nil, err
	}

	d := binary.NewDecoder(i.Data)
	if actual := d.Uint8(); d.Err() != nil || Command(actual) != command {
		return i, nil, solana.ErrIncorrectInstruction
	}
	return i, d, nil
}
