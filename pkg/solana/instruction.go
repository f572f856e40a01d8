package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is an account referenced by an instruction, along with the
// permissions the instruction needs on it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
	isPayer    bool
	isProgram  bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// accountLess orders accounts the way a message lists them: the payer first,
// programs last, and otherwise signers before non-signers and writable before
// readonly. Ties are broken by key so compiled messages are deterministic.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
func accountLess(a, b AccountMeta) bool {
	switch {
	case a.isPayer != b.isPayer:
		return a.isPayer
	case a.isProgram != b.isProgram:
		return b.isProgram
	case a.IsSigner != b.IsSigner:
		return a.IsSigner
	case a.IsWritable != b.IsWritable:
		return a.IsWritable
	}
	return bytes.Compare(a.PublicKey, b.PublicKey) < 0
}

// mergeAccounts collapses repeated keys into a single entry holding the union
// of their permissions, keeping first-seen order.
func mergeAccounts(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))
	positions := make(map[string]int, len(accounts))

	for _, account := range accounts {
		key := string(account.PublicKey)

		pos, ok := positions[key]
		if !ok {
			positions[key] = len(merged)
			merged = append(merged, account)
			continue
		}

		existing := &merged[pos]
		existing.IsSigner = existing.IsSigner || account.IsSigner
		existing.IsWritable = existing.IsWritable || account.IsWritable
		existing.isPayer = existing.isPayer || account.isPayer
	}

	return merged
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// IsForProgram reports whether the instruction targets program.
func (i Instruction) IsForProgram(program ed25519.PublicKey) bool {
	return bytes.Equal(i.Program, program)
}

// CompiledInstruction represents an instruction that has been compiled into a transaction.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

// ProgramInstruction returns the compiled instruction at index, failing with
// ErrIncorrectProgram when it targets a program other than program
func (m Message) ProgramInstruction(index int, program ed25519.PublicKey) (CompiledInstruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return CompiledInstruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if int(i.ProgramIndex) >= len(m.Accounts) || !bytes.Equal(m.Accounts[i.ProgramIndex], program) {
		return CompiledInstruction{}, ErrIncorrectProgram
	}
	return i, nil
}

// InstructionAccounts resolves the account indexes of i against the message
func (m Message) InstructionAccounts(i CompiledInstruction) ([]ed25519.PublicKey, error) {
	accounts := make([]ed25519.PublicKey, len(i.Accounts))
	for n, index := range i.Accounts {
		if int(index) >= len(m.Accounts) {
			return nil, errors.Errorf("account index %d out of range", index)
		}
		accounts[n] = m.Accounts[index]
	}
	return accounts, nil
}
