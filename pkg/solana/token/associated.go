package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey is ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

const createAssociatedAccountsLen = 6

// GetAssociatedAccount derives the owner's associated token account for mint.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(owner, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		owner,
		ProgramKey,
		mint,
	)
}

// CreateAssociatedTokenAccount creates the owner's associated token account
// for mint, funded by payer. The instruction fails if the account exists.
// The rent sysvar account older program versions took is omitted.
//
// Accounts:
//  0. [WRITE, SIGNER] payer
//  1. [WRITE] associated token account
//  2. [] owner
//  3. [] mint
//  4. [] system program
//  5. [] token program
func CreateAssociatedTokenAccount(payer, owner, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	address, err := GetAssociatedAccount(owner, mint)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		nil,
		solana.NewAccountMeta(payer, true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(ProgramKey, false),
	), address, nil
}

type DecompiledCreateAssociatedAccount struct {
	Payer   ed25519.PublicKey
	Address ed25519.PublicKey
	Owner   ed25519.PublicKey
	Mint    ed25519.PublicKey
}

func DecompileCreateAssociatedAccount(m solana.Message, index int) (*DecompiledCreateAssociatedAccount, error) {
	i, err := m.ProgramInstruction(index, AssociatedTokenAccountProgramKey)
	if err != nil {
		return nil, err
	}
	if len(i.Data) != 0 {
		return nil, errors.New("unexpected instruction data")
	}
	if len(i.Accounts) != createAssociatedAccountsLen {
		return nil, errors.Errorf("invalid number of accounts: %d (expected %d)", len(i.Accounts), createAssociatedAccountsLen)
	}

	accounts, err := m.InstructionAccounts(i)
	if err != nil {
		return nil, err
	}
	switch {
	case !accounts[4].Equal(ed25519.PublicKey(system.ProgramKey[:])):
		return nil, errors.New("system program key mismatch")
	case !accounts[5].Equal(ProgramKey):
		return nil, errors.New("token program key mismatch")
	}

	payer, address, owner, mint := accounts[0], accounts[1], accounts[2], accounts[3]
	expected, err := GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, err
	}
	if !expected.Equal(address) {
		return nil, errors.New("address is not the associated token account")
	}

	return &DecompiledCreateAssociatedAccount{
		Payer:   payer,
		Address: address,
		Owner:   owner,
		Mint:    mint,
	}, nil
}
