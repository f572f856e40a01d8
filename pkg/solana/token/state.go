package token

import (
	"crypto/ed25519"

	"github.com/solana-token-factory/factory/pkg/solana/binary"
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L37
const MintSize = 82

type Mint struct {
	// Optional authority used to mint new tokens. Once unset, no further
	// tokens can ever be minted.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	return binary.NewEncoder(MintSize).
		OptionalKey(m.MintAuthority).
		Uint64(m.Supply).
		Uint8(m.Decimals).
		Bool(m.IsInitialized).
		OptionalKey(m.FreezeAuthority).
		Bytes()
}

// Unmarshal parses mint account data, reporting false when b isn't a mint
func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	d := binary.NewDecoder(b)
	m.MintAuthority = d.OptionalKey()
	m.Supply = d.Uint64()
	m.Decimals = d.Uint8()
	m.IsInitialized = d.Bool()
	m.FreezeAuthority = d.OptionalKey()

	return d.Err() == nil
}
