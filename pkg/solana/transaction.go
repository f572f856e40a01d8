package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana/shortvec"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232
)

var (
	ErrTransactionTooLarge = errors.New("transaction exceeds maximum size")
	ErrNotASigner          = errors.New("account is not a required signer")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// NewTransaction compiles a legacy transaction paid for by payer.
func NewTransaction(payer ed25519.PublicKey, instructions ...Instruction) Transaction {
	m := compileMessage(payer, instructions)
	return Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}
}

// compileMessage lays out the unique accounts referenced by instructions and
// rewrites each instruction to use indexes into that list
func compileMessage(payer ed25519.PublicKey, instructions []Instruction) Message {
	metas := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	for _, i := range instructions {
		metas = append(metas, AccountMeta{PublicKey: i.Program, isProgram: true})
		metas = append(metas, i.Accounts...)
	}

	metas = mergeAccounts(metas)
	sort.SliceStable(metas, func(i, j int) bool {
		return accountLess(metas[i], metas[j])
	})

	var m Message
	m.Accounts = make([]ed25519.PublicKey, len(metas))
	for n, meta := range metas {
		key := meta.PublicKey
		if len(key) == 0 {
			key = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}
		m.Accounts[n] = key

		switch {
		case meta.IsSigner && meta.IsWritable:
			m.Header.NumSignatures++
		case meta.IsSigner:
			m.Header.NumSignatures++
			m.Header.NumReadonlySigned++
		case !meta.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	lookup := func(key ed25519.PublicKey) byte {
		if len(key) == 0 {
			key = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}
		return byte(indexOf(m.Accounts, key))
	}

	m.Instructions = make([]CompiledInstruction, len(instructions))
	for n, i := range instructions {
		compiled := CompiledInstruction{
			ProgramIndex: lookup(i.Program),
			Accounts:     make([]byte, len(i.Accounts)),
			Data:         i.Data,
		}
		for k, a := range i.Accounts {
			compiled.Accounts[k] = lookup(a.PublicKey)
		}
		m.Instructions[n] = compiled
	}

	return m
}

// Signature returns the fee payer's signature, which doubles as the
// transaction ID once broadcast.
func (t *Transaction) Signature() Signature {
	if len(t.Signatures) == 0 {
		return Signature{}
	}
	return t.Signatures[0]
}

// FeePayer returns the account paying for the transaction.
func (t *Transaction) FeePayer() ed25519.PublicKey {
	if len(t.Message.Accounts) == 0 {
		return nil
	}
	return t.Message.Accounts[0]
}

// RequiredSigners returns the accounts that must sign the transaction, in
// signature slot order.
func (t *Transaction) RequiredSigners() []ed25519.PublicKey {
	n := int(t.Message.Header.NumSignatures)
	if n > len(t.Message.Accounts) {
		n = len(t.Message.Accounts)
	}
	return t.Message.Accounts[:n]
}

// IsSignedBy reports whether the signature slot for pub has been filled.
func (t *Transaction) IsSignedBy(pub ed25519.PublicKey) bool {
	index := indexOf(t.RequiredSigners(), pub)
	if index < 0 || index >= len(t.Signatures) {
		return false
	}
	return t.Signatures[index] != Signature{}
}

// Size returns the serialized size of the transaction, including one
// signature slot per required signer.
func (t *Transaction) Size() int {
	numSignatures := int(t.Message.Header.NumSignatures)
	if len(t.Signatures) > numSignatures {
		numSignatures = len(t.Signatures)
	}

	return shortvec.EncodedLen(numSignatures) +
		numSignatures*ed25519.SignatureSize +
		len(t.Message.Marshal())
}

// CheckSize returns ErrTransactionTooLarge if the transaction cannot be
// accepted by the network.
func (t *Transaction) CheckSize() error {
	if size := t.Size(); size > MaxTransactionSize {
		return errors.Wrapf(ErrTransactionTooLarge, "%d > %d bytes", size, MaxTransactionSize)
	}
	return nil
}

func (t *Transaction) String() string {
	var sb strings.Builder
	m := t.Message

	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		fmt.Fprintf(&sb, "  %d: %s\n", i, s.ToBase58())
	}

	fmt.Fprintf(&sb, "Message:\n  Header: signatures=%d readonly_signed=%d readonly=%d\n",
		m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly)
	fmt.Fprintf(&sb, "  RecentBlockhash: %s\n", m.RecentBlockhash.ToBase58())

	sb.WriteString("  Accounts:\n")
	for i, a := range m.Accounts {
		fmt.Fprintf(&sb, "    %d: %s\n", i, base58.Encode(a))
	}

	sb.WriteString("  Instructions:\n")
	for i, c := range m.Instructions {
		fmt.Fprintf(&sb, "    %d: program=%d accounts=%v data=%x\n", i, c.ProgramIndex, c.Accounts, c.Data)
	}
	return sb.String()
}

// SetBlockhash attaches bh to the message. Any existing signatures are
// cleared since they were produced over the previous message.
func (t *Transaction) SetBlockhash(bh Blockhash) {
	if t.Message.RecentBlockhash == bh {
		return
	}

	t.Message.RecentBlockhash = bh
	for i := range t.Signatures {
		t.Signatures[i] = Signature{}
	}
}

// Sign fills the signature slot of each signer. Signers that are not part of
// the transaction result in ErrNotASigner.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 || index >= len(t.Signatures) {
			return errors.Wrapf(ErrNotASigner, "signing account %s", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

// VerifySignatures checks every non-empty signature slot against the message.
func (t *Transaction) VerifySignatures() error {
	messageBytes := t.Message.Marshal()

	for i, sig := range t.Signatures {
		if sig == (Signature{}) {
			continue
		}
		if i >= len(t.Message.Accounts) {
			return errors.Errorf("signature %d has no matching account", i)
		}
		if !ed25519.Verify(t.Message.Accounts[i], messageBytes, sig[:]) {
			return errors.Errorf("invalid signature for %s", base58.Encode(t.Message.Accounts[i]))
		}
	}

	return nil
}

// DecompileInstructions rebuilds the instruction list from the compiled
// message, restoring signer and writable flags from the header.
func (t *Transaction) DecompileInstructions() ([]Instruction, error) {
	m := t.Message
	instructions := make([]Instruction, 0, len(m.Instructions))

	for i, ci := range m.Instructions {
		if int(ci.ProgramIndex) >= len(m.Accounts) {
			return nil, errors.Errorf("program index out of range: %d:%d", i, ci.ProgramIndex)
		}

		instruction := Instruction{
			Program: m.Accounts[ci.ProgramIndex],
			Data:    ci.Data,
		}
		for _, index := range ci.Accounts {
			if int(index) >= len(m.Accounts) {
				return nil, errors.Errorf("account index out of range: %d:%d", i, index)
			}

			instruction.Accounts = append(instruction.Accounts, AccountMeta{
				PublicKey:  m.Accounts[index],
				IsSigner:   m.isSigner(int(index)),
				IsWritable: m.isWritable(int(index)),
			})
		}

		instructions = append(instructions, instruction)
	}

	return instructions, nil
}

func (m Message) isSigner(index int) bool {
	return index < int(m.Header.NumSignatures)
}

func (m Message) isWritable(index int) bool {
	if m.isSigner(index) {
		return index < int(m.Header.NumSignatures)-int(m.Header.NumReadonlySigned)
	}
	return index < len(m.Accounts)-int(m.Header.NumReadOnly)
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
