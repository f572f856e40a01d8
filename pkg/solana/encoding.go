package solana

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana/shortvec"
)

func (s Signature) ToBase58() string {
	return base58.Encode(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

// SignatureFromBase58 parses a base58 encoded transaction signature.
func SignatureFromBase58(value string) (sig Signature, err error) {
	err = decodeFixed(value, sig[:], "signature")
	return sig, err
}

func (b Blockhash) ToBase58() string {
	return base58.Encode(b[:])
}

// BlockhashFromBase58 parses a base58 encoded blockhash.
func BlockhashFromBase58(value string) (hash Blockhash, err error) {
	err = decodeFixed(value, hash[:], "blockhash")
	return hash, err
}

func decodeFixed(value string, dst []byte, kind string) error {
	decoded, err := base58.Decode(value)
	if err != nil {
		return errors.Wrapf(err, "invalid base58 encoded %s", kind)
	}
	if len(decoded) != len(dst) {
		return errors.Errorf("invalid %s length: %d", kind, len(decoded))
	}
	copy(dst, decoded)
	return nil
}

// Marshal encodes the wire format: the signatures followed by the message.
func (t Transaction) Marshal() []byte {
	message := t.Message.Marshal()

	b := make([]byte, 0, shortvec.EncodedLen(len(t.Signatures))+len(t.Signatures)*ed25519.SignatureSize+len(message))
	b = appendLen(b, len(t.Signatures))
	for _, s := range t.Signatures {
		b = append(b, s[:]...)
	}
	return append(b, message...)
}

// ToBase64 encodes the wire format of the transaction, as expected by wallet
// providers and the sendTransaction RPC method.
func (t Transaction) ToBase64() string {
	return base64.StdEncoding.EncodeToString(t.Marshal())
}

func (t *Transaction) Unmarshal(b []byte) error {
	r := &wireReader{buf: b}

	count := r.readLen("signature count")
	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		r.readBytes(t.Signatures[i][:], "signature")
	}
	if r.err != nil {
		return r.err
	}

	return t.Message.Unmarshal(r.rest())
}

// Marshal encodes the legacy message format. Account keys shorter than 32
// bytes are zero padded.
func (m Message) Marshal() []byte {
	b := []byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly}

	b = appendLen(b, len(m.Accounts))
	for _, account := range m.Accounts {
		var key [ed25519.PublicKeySize]byte
		copy(key[:], account)
		b = append(b, key[:]...)
	}

	b = append(b, m.RecentBlockhash[:]...)

	b = appendLen(b, len(m.Instructions))
	for _, i := range m.Instructions {
		b = append(b, i.ProgramIndex)
		b = appendLen(b, len(i.Accounts))
		b = append(b, i.Accounts...)
		b = appendLen(b, len(i.Data))
		b = append(b, i.Data...)
	}

	return b
}

func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := &wireReader{buf: b}

	var header [3]byte
	r.readBytes(header[:], "header")
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	m.Accounts = make([]ed25519.PublicKey, r.readLen("account count"))
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		r.readBytes(m.Accounts[i], "account")
	}

	r.readBytes(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, r.readLen("instruction count"))
	for i := range m.Instructions {
		var programIndex [1]byte
		r.readBytes(programIndex[:], "program index")

		c := CompiledInstruction{ProgramIndex: programIndex[0]}
		c.Accounts = make([]byte, r.readLen("instruction account count"))
		r.readBytes(c.Accounts, "instruction accounts")
		c.Data = make([]byte, r.readLen("instruction data length"))
		r.readBytes(c.Data, "instruction data")

		if r.err != nil {
			return errors.Wrapf(r.err, "instruction %d", i)
		}
		if err := m.checkIndexes(c); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}

		m.Instructions[i] = c
	}

	return r.err
}

func (m *Message) checkIndexes(c CompiledInstruction) error {
	if int(c.ProgramIndex) >= len(m.Accounts) {
		return errors.Errorf("program index out of range: %d", c.ProgramIndex)
	}
	for _, index := range c.Accounts {
		if int(index) >= len(m.Accounts) {
			return errors.Errorf("account index out of range: %d", index)
		}
	}
	return nil
}

// appendLen appends a compact length. Lengths beyond a u16 cannot fit in a
// transaction, which is bounded well below that by MaxTransactionSize.
func appendLen(b []byte, n int) []byte {
	b, _ = shortvec.AppendLen(b, n)
	return b
}

// wireReader consumes a byte slice front to back. The first failure is kept
// and every later read becomes a no-op.
type wireReader struct {
	buf []byte
	err error
}

func (r *wireReader) readLen(what string) int {
	if r.err != nil {
		return 0
	}

	n, size, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", what)
		return 0
	}
	r.buf = r.buf[size:]
	return n
}

func (r *wireReader) readBytes(dst []byte, what string) {
	if r.err != nil {
		return
	}
	if len(r.buf) < len(dst) {
		r.err = errors.Errorf("failed to read %s: need %d bytes, have %d", what, len(dst), len(r.buf))
		return
	}
	copy(dst, r.buf)
	r.buf = r.buf[len(dst):]
}

func (r *wireReader) rest() []byte {
	return r.buf
}
