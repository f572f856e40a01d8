package wallet

import (
	"context"
	"crypto/ed25519"
	"strings"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
)

var (
	ErrNoProvider   = errors.New("no wallet provider found")
	ErrUserRejected = errors.New("user rejected the request")

	ErrWrongFeePayer           = errors.New("wallet is not the transaction fee payer")
	ErrMissingPartialSignature = errors.New("transaction is missing the mint signature")
	ErrSignatureCollision      = errors.New("fee payer signature slot is already filled")
)

// Brand identifies a wallet implementation
type Brand string

const (
	BrandUnknown  Brand = ""
	BrandPhantom  Brand = "phantom"
	BrandSolflare Brand = "solflare"
)

// SignAndSendResult is returned by wallets that sign and broadcast in a single
// call.
type SignAndSendResult struct {
	Signature solana.Signature
	PublicKey ed25519.PublicKey
}

// InjectedProvider is a brand specific provider the wallet exposes to the
// environment it runs in.
type InjectedProvider interface {
	SignAndSendTransaction(ctx context.Context, txn *solana.Transaction) (SignAndSendResult, error)
}

type SendOptions struct {
	Commitment    solana.Commitment
	SkipPreflight bool
}

// Adapter is the generic wallet interface. Implementations sign with the
// wallet key and broadcast through network.
type Adapter interface {
	SendTransaction(ctx context.Context, txn *solana.Transaction, network solana.Client, opts SendOptions) (solana.Signature, error)
}

// Environment resolves the injected provider for a brand, if one is present
type Environment interface {
	InjectedProvider(brand Brand) (InjectedProvider, bool)
}

// StaticEnvironment is an Environment backed by a fixed set of providers
type StaticEnvironment map[Brand]InjectedProvider

func (e StaticEnvironment) InjectedProvider(brand Brand) (InjectedProvider, bool) {
	provider, ok := e[brand]
	return provider, ok && provider != nil
}

// Handle is the user's connected wallet
type Handle struct {
	Brand       Brand
	PublicKey   ed25519.PublicKey
	Environment Environment
	Adapter     Adapter
}

type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// SubmissionResult is the normalized result of handing a transaction to a
// wallet. Wallet failures are reported through Err with StatusFailed.
type SubmissionResult struct {
	Signature solana.Signature
	Status    Status
	Err       error

	Brand    Brand
	Injected bool
}

// IsUserRejection reports whether err is a wallet side rejection
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) {
		return true
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "user rejected") || strings.Contains(message, "rejected the request")
}
