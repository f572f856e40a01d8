package testutil

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/solana-token-factory/factory/pkg/solana"
)

// NewBlockhash deterministically derives a blockhash from seed
func NewBlockhash(seed string) solana.Blockhash {
	return solana.Blockhash(sha256.Sum256([]byte(seed)))
}

// SolanaClient is an in memory solana.Client. Signature statuses are queued
// per signature and the last queued status is repeated once the queue drains.
type SolanaClient struct {
	sync.Mutex

	LatestBlockhash    solana.LatestBlockhash
	RentExemptLamports uint64

	BlockhashErr  error
	RentErr       error
	StatusErr     error
	SubmitErr     error
	AccountErr    error
	blockhashHook func(call int) solana.LatestBlockhash

	// DefaultStatus is returned for signatures without queued statuses
	DefaultStatus *solana.SignatureStatus

	accounts map[string]solana.AccountInfo
	statuses map[solana.Signature][]*solana.SignatureStatus

	Submitted       []solana.Transaction
	StatusCalls     int
	BlockhashCalls  int
	AccountInfoReqs int
}

func NewSolanaClient() *SolanaClient {
	return &SolanaClient{
		LatestBlockhash: solana.LatestBlockhash{
			Blockhash:            NewBlockhash("genesis"),
			LastValidBlockHeight: 150,
		},
		RentExemptLamports: 1_461_600,
		accounts:           make(map[string]solana.AccountInfo),
		statuses:           make(map[solana.Signature][]*solana.SignatureStatus),
	}
}

// RotateBlockhashes makes every GetLatestBlockhash call return a distinct
// blockhash.
func (c *SolanaClient) RotateBlockhashes() {
	c.Lock()
	defer c.Unlock()

	c.blockhashHook = func(call int) solana.LatestBlockhash {
		return solana.LatestBlockhash{
			Blockhash:            NewBlockhash(base58.Encode([]byte{byte(call)})),
			LastValidBlockHeight: uint64(150 + call),
		}
	}
}

func (c *SolanaClient) SetAccountInfo(account ed25519.PublicKey, info solana.AccountInfo) {
	c.Lock()
	defer c.Unlock()

	c.accounts[base58.Encode(account)] = info
}

// QueueSignatureStatus appends status to the responses for sig. A nil status
// simulates a signature the network has not seen.
func (c *SolanaClient) QueueSignatureStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.Lock()
	defer c.Unlock()

	c.statuses[sig] = append(c.statuses[sig], status)
}

func (c *SolanaClient) SubmittedCount() int {
	c.Lock()
	defer c.Unlock()

	return len(c.Submitted)
}

func (c *SolanaClient) GetAccountInfo(_ context.Context, account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.Lock()
	defer c.Unlock()

	c.AccountInfoReqs++

	if c.AccountErr != nil {
		return solana.AccountInfo{}, c.AccountErr
	}

	info, ok := c.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (c *SolanaClient) GetLatestBlockhash(_ context.Context, _ solana.Commitment) (solana.LatestBlockhash, error) {
	c.Lock()
	defer c.Unlock()

	c.BlockhashCalls++

	if c.BlockhashErr != nil {
		return solana.LatestBlockhash{}, c.BlockhashErr
	}

	if c.blockhashHook != nil {
		return c.blockhashHook(c.BlockhashCalls), nil
	}
	return c.LatestBlockhash, nil
}

func (c *SolanaClient) GetMinimumBalanceForRentExemption(_ context.Context, _ uint64) (uint64, error) {
	c.Lock()
	defer c.Unlock()

	if c.RentErr != nil {
		return 0, c.RentErr
	}
	return c.RentExemptLamports, nil
}

func (c *SolanaClient) GetSignatureStatuses(_ context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.Lock()
	defer c.Unlock()

	c.StatusCalls++

	if c.StatusErr != nil {
		return nil, c.StatusErr
	}

	res := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		queued := c.statuses[sig]
		if len(queued) == 0 {
			res[i] = c.DefaultStatus
			continue
		}

		res[i] = queued[0]
		if len(queued) > 1 {
			c.statuses[sig] = queued[1:]
		}
	}
	return res, nil
}

func (c *SolanaClient) SubmitTransaction(_ context.Context, txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.Lock()
	defer c.Unlock()

	if c.SubmitErr != nil {
		return solana.Signature{}, c.SubmitErr
	}

	c.Submitted = append(c.Submitted, txn)
	return txn.Signature(), nil
}

// ConfirmedStatus is a status at the confirmed commitment level
func ConfirmedStatus() *solana.SignatureStatus {
	confirmations := 1
	return &solana.SignatureStatus{
		Slot:               10,
		Confirmations:      &confirmations,
		ConfirmationStatus: "confirmed",
	}
}

// ProcessedStatus is a status the network has seen but not yet confirmed
func ProcessedStatus() *solana.SignatureStatus {
	confirmations := 0
	return &solana.SignatureStatus{
		Slot:               10,
		Confirmations:      &confirmations,
		ConfirmationStatus: "processed",
	}
}

// FailedStatus is a status carrying an on chain error
func FailedStatus(txErr *solana.TransactionError) *solana.SignatureStatus {
	confirmations := 1
	return &solana.SignatureStatus{
		Slot:               10,
		ErrorResult:        txErr,
		Confirmations:      &confirmations,
		ConfirmationStatus: "confirmed",
	}
}
