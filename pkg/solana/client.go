package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/solana-token-factory/factory/pkg/retry"
	"github.com/solana-token-factory/factory/pkg/retry/backoff"
)

// Node is behind on slots or otherwise unhealthy
//
// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
const rpcNodeUnhealthyCode = -32005

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

var ErrNoAccountInfo = errors.New("no account info")

// AccountInfo is the raw state of an account
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations is nil once the transaction is rooted
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	switch {
	case s.Finalized(), s.ConfirmationStatus == confirmationStatusConfirmed:
		return true
	default:
		return *s.Confirmations > 0
	}
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// LatestBlockhash is a recent blockhash along with the last block height at
// which a transaction referencing it is still accepted.
type LatestBlockhash struct {
	Blockhash            Blockhash
	LastValidBlockHeight uint64
}

// Client is the subset of the Solana JSON RPC API token creation relies on
type Client interface {
	GetAccountInfo(context.Context, ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetLatestBlockhash(context.Context, Commitment) (LatestBlockhash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (lamports uint64, err error)
	GetSignatureStatuses(context.Context, []Signature) ([]*SignatureStatus, error)
	SubmitTransaction(context.Context, Transaction, Commitment) (Signature, error)
}

// Transient failures retried by the default strategies
var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type client struct {
	log     *logrus.Entry
	rpc     jsonrpc.RPCClient
	retrier retry.Retrier
}

// New returns a client for endpoint that retries rate limiting and node
// failures with exponential backoff.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions is New with custom transport options and, when given,
// retry strategies replacing the defaults.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts, strategies ...retry.Strategy) Client {
	if len(strategies) == 0 {
		strategies = []retry.Strategy{
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		}
	}

	return &client{
		log:     logrus.StandardLogger().WithField("type", "solana/client"),
		rpc:     jsonrpc.NewClientWithOpts(endpoint, opts),
		retrier: retry.NewRetrier(strategies...),
	}
}

func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(ctx, func() error {
		return c.classify(method, c.rpc.CallFor(out, method, params...))
	})
	if err != nil {
		return errors.Wrapf(err, "%s failed", method)
	}
	return nil
}

// classify maps transport and node errors onto the retriable sentinels,
// passing anything else through unchanged
func (c *client) classify(method string, err error) error {
	var code int
	switch typed := err.(type) {
	case nil:
		return nil
	case *jsonrpc.HTTPError:
		code = typed.Code
	case *jsonrpc.RPCError:
		if typed.Code == rpcNodeUnhealthyCode {
			return errServiceError
		}
		code = typed.Code
	default:
		return err
	}

	switch {
	case code == http.StatusTooManyRequests:
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	case code >= http.StatusInternalServerError:
		return errServiceError
	default:
		return err
	}
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var lamports uint64
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, err
	}
	return lamports, nil
}

// GetLatestBlockhash always queries the node. Transactions are re-signed
// against the returned value, so it is never served from a cache.
func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (LatestBlockhash, error) {
	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}

	// The node rejects a bare config object here, so it goes in an array
	if err := c.call(ctx, &resp, "getLatestBlockhash", []interface{}{commitment}); err != nil {
		return LatestBlockhash{}, err
	}

	hash, err := BlockhashFromBase58(resp.Value.Blockhash)
	if err != nil {
		return LatestBlockhash{}, errors.Wrap(err, "invalid blockhash in response")
	}
	return LatestBlockhash{
		Blockhash:            hash,
		LastValidBlockHeight: resp.Value.LastValidBlockHeight,
	}, nil
}

// SubmitTransaction broadcasts a fully signed transaction with preflight
// checks. A failed simulation is returned as a *TransactionError. The
// signature is returned even on failure.
func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signature()

	config := map[string]interface{}{
		"encoding":            "base64",
		"skipPreflight":       false,
		"preflightCommitment": commitment.Commitment,
	}

	var result string
	err := c.call(ctx, &result, "sendTransaction", txn.ToBase64(), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := errors.Cause(err).(*jsonrpc.RPCError)
	if !ok {
		return sig, err
	}
	txErr, parseErr := ParseRPCError(rpcErr)
	if parseErr != nil || txErr == nil {
		return sig, err
	}

	c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.ToBase58(),
	}).WithError(txErr).Debug("transaction failed preflight")
	return sig, txErr
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var resp struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	config := map[string]interface{}{
		"commitment": commitment.Commitment,
		"encoding":   "base64",
	}
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), config); err != nil {
		return AccountInfo{}, err
	}

	value := resp.Value
	if value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}
	if len(value.Data) == 0 {
		return AccountInfo{}, errors.New("missing account data")
	}

	owner, err := PublicKeyFromBase58(value.Owner)
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid owner")
	}
	data, err := base64.StdEncoding.DecodeString(value.Data[0])
	if err != nil {
		return AccountInfo{}, errors.Wrap(err, "invalid base64 encoded data")
	}

	return AccountInfo{
		Data:       data,
		Owner:      owner,
		Lamports:   value.Lamports,
		Executable: value.Executable,
	}, nil
}

// GetSignatureStatuses returns one entry per signature, nil when the node has
// no record of it yet.
func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = sig.ToBase58()
	}

	var resp struct {
		Value []*struct {
			Slot               uint64          `json:"slot"`
			Confirmations      *int            `json:"confirmations"`
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}

	config := map[string]interface{}{"searchTransactionHistory": true}
	if err := c.call(ctx, &resp, "getSignatureStatuses", encoded, config); err != nil {
		return nil, err
	}
	if len(resp.Value) > len(sigs) {
		return nil, errors.Errorf("unexpected number of statuses: %d", len(resp.Value))
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil {
			continue
		}

		status := &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		txErr, err := decodeTransactionError(v.Err)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid status for %s", encoded[i])
		}
		status.ErrorResult = txErr

		statuses[i] = status
	}

	return statuses, nil
}

// decodeTransactionError parses a status "err" field. Unrecognised shapes
// are kept so the raw payload still reaches the caller.
func decodeTransactionError(raw json.RawMessage) (*TransactionError, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()

	var value interface{}
	if err := d.Decode(&value); err != nil {
		return nil, err
	}

	parsed, err := ParseTransactionError(value)
	if parsed == nil && err != nil {
		return nil, err
	}
	return parsed, nil
}
