package wallet

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/factory/transaction"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/solana"
)

const (
	submissionEventName = "WalletSubmission"
)

// Submitter hands assembled transactions to the user's wallet
type Submitter struct {
	log        *logrus.Entry
	network    solana.Client
	strategies StrategyTable
	opts       SendOptions
}

func NewSubmitter(network solana.Client, strategies StrategyTable) *Submitter {
	if strategies == nil {
		strategies = DefaultStrategyTable()
	}

	return &Submitter{
		log:        logrus.StandardLogger().WithField("type", "factory/wallet"),
		network:    network,
		strategies: strategies,
		opts: SendOptions{
			Commitment: solana.CommitmentConfirmed,
		},
	}
}

// Submit selects the strategy for the handle's brand once, then prefers the
// brand's injected provider and falls back to the generic adapter.
//
// A non nil error means the transaction itself was unsuitable for
// submission. Wallet failures are expected outcomes and are reported through
// a failed SubmissionResult.
func (s *Submitter) Submit(ctx context.Context, assembled *transaction.Assembled, handle Handle) (*SubmissionResult, error) {
	if assembled == nil {
		return nil, errors.New("assembled transaction is required")
	}

	strategy := s.strategies.Lookup(handle.Brand)

	log := s.log.WithFields(logrus.Fields{
		"method": "Submit",
		"brand":  string(strategy.Brand),
		"mint":   assembled.Mint.String(),
	})

	if err := checkSignatureSlots(&assembled.Transaction, handle, strategy); err != nil {
		log.WithError(err).Warn("transaction is not ready for wallet submission")
		return nil, err
	}

	// Wallets sign their own copy, so the assembled transaction can be
	// rebuilt or resubmitted later.
	txn := cloneTransaction(assembled.Transaction)

	result := &SubmissionResult{
		Brand: strategy.Brand,
	}

	provider, ok := strategy.Detect(handle.Environment)
	switch {
	case ok:
		result.Injected = true

		var res SignAndSendResult
		res, result.Err = provider.SignAndSendTransaction(ctx, &txn)
		if result.Err == nil && len(res.PublicKey) > 0 && !bytes.Equal(res.PublicKey, handle.PublicKey) {
			result.Err = ErrWrongFeePayer
		}
		result.Signature = res.Signature
	case handle.Adapter != nil:
		result.Signature, result.Err = handle.Adapter.SendTransaction(ctx, &txn, s.network, s.opts)
	default:
		result.Err = ErrNoProvider
	}

	if result.Err == nil && result.Signature.IsZero() {
		result.Err = errors.New("wallet returned an empty signature")
	}

	if result.Err != nil {
		result.Status = StatusFailed
		result.Signature = solana.Signature{}
		if IsUserRejection(result.Err) && !errors.Is(result.Err, ErrUserRejected) {
			result.Err = errors.Wrap(ErrUserRejected, result.Err.Error())
		} else if !errors.Is(result.Err, ErrNoProvider) && !errors.Is(result.Err, ErrUserRejected) {
			result.Err = errors.Wrap(result.Err, "error submitting transaction")
		}

		log.WithError(result.Err).Info("wallet submission failed")
	} else {
		result.Status = StatusPending
		log.WithField("signature", result.Signature.ToBase58()).Debug("transaction submitted")
	}

	metrics.RecordEvent(ctx, submissionEventName, map[string]interface{}{
		"brand":    string(strategy.Brand),
		"injected": result.Injected,
		"status":   result.Status.String(),
	})

	return result, nil
}

func checkSignatureSlots(txn *solana.Transaction, handle Handle, strategy Strategy) error {
	if !bytes.Equal(txn.FeePayer(), handle.PublicKey) {
		return ErrWrongFeePayer
	}

	if len(txn.Signatures) == 0 {
		return errors.New("transaction has no signature slots")
	}

	if !txn.Signatures[0].IsZero() {
		return ErrSignatureCollision
	}

	if strategy.RequiresPartialSign {
		for _, signer := range txn.RequiredSigners()[1:] {
			if !txn.IsSignedBy(signer) {
				return ErrMissingPartialSignature
			}
		}
	}

	return nil
}

func cloneTransaction(txn solana.Transaction) solana.Transaction {
	cloned := txn
	cloned.Signatures = make([]solana.Signature, len(txn.Signatures))
	copy(cloned.Signatures, txn.Signatures)
	return cloned
}
