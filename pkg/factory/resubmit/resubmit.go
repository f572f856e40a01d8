package resubmit

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/factory/confirmation"
	"github.com/solana-token-factory/factory/pkg/factory/transaction"
	"github.com/solana-token-factory/factory/pkg/factory/wallet"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/token"
)

const (
	ResubmissionAttemptedEventName = "ResubmissionAttempted"
)

var (
	ErrRetryExhausted = errors.New("transaction was already resubmitted")
	ErrNotRetryable   = errors.New("attempt is not in a retryable state")
)

// Attempt is a submission that may be resubmitted at most once
type Attempt struct {
	sync.Mutex

	Assembled   *transaction.Assembled
	Outcome     wallet.Outcome
	Resubmitted bool
}

// Result is the outcome of a resubmission. PriorLanding is set when an earlier
// submission was found to have landed and nothing new was submitted.
type Result struct {
	Assembled    *transaction.Assembled
	Outcome      wallet.Outcome
	Poll         confirmation.Result
	PriorLanding bool
}

type Resubmitter struct {
	log       *logrus.Entry
	conf      *conf
	client    solana.Client
	builder   *transaction.Builder
	submitter *wallet.Submitter
	poller    *confirmation.Poller
}

func New(
	client solana.Client,
	builder *transaction.Builder,
	submitter *wallet.Submitter,
	poller *confirmation.Poller,
	configProvider ConfigProvider,
) *Resubmitter {
	return &Resubmitter{
		log:       logrus.StandardLogger().WithField("type", "factory/resubmit"),
		conf:      configProvider(),
		client:    client,
		builder:   builder,
		submitter: submitter,
		poller:    poller,
	}
}

// Resubmit rebuilds the attempt's transaction with a fresh blockhash and a
// single compute unit limit instruction, then submits and polls it again. The
// same mint identity signs the new transaction, so the mint account can only
// ever be created once. The fee transfer carries no such guarantee.
func (r *Resubmitter) Resubmit(ctx context.Context, attempt *Attempt, handle wallet.Handle) (*Result, error) {
	attempt.Lock()
	defer attempt.Unlock()

	// A settled attempt is never retried, whether or not it was resubmitted
	if attempt.Assembled == nil || !attempt.Outcome.IsRetryable() {
		return nil, ErrNotRetryable
	}
	if attempt.Resubmitted {
		return nil, ErrRetryExhausted
	}

	prev := attempt.Assembled

	log := r.log.WithFields(logrus.Fields{
		"method":  "Resubmit",
		"mint":    prev.Mint.String(),
		"outcome": attempt.Outcome.Kind.String(),
	})

	landed, err := r.checkPriorLanding(ctx, attempt)
	if err != nil {
		log.WithError(err).Warn("failure checking for a prior landing")
		return nil, err
	}
	if landed != nil {
		log.Info("prior submission landed, skipping resubmission")
		attempt.Outcome = landed.Outcome
		return landed, nil
	}

	rebuilt, err := r.builder.Rebuild(ctx, prev, uint32(r.conf.computeUnitLimit.Get(ctx)))
	if err != nil {
		log.WithError(err).Warn("failure rebuilding transaction")
		return nil, err
	}

	// Only one resubmission is allowed once anything reaches the wallet
	attempt.Resubmitted = true
	attempt.Assembled = rebuilt

	log.WithField("fee", prev.Quote.Final).Warn("resubmitting token creation, the fee transfer may execute twice if the prior submission lands late")
	metrics.RecordEvent(ctx, ResubmissionAttemptedEventName, map[string]interface{}{
		"mint":            prev.Mint.String(),
		"trigger":         attempt.Outcome.Kind.String(),
		"fee_lamports":    prev.Quote.Final,
		"double_fee_risk": attempt.Outcome.Kind == wallet.OutcomeTimeout,
	})

	submission, err := r.submitter.Submit(ctx, rebuilt, handle)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Assembled: rebuilt,
		Outcome:   wallet.SubmissionOutcome(submission),
	}

	if submission.Err == nil {
		result.Poll = r.poller.Poll(ctx, submission.Signature, int(r.conf.pollAttempts.Get(ctx)), r.conf.pollInterval.Get(ctx))
		result.Outcome = ResolveOutcome(submission, result.Poll)

		// The rebuilt transaction failing because the mint already exists
		// means the previous one landed after all.
		if result.Outcome.Kind == wallet.OutcomeFailed && result.Outcome.TxErr != nil && result.Outcome.TxErr.IndicatesPriorLanding() {
			log.Info("resubmission failed because the prior submission landed")
			result.PriorLanding = true
			result.Outcome = wallet.Outcome{
				Kind:      wallet.OutcomeConfirmed,
				Signature: attempt.Outcome.Signature,
			}
		}
	}

	attempt.Outcome = result.Outcome

	log.WithField("result", result.Outcome.Kind.String()).Info("resubmission completed")
	return result, nil
}

// checkPriorLanding re-checks the previous signature and the mint account
// before anything is resubmitted.
func (r *Resubmitter) checkPriorLanding(ctx context.Context, attempt *Attempt) (*Result, error) {
	if sig := attempt.Outcome.Signature; !sig.IsZero() {
		check := r.poller.Check(ctx, sig)
		if check.Cause != nil {
			return nil, check.Cause
		}

		switch check.State {
		case confirmation.StateConfirmed:
			return &Result{
				Assembled:    attempt.Assembled,
				Outcome:      wallet.Outcome{Kind: wallet.OutcomeConfirmed, Signature: sig},
				Poll:         check,
				PriorLanding: true,
			}, nil
		case confirmation.StateFailed:
			r.log.WithField("signature", sig.ToBase58()).WithError(check.Err).Debug("prior submission failed on chain")
		}
	}

	mintKey := ed25519.PublicKey(attempt.Assembled.Mint.PublicKey().ToBytes())
	info, err := r.client.GetAccountInfo(ctx, mintKey, solana.CommitmentConfirmed)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting mint account")
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) || !mint.IsInitialized {
		return nil, nil
	}

	return &Result{
		Assembled:    attempt.Assembled,
		Outcome:      wallet.Outcome{Kind: wallet.OutcomeConfirmed, Signature: attempt.Outcome.Signature},
		PriorLanding: true,
	}, nil
}

// ResolveOutcome combines a successful submission with its polling result
func ResolveOutcome(submission *wallet.SubmissionResult, poll confirmation.Result) wallet.Outcome {
	if submission == nil || submission.Err != nil {
		return wallet.SubmissionOutcome(submission)
	}

	outcome := wallet.Outcome{Signature: submission.Signature}
	switch poll.State {
	case confirmation.StateConfirmed:
		outcome.Kind = wallet.OutcomeConfirmed
		submission.Status = wallet.StatusConfirmed
	case confirmation.StateFailed:
		outcome.Kind = wallet.OutcomeFailed
		outcome.TxErr = poll.Err
		submission.Status = wallet.StatusFailed
	default:
		outcome.Kind = wallet.OutcomeTimeout
	}
	return outcome
}
