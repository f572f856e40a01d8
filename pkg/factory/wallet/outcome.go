package wallet

import (
	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/solana"
)

type OutcomeKind uint8

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeConfirmed
	OutcomeFailed
	OutcomeTimeout
	OutcomeRejected
	OutcomeSubmitFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSubmitFailed:
		return "submit_failed"
	}
	return "unknown"
}

// Outcome is the end state of a submission followed by confirmation polling
type Outcome struct {
	Kind      OutcomeKind
	Signature solana.Signature

	// Err is the wallet error for rejected and submit failed outcomes
	Err error

	// TxErr is the on chain error for failed outcomes
	TxErr *solana.TransactionError
}

// SubmissionOutcome maps a failed submission to its outcome. Successful
// submissions aren't terminal and have an unknown outcome until polled.
func SubmissionOutcome(result *SubmissionResult) Outcome {
	if result == nil {
		return Outcome{Kind: OutcomeUnknown}
	}

	switch {
	case result.Status == StatusConfirmed:
		return Outcome{Kind: OutcomeConfirmed, Signature: result.Signature}
	case result.Err == nil:
		return Outcome{Kind: OutcomeUnknown, Signature: result.Signature}
	case errors.Is(result.Err, ErrUserRejected):
		return Outcome{Kind: OutcomeRejected, Err: result.Err}
	default:
		return Outcome{Kind: OutcomeSubmitFailed, Err: result.Err}
	}
}

// IsTerminal reports whether no further action can change the outcome
func (o Outcome) IsTerminal() bool {
	return o.Kind == OutcomeConfirmed || o.Kind == OutcomeFailed
}

// IsRetryable reports whether the outcome permits a manual resubmission
func (o Outcome) IsRetryable() bool {
	switch o.Kind {
	case OutcomeTimeout, OutcomeRejected, OutcomeSubmitFailed:
		return true
	}
	return false
}

// Error returns the error describing a non successful outcome
func (o Outcome) Error() error {
	switch o.Kind {
	case OutcomeConfirmed:
		return nil
	case OutcomeFailed:
		if o.TxErr != nil {
			return o.TxErr
		}
		return errors.New("transaction failed")
	case OutcomeTimeout:
		return errors.New("transaction was not confirmed in time, it may still land")
	}

	if o.Err != nil {
		return o.Err
	}
	return errors.New("unknown outcome")
}
