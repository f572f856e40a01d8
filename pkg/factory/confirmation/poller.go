package confirmation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/solana"
)

const (
	DefaultAttempts = 45
	DefaultInterval = 2 * time.Second

	// QuickAttempts and QuickInterval are used when checking on a transaction
	// the user has already been waiting on.
	QuickAttempts = 30
	QuickInterval = time.Second
)

type State uint8

const (
	StateTimeout State = iota
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimeout:
		return "timeout"
	}
	return "unknown"
}

// Result is the terminal outcome of polling a signature. A timeout means the
// transaction's fate is unknown. It may still land.
type Result struct {
	State    State
	Attempts int

	// Status is the last status observed, if any
	Status *solana.SignatureStatus

	// Err is set when the transaction landed with an error
	Err *solana.TransactionError

	// Cause is set when polling stopped early due to context cancellation
	Cause error
}

func (r Result) Confirmed() bool {
	return r.State == StateConfirmed
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Poller struct {
	log    *logrus.Entry
	client solana.Client
	sleep  Sleeper
}

type PollerOption func(*Poller)

// WithSleeper overrides how the poller waits between attempts
func WithSleeper(sleep Sleeper) PollerOption {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

func NewPoller(client solana.Client, opts ...PollerOption) *Poller {
	p := &Poller{
		log:    logrus.StandardLogger().WithField("type", "factory/confirmation"),
		client: client,
		sleep:  contextSleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the status of sig every interval, up to maxAttempts times.
// Query errors are treated as the signature not being seen yet. Only an
// explicit on chain error fails the poll.
func (p *Poller) Poll(ctx context.Context, sig solana.Signature, maxAttempts int, interval time.Duration) Result {
	log := p.log.WithFields(logrus.Fields{
		"method":    "Poll",
		"signature": sig.ToBase58(),
	})

	start := time.Now()
	result := p.poll(ctx, log, sig, maxAttempts, interval)

	metrics.RecordDuration(ctx, "ConfirmationPoller.Poll", time.Since(start))
	log.WithFields(logrus.Fields{
		"state":    result.State.String(),
		"attempts": result.Attempts,
	}).Debug("polling completed")

	return result
}

func (p *Poller) poll(ctx context.Context, log *logrus.Entry, sig solana.Signature, maxAttempts int, interval time.Duration) Result {
	var result Result

	for result.Attempts < maxAttempts {
		if result.Attempts > 0 {
			if err := p.sleep(ctx, interval); err != nil {
				result.Cause = err
				return result
			}
		}

		if err := ctx.Err(); err != nil {
			result.Cause = err
			return result
		}

		result.Attempts++

		statuses, err := p.client.GetSignatureStatuses(ctx, []solana.Signature{sig})
		if err != nil {
			log.WithError(err).Debug("failure getting signature status")
			continue
		}

		if len(statuses) == 0 || statuses[0] == nil {
			continue
		}

		status := statuses[0]
		result.Status = status

		if status.ErrorResult != nil {
			result.State = StateFailed
			result.Err = status.ErrorResult
			return result
		}

		if status.Confirmed() {
			result.State = StateConfirmed
			return result
		}
	}

	return result
}

// Check performs a single status query. It's used to learn the fate of a
// transaction before deciding to resubmit it.
func (p *Poller) Check(ctx context.Context, sig solana.Signature) Result {
	return p.Poll(ctx, sig, 1, 0)
}
