package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/solana-token-factory/factory/pkg/retry/backoff"
)

// Strategy decides whether another attempt should be made after a failure.
// Strategies may block, in which case they must give up once ctx is done.
type Strategy func(ctx context.Context, attempts uint, err error) bool

// Limit caps the total number of attempts, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(_ context.Context, attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriableErrors.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// NonRetriableErrors retries everything except errors matching one of
// nonRetriableErrors.
func NonRetriableErrors(nonRetriableErrors ...error) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		for _, e := range nonRetriableErrors {
			if errors.Is(err, e) {
				return false
			}
		}
		return true
	}
}

// RetriableFunc retries whenever isRetriable reports true for the error.
func RetriableFunc(isRetriable func(err error) bool) Strategy {
	return func(_ context.Context, _ uint, err error) bool {
		return isRetriable(err)
	}
}

// Backoff waits before the next attempt, for at most maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(ctx context.Context, attempts uint, _ error) bool {
		return sleeperImpl.Sleep(ctx, capDelay(strategy(attempts), maxBackoff))
	}
}

// BackoffWithJitter is Backoff with the capped delay randomly moved by up to
// jitter (a fraction of the delay) in either direction.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(ctx context.Context, attempts uint, _ error) bool {
		delay := capDelay(strategy(attempts), maxBackoff)
		offset := (rand.Float64()*2 - 1) * jitter
		return sleeperImpl.Sleep(ctx, time.Duration(float64(delay)*(1+offset)))
	}
}

func capDelay(delay, maxBackoff time.Duration) time.Duration {
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

type sleeper interface {
	// Sleep returns false if ctx was done before d elapsed
	Sleep(ctx context.Context, d time.Duration) bool
}

type timerSleeper struct{}

func (s *timerSleeper) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

var sleeperImpl sleeper = &timerSleeper{}
