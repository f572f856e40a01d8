package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/retry/backoff"
)

func TestRetrier(t *testing.T) {
	retriable := errors.New("retriable")
	r := NewRetrier(Limit(4), RetriableErrors(retriable))

	attempts, err := r.Retry(context.Background(), func() error { return nil })
	require.NoError(t, err)
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(context.Background(), func() error { return errors.New("fatal") })
	assert.EqualError(t, err, "fatal")
	assert.EqualValues(t, 1, attempts)

	attempts, err = r.Retry(context.Background(), func() error { return retriable })
	assert.ErrorIs(t, err, retriable)
	assert.EqualValues(t, 4, attempts)
}

func TestRetry_EventualSuccess(t *testing.T) {
	var calls int
	attempts, err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, Limit(5))
	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts)
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	attempts, err := Retry(ctx, func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("failed")
	})
	assert.EqualError(t, err, "failed")
	assert.EqualValues(t, 2, attempts)
}

func TestTimerSleeper(t *testing.T) {
	sleeperImpl = &timerSleeper{}

	start := time.Now()
	attempts, err := Retry(context.Background(), func() error { return errors.New("failed") },
		Limit(2),
		Backoff(backoff.Constant(200*time.Millisecond), time.Second),
	)
	assert.Error(t, err)
	assert.EqualValues(t, 2, attempts)
	assert.True(t, time.Since(start) >= 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start = time.Now()
	attempts, err = Retry(ctx, func() error { return errors.New("failed") },
		Limit(10),
		Backoff(backoff.Constant(time.Minute), time.Minute),
	)
	assert.Error(t, err)
	assert.EqualValues(t, 1, attempts)
	assert.True(t, time.Since(start) < 10*time.Second)
}
