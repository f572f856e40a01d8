package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/testutil"
)

type recordingSleeper struct {
	calls    int
	interval time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.calls++
	s.interval = d
	return ctx.Err()
}

func newTestPoller(client solana.Client) (*Poller, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	return NewPoller(client, WithSleeper(sleeper.sleep)), sleeper
}

func TestPoll_Confirmed(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller, sleeper := newTestPoller(client)

	var sig solana.Signature
	sig[0] = 1

	client.QueueSignatureStatus(sig, nil)
	client.QueueSignatureStatus(sig, testutil.ProcessedStatus())
	client.QueueSignatureStatus(sig, testutil.ConfirmedStatus())

	result := poller.Poll(context.Background(), sig, DefaultAttempts, DefaultInterval)
	assert.Equal(t, StateConfirmed, result.State)
	assert.True(t, result.Confirmed())
	assert.Equal(t, 3, result.Attempts)
	assert.Nil(t, result.Err)
	require.NotNil(t, result.Status)
	assert.Equal(t, 2, sleeper.calls)
	assert.Equal(t, DefaultInterval, sleeper.interval)
}

func TestPoll_Finalized(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller, _ := newTestPoller(client)

	var sig solana.Signature
	sig[0] = 2

	client.QueueSignatureStatus(sig, &solana.SignatureStatus{Slot: 5})

	result := poller.Poll(context.Background(), sig, QuickAttempts, QuickInterval)
	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, 1, result.Attempts)
}

func TestPoll_FailedOnChain(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller, sleeper := newTestPoller(client)

	var sig solana.Signature
	sig[0] = 3

	txErr := solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	client.QueueSignatureStatus(sig, nil)
	client.QueueSignatureStatus(sig, testutil.ProcessedStatus())
	client.QueueSignatureStatus(sig, testutil.FailedStatus(txErr))
	client.QueueSignatureStatus(sig, testutil.ConfirmedStatus())

	result := poller.Poll(context.Background(), sig, DefaultAttempts, DefaultInterval)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 3, result.Attempts)
	require.NotNil(t, result.Err)
	assert.Equal(t, solana.TransactionErrorInsufficientFundsForFee, result.Err.ErrorKey())

	// Polling stops at the failure, leaving the queued confirmed status unread
	assert.Equal(t, 3, client.StatusCalls)
	assert.Equal(t, 2, sleeper.calls)
}

func TestPoll_Timeout(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller, sleeper := newTestPoller(client)

	var sig solana.Signature
	sig[0] = 4

	client.QueueSignatureStatus(sig, testutil.ProcessedStatus())

	result := poller.Poll(context.Background(), sig, QuickAttempts, QuickInterval)
	assert.Equal(t, StateTimeout, result.State)
	assert.Equal(t, QuickAttempts, result.Attempts)
	assert.Equal(t, QuickAttempts-1, sleeper.calls)
	assert.Nil(t, result.Err)
	assert.Nil(t, result.Cause)
	assert.Equal(t, QuickAttempts, client.StatusCalls)
}

func TestPoll_QueryErrorsAreNotTerminal(t *testing.T) {
	client := testutil.NewSolanaClient()
	client.StatusErr = errors.New("connection reset")

	poller, _ := newTestPoller(client)

	var sig solana.Signature
	sig[0] = 5

	result := poller.Poll(context.Background(), sig, 5, time.Second)
	assert.Equal(t, StateTimeout, result.State)
	assert.Equal(t, 5, result.Attempts)
	assert.Nil(t, result.Err)
}

func TestPoll_ContextCancelled(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller, _ := newTestPoller(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := poller.Poll(ctx, solana.Signature{}, DefaultAttempts, DefaultInterval)
	assert.Equal(t, StateTimeout, result.State)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, context.Canceled, result.Cause)
}

func TestPoll_RealSleeper(t *testing.T) {
	client := testutil.NewSolanaClient()
	poller := NewPoller(client)

	var sig solana.Signature
	sig[0] = 6

	start := time.Now()
	result := poller.Poll(context.Background(), sig, 3, 10*time.Millisecond)
	assert.Equal(t, StateTimeout, result.State)
	assert.True(t, time.Since(start) >= 20*time.Millisecond)
}
