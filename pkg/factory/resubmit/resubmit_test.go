package resubmit

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/factory/confirmation"
	"github.com/solana-token-factory/factory/pkg/factory/creation"
	"github.com/solana-token-factory/factory/pkg/factory/fee"
	"github.com/solana-token-factory/factory/pkg/factory/transaction"
	"github.com/solana-token-factory/factory/pkg/factory/wallet"
	"github.com/solana-token-factory/factory/pkg/solana"
	compute_budget "github.com/solana-token-factory/factory/pkg/solana/computebudget"
	"github.com/solana-token-factory/factory/pkg/solana/token"
	"github.com/solana-token-factory/factory/pkg/testutil"
)

type testEnv struct {
	ctx         context.Context
	client      *testutil.SolanaClient
	submitter   *wallet.Submitter
	resubmitter *Resubmitter
	handle      wallet.Handle
	attempt     *Attempt
}

func setup(t *testing.T) testEnv {
	ctx := context.Background()

	client := testutil.NewSolanaClient()
	client.RotateBlockhashes()

	owner := common.NewRandomTestAccount(t)
	adapter, err := wallet.NewKeypairAdapter(owner)
	require.NoError(t, err)

	builder := transaction.NewBuilder(client, common.NewRandomTestAccount(t))
	submitter := wallet.NewSubmitter(client, nil)
	poller := confirmation.NewPoller(client, confirmation.WithSleeper(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}))

	req := &creation.Request{
		Name:       "Retry Token",
		Symbol:     "RETRY",
		Decimals:   5,
		Supply:     "5000",
		ImageURL:   "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		RevokeMint: true,
	}
	req.Normalize()

	assembled, err := builder.Build(ctx, req, fee.Calculate(false, true, nil, time.Now()), common.NewRandomTestAccount(t), owner)
	require.NoError(t, err)

	return testEnv{
		ctx:         ctx,
		client:      client,
		submitter:   submitter,
		resubmitter: New(client, builder, submitter, poller, withManualTestOverrides(&testOverrides{pollAttempts: 3})),
		handle:      adapter.Handle(),
		attempt:     &Attempt{Assembled: assembled},
	}
}

// submitOriginal submits the attempt's transaction and marks it as timed out
func (e testEnv) submitOriginal(t *testing.T) solana.Signature {
	submission, err := e.submitter.Submit(e.ctx, e.attempt.Assembled, e.handle)
	require.NoError(t, err)
	require.NoError(t, submission.Err)

	e.attempt.Outcome = wallet.Outcome{Kind: wallet.OutcomeTimeout, Signature: submission.Signature}
	return submission.Signature
}

func TestResubmit_AfterTimeout(t *testing.T) {
	env := setup(t)

	original := env.attempt.Assembled
	originalSig := env.submitOriginal(t)
	env.client.QueueSignatureStatus(originalSig, testutil.ProcessedStatus())
	env.client.DefaultStatus = testutil.ConfirmedStatus()

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)

	assert.False(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)
	assert.NotEqual(t, originalSig, result.Outcome.Signature)
	assert.Equal(t, confirmation.StateConfirmed, result.Poll.State)

	assert.True(t, env.attempt.Resubmitted)
	assert.Equal(t, result.Assembled, env.attempt.Assembled)
	assert.Equal(t, result.Outcome, env.attempt.Outcome)

	rebuilt := result.Assembled
	assert.Equal(t, original.Mint, rebuilt.Mint)
	assert.NotEqual(t, original.Checkpoint.Blockhash, rebuilt.Checkpoint.Blockhash)

	require.Equal(t, 2, env.client.SubmittedCount())
	originalLimit := submittedComputeUnitLimit(t, env.client, 0)
	retryLimit := submittedComputeUnitLimit(t, env.client, 1)
	assert.Equal(t, transaction.DefaultComputeUnitLimit, originalLimit)
	assert.Equal(t, transaction.RetryComputeUnitLimit, retryLimit)
	assert.Greater(t, retryLimit, originalLimit)

	ixns, err := env.client.Submitted[1].DecompileInstructions()
	require.NoError(t, err)
	assert.Len(t, compute_budget.StripInstructions(ixns), len(ixns)-1)

	// Confirmed attempts are settled, so they aren't retryable even after a resubmission
	_, err = env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	assert.Equal(t, ErrNotRetryable, err)
}

func TestResubmit_ComputeBudgetIsAlwaysRaised(t *testing.T) {
	env := setup(t)

	// A configured retry limit below the original one is raised regardless
	env.resubmitter.conf = withManualTestOverrides(&testOverrides{
		pollAttempts:     3,
		computeUnitLimit: 50_000,
	})()

	originalSig := env.submitOriginal(t)
	env.client.QueueSignatureStatus(originalSig, testutil.ProcessedStatus())
	env.client.DefaultStatus = testutil.ConfirmedStatus()

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.False(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)

	require.Equal(t, 2, env.client.SubmittedCount())
	originalLimit := submittedComputeUnitLimit(t, env.client, 0)
	retryLimit := submittedComputeUnitLimit(t, env.client, 1)
	assert.Greater(t, retryLimit, originalLimit)
}

func submittedComputeUnitLimit(t *testing.T, client *testutil.SolanaClient, index int) uint32 {
	ixns, err := client.Submitted[index].DecompileInstructions()
	require.NoError(t, err)
	require.True(t, compute_budget.IsComputeBudgetInstruction(ixns[0]))

	limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(ixns[0].Data)
	require.NoError(t, err)
	return limit
}

func TestResubmit_OnlyOnce(t *testing.T) {
	env := setup(t)

	env.submitOriginal(t)

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.Equal(t, wallet.OutcomeTimeout, result.Outcome.Kind)

	_, err = env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	assert.Equal(t, ErrRetryExhausted, err)
	assert.Equal(t, 2, env.client.SubmittedCount())
}

func TestResubmit_PriorSignatureConfirmed(t *testing.T) {
	env := setup(t)

	originalSig := env.submitOriginal(t)
	env.client.QueueSignatureStatus(originalSig, testutil.ConfirmedStatus())

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.True(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)
	assert.Equal(t, originalSig, result.Outcome.Signature)

	assert.False(t, env.attempt.Resubmitted)
	assert.Equal(t, 1, env.client.SubmittedCount())
}

func TestResubmit_MintAlreadyExists(t *testing.T) {
	env := setup(t)

	env.attempt.Outcome = wallet.Outcome{Kind: wallet.OutcomeSubmitFailed, Err: errors.New("wallet disconnected")}

	mint := token.Mint{
		Decimals:      5,
		Supply:        500_000_000,
		IsInitialized: true,
	}
	env.client.SetAccountInfo(env.attempt.Assembled.Mint.PublicKey().ToBytes(), solana.AccountInfo{
		Data:  mint.Marshal(),
		Owner: token.ProgramKey,
	})

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.True(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)
	assert.Equal(t, 0, env.client.SubmittedCount())
}

func TestResubmit_RebuiltFailsOnExistingMint(t *testing.T) {
	env := setup(t)

	originalSig := env.submitOriginal(t)
	env.client.QueueSignatureStatus(originalSig, testutil.ProcessedStatus())
	env.client.DefaultStatus = testutil.FailedStatus(solana.NewInstructionTransactionError(1, solana.CustomError(0)))

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.True(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)
	assert.Equal(t, originalSig, result.Outcome.Signature)
	assert.True(t, env.attempt.Resubmitted)
}

func TestResubmit_AfterRejection(t *testing.T) {
	env := setup(t)

	env.attempt.Outcome = wallet.Outcome{Kind: wallet.OutcomeRejected, Err: wallet.ErrUserRejected}
	env.client.DefaultStatus = testutil.ConfirmedStatus()

	result, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
	require.NoError(t, err)
	assert.False(t, result.PriorLanding)
	assert.Equal(t, wallet.OutcomeConfirmed, result.Outcome.Kind)
	assert.Equal(t, 1, env.client.SubmittedCount())
}

func TestResubmit_NotRetryable(t *testing.T) {
	env := setup(t)

	for _, kind := range []wallet.OutcomeKind{
		wallet.OutcomeUnknown,
		wallet.OutcomeConfirmed,
		wallet.OutcomeFailed,
	} {
		env.attempt.Outcome = wallet.Outcome{Kind: kind}
		_, err := env.resubmitter.Resubmit(env.ctx, env.attempt, env.handle)
		assert.Equal(t, ErrNotRetryable, err)
	}

	_, err := env.resubmitter.Resubmit(env.ctx, &Attempt{Outcome: wallet.Outcome{Kind: wallet.OutcomeTimeout}}, env.handle)
	assert.Equal(t, ErrNotRetryable, err)
	assert.Equal(t, 0, env.client.SubmittedCount())
}

func TestResolveOutcome(t *testing.T) {
	var sig solana.Signature
	sig[0] = 1

	submission := &wallet.SubmissionResult{Signature: sig, Status: wallet.StatusPending}
	outcome := ResolveOutcome(submission, confirmation.Result{State: confirmation.StateConfirmed})
	assert.Equal(t, wallet.OutcomeConfirmed, outcome.Kind)
	assert.Equal(t, wallet.StatusConfirmed, submission.Status)

	submission = &wallet.SubmissionResult{Signature: sig, Status: wallet.StatusPending}
	txErr := solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	outcome = ResolveOutcome(submission, confirmation.Result{State: confirmation.StateFailed, Err: txErr})
	assert.Equal(t, wallet.OutcomeFailed, outcome.Kind)
	assert.Equal(t, txErr, outcome.TxErr)
	assert.Equal(t, wallet.StatusFailed, submission.Status)

	submission = &wallet.SubmissionResult{Signature: sig, Status: wallet.StatusPending}
	outcome = ResolveOutcome(submission, confirmation.Result{State: confirmation.StateTimeout})
	assert.Equal(t, wallet.OutcomeTimeout, outcome.Kind)
	assert.Equal(t, wallet.StatusPending, submission.Status)

	outcome = ResolveOutcome(&wallet.SubmissionResult{Status: wallet.StatusFailed, Err: wallet.ErrNoProvider}, confirmation.Result{})
	assert.Equal(t, wallet.OutcomeSubmitFailed, outcome.Kind)
}
