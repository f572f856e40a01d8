package creator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/factory/confirmation"
	"github.com/solana-token-factory/factory/pkg/factory/creation"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	"github.com/solana-token-factory/factory/pkg/factory/fee"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
	"github.com/solana-token-factory/factory/pkg/factory/recent"
	"github.com/solana-token-factory/factory/pkg/factory/resubmit"
	"github.com/solana-token-factory/factory/pkg/factory/transaction"
	"github.com/solana-token-factory/factory/pkg/factory/wallet"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/solana"
)

const (
	TokenCreationSubmittedEventName = "TokenCreationSubmitted"
	TokenCreationOutcomeEventName   = "TokenCreationOutcome"
)

var (
	ErrAttemptNotFound    = errors.New("creation attempt not found")
	ErrSubmissionInFlight = errors.New("a submission for this mint is already in flight")
	ErrOwnerMismatch      = errors.New("wallet does not match the token owner")
)

// TokenRecorder stores the record of a created token
type TokenRecorder interface {
	SaveToken(ctx context.Context, record *tokendata.Record) error
}

// Attempt is a snapshot of one token creation. Attempts that end in a
// retryable outcome can be resubmitted once through Service.Retry.
type Attempt struct {
	ID        string
	Mint      string
	Owner     string
	Quote     fee.Quote
	Signature solana.Signature
	Outcome   wallet.Outcome

	Resubmitted  bool
	PriorLanding bool

	// Record is set once the token is confirmed
	Record *tokendata.Record

	CreatedAt time.Time
}

type attemptState struct {
	id        string
	mint      string
	req       creation.Request
	owner     *common.Account
	createdAt time.Time

	resubmission *resubmit.Attempt
	priorLanding bool
	record       *tokendata.Record
}

// Service orchestrates token creation from a validated request to a
// confirmed, recorded token.
type Service struct {
	log *logrus.Entry

	conf        *conf
	promos      *promo.Service
	builder     *transaction.Builder
	submitter   *wallet.Submitter
	poller      *confirmation.Poller
	resubmitter *resubmit.Resubmitter
	recorder    TokenRecorder
	recent      *recent.List
	now         func() time.Time

	attemptsMu sync.Mutex
	attempts   map[string]*attemptState
	inFlight   map[string]struct{}
}

type options struct {
	strategies     wallet.StrategyTable
	pollerOpts     []confirmation.PollerOption
	resubmitConfig resubmit.ConfigProvider
	clock          func() time.Time
}

type Option func(*options)

// WithStrategies overrides the wallet strategy table
func WithStrategies(strategies wallet.StrategyTable) Option {
	return func(o *options) {
		o.strategies = strategies
	}
}

// WithPollerOptions configures the confirmation poller
func WithPollerOptions(opts ...confirmation.PollerOption) Option {
	return func(o *options) {
		o.pollerOpts = append(o.pollerOpts, opts...)
	}
}

// WithResubmitConfig overrides the resubmission configuration
func WithResubmitConfig(configProvider resubmit.ConfigProvider) Option {
	return func(o *options) {
		o.resubmitConfig = configProvider
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New returns a Service. recorder and recentTokens are optional.
func New(
	client solana.Client,
	promos *promo.Service,
	recorder TokenRecorder,
	recentTokens *recent.List,
	configProvider ConfigProvider,
	opts ...Option,
) (*Service, error) {
	o := &options{
		resubmitConfig: resubmit.WithEnvConfigs(),
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	conf := configProvider()
	ctx := context.Background()

	treasury, err := common.NewAccountFromPublicKeyString(conf.treasuryAddress.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "invalid treasury address")
	}

	builder := transaction.NewBuilder(
		client,
		treasury,
		transaction.WithComputeUnitLimit(uint32(conf.computeUnitLimit.Get(ctx))),
		transaction.WithComputeUnitPrice(conf.computeUnitPrice.Get(ctx)),
	)
	submitter := wallet.NewSubmitter(client, o.strategies)
	poller := confirmation.NewPoller(client, o.pollerOpts...)

	return &Service{
		log:         logrus.StandardLogger().WithField("type", "factory/creator"),
		conf:        conf,
		promos:      promos,
		builder:     builder,
		submitter:   submitter,
		poller:      poller,
		resubmitter: resubmit.New(client, builder, submitter, poller, o.resubmitConfig),
		recorder:    recorder,
		recent:      recentTokens,
		now:         o.clock,
		attempts:    make(map[string]*attemptState),
		inFlight:    make(map[string]struct{}),
	}, nil
}

// Quote validates the promo code and returns the fee the request would be
// charged. An invalid promo code yields the undiscounted fee.
func (s *Service) Quote(ctx context.Context, revokeFreeze, revokeMint bool, promoCode string) (fee.Quote, error) {
	record, err := s.validatePromo(ctx, promoCode)
	if err != nil {
		return fee.Quote{}, err
	}
	return fee.Calculate(revokeFreeze, revokeMint, record, s.now()), nil
}

// Create builds, submits and confirms a token creation transaction for owner
// using a fresh mint identity. A returned error means nothing reached the
// wallet. Wallet and on chain failures are reported through the attempt's
// outcome.
func (s *Service) Create(ctx context.Context, req *creation.Request, owner *common.Account, handle wallet.Handle) (*Attempt, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}

	normalized := *req
	normalized.Normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}

	if err := owner.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid owner")
	}
	if handle.PublicKey != nil && string(handle.PublicKey) != string(owner.PublicKey().ToBytes()) {
		return nil, ErrOwnerMismatch
	}

	quote, err := s.Quote(ctx, normalized.RevokeFreeze, normalized.RevokeMint, normalized.PromoCode)
	if err != nil {
		return nil, err
	}

	mint, err := common.NewRandomAccount()
	if err != nil {
		return nil, errors.Wrap(err, "error generating mint identity")
	}

	state := &attemptState{
		id:        uuid.New().String(),
		mint:      mint.PublicKey().ToBase58(),
		req:       normalized,
		owner:     owner,
		createdAt: s.now(),
	}

	log := s.log.WithFields(logrus.Fields{
		"method":  "Create",
		"attempt": state.id,
		"mint":    state.mint,
		"owner":   owner.PublicKey().ToBase58(),
	})

	if err := s.acquire(state.mint); err != nil {
		return nil, err
	}
	defer s.release(state.mint)

	assembled, err := s.builder.Build(ctx, &normalized, quote, mint, owner)
	if err != nil {
		log.WithError(err).Warn("failure building transaction")
		return nil, err
	}
	state.resubmission = &resubmit.Attempt{Assembled: assembled}

	submission, err := s.submitter.Submit(ctx, assembled, handle)
	if err != nil {
		log.WithError(err).Warn("transaction is unsuitable for submission")
		return nil, err
	}

	metrics.RecordEvent(ctx, TokenCreationSubmittedEventName, map[string]interface{}{
		"mint":     mint.PublicKey().ToBase58(),
		"symbol":   normalized.Symbol,
		"fee":      quote.Final,
		"promo":    quote.PromoCode,
		"wallet":   string(submission.Brand),
		"injected": submission.Injected,
		"success":  submission.Err == nil,
	})

	var outcome wallet.Outcome
	if submission.Err != nil {
		log.WithError(submission.Err).Info("wallet submission failed")
		outcome = wallet.SubmissionOutcome(submission)
	} else {
		poll := s.poller.Poll(ctx, submission.Signature, int(s.conf.pollAttempts.Get(ctx)), s.conf.pollInterval.Get(ctx))
		outcome = resubmit.ResolveOutcome(submission, poll)
	}
	state.resubmission.Outcome = outcome

	s.onOutcome(ctx, log, state)
	return s.track(state), nil
}

// Retry resubmits a timed out, rejected or failed submission once, reusing the
// attempt's mint identity.
func (s *Service) Retry(ctx context.Context, attemptID string, handle wallet.Handle) (*Attempt, error) {
	s.attemptsMu.Lock()
	state, ok := s.attempts[attemptID]
	s.attemptsMu.Unlock()
	if !ok {
		return nil, ErrAttemptNotFound
	}

	log := s.log.WithFields(logrus.Fields{
		"method":  "Retry",
		"attempt": state.id,
		"mint":    state.mint,
	})

	if err := s.acquire(state.mint); err != nil {
		return nil, err
	}
	defer s.release(state.mint)

	result, err := s.resubmitter.Resubmit(ctx, state.resubmission, handle)
	if err != nil {
		log.WithError(err).Info("resubmission not performed")
		return nil, err
	}
	state.priorLanding = result.PriorLanding

	s.onOutcome(ctx, log, state)
	return s.track(state), nil
}

// Get returns the attempt if it is still retryable
func (s *Service) Get(attemptID string) (*Attempt, error) {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	state, ok := s.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if _, ok := s.inFlight[state.mint]; ok {
		return nil, ErrSubmissionInFlight
	}
	return state.snapshot(), nil
}

// Discard abandons a retryable attempt and its mint identity
func (s *Service) Discard(attemptID string) {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	delete(s.attempts, attemptID)
}

func (s *Service) validatePromo(ctx context.Context, code string) (*promodata.Record, error) {
	if s.promos == nil || len(promo.Normalize(code)) == 0 {
		return nil, nil
	}

	record, err := s.promos.Validate(ctx, code)
	if errors.Is(err, promo.ErrInvalidPromoCode) {
		s.log.WithField("code", promo.Normalize(code)).Info("ignoring invalid promo code")
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return record, nil
}

// onOutcome runs the side effects of a finished submission. Failures here are
// logged since the token already exists on chain.
func (s *Service) onOutcome(ctx context.Context, log *logrus.Entry, state *attemptState) {
	assembled := state.resubmission.Assembled
	outcome := state.resubmission.Outcome

	log = log.WithField("outcome", outcome.Kind.String())
	if !outcome.Signature.IsZero() {
		log = log.WithField("signature", outcome.Signature.ToBase58())
	}

	metrics.RecordEvent(ctx, TokenCreationOutcomeEventName, map[string]interface{}{
		"mint":          state.mint,
		"outcome":       outcome.Kind.String(),
		"resubmitted":   state.resubmission.Resubmitted,
		"prior_landing": state.priorLanding,
	})

	if outcome.Kind != wallet.OutcomeConfirmed {
		if err := outcome.Error(); err != nil {
			log = log.WithError(err)
		}
		log.Info("token creation did not confirm")
		return
	}

	log.Info("token created")

	record := s.newTokenRecord(state)
	state.record = record

	if s.recorder != nil {
		if err := s.recorder.SaveToken(ctx, record); err != nil {
			log.WithError(err).Warn("failure saving token record")
		}
	}

	if len(assembled.Quote.PromoCode) > 0 && s.promos != nil {
		if _, err := s.promos.MarkUsed(ctx, assembled.Quote.PromoCode); err != nil {
			log.WithError(err).Warn("failure marking promo code as used")
		}
	}

	if s.recent != nil {
		s.recent.Add(recent.Entry{
			Name:        record.Name,
			Symbol:      record.Symbol,
			MintAddress: record.MintAddress,
			Image:       record.ImageUrl,
			Timestamp:   record.Timestamp.UnixMilli(),
		})
	}
}

func (s *Service) newTokenRecord(state *attemptState) *tokendata.Record {
	req := state.req
	mint := state.mint
	owner := state.owner.PublicKey().ToBase58()

	return &tokendata.Record{
		MintAddress:   mint,
		CreatorWallet: owner,
		OwnerAddress:  owner,

		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		ImageUrl:    creation.DisplayImageURL(req.ImageURL),

		SolscanUrl:  common.SolscanTokenURL(mint),
		ExplorerUrl: common.ExplorerAddressURL(mint),

		Decimals: req.Decimals,
		Supply:   req.Supply,

		HasMintAuthority:   !req.RevokeMint,
		HasFreezeAuthority: !req.RevokeFreeze,

		Timestamp: s.now(),
	}
}

// track keeps retryable attempts and drops terminal ones along with their
// mint identity
func (s *Service) track(state *attemptState) *Attempt {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	snapshot := state.snapshot()

	outcome := state.resubmission.Outcome
	if outcome.IsRetryable() && !state.resubmission.Resubmitted {
		s.attempts[state.id] = state
	} else {
		delete(s.attempts, state.id)
	}

	return snapshot
}

func (s *Service) acquire(mint string) error {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	if _, ok := s.inFlight[mint]; ok {
		return ErrSubmissionInFlight
	}
	s.inFlight[mint] = struct{}{}
	return nil
}

func (s *Service) release(mint string) {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	delete(s.inFlight, mint)
}

func (state *attemptState) snapshot() *Attempt {
	assembled := state.resubmission.Assembled
	outcome := state.resubmission.Outcome

	attempt := &Attempt{
		ID:           state.id,
		Mint:         state.mint,
		Owner:        state.owner.PublicKey().ToBase58(),
		Quote:        assembled.Quote,
		Signature:    outcome.Signature,
		Outcome:      outcome,
		Resubmitted:  state.resubmission.Resubmitted,
		PriorLanding: state.priorLanding,
		CreatedAt:    state.createdAt,
	}
	if state.record != nil {
		cloned := state.record.Clone()
		attempt.Record = &cloned
	}
	return attempt
}
