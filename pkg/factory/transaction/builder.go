package transaction

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/factory/creation"
	"github.com/solana-token-factory/factory/pkg/factory/fee"
	"github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/solana"
	"github.com/solana-token-factory/factory/pkg/solana/token"
)

// Builder assembles token creation transactions against live network state
type Builder struct {
	log      *logrus.Entry
	client   solana.Client
	treasury *common.Account
	opts     []AssembleOption
}

func NewBuilder(client solana.Client, treasury *common.Account, opts ...AssembleOption) *Builder {
	return &Builder{
		log:      logrus.StandardLogger().WithField("type", "factory/transaction"),
		client:   client,
		treasury: treasury,
		opts:     opts,
	}
}

// FetchCheckpoint gets a finalized blockhash and the rent exemption for a mint
// account.
func (b *Builder) FetchCheckpoint(ctx context.Context) (Checkpoint, error) {
	tracer := metrics.TraceMethodCall(ctx, "transaction", "FetchCheckpoint")
	defer tracer.End()

	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}

	latest, err := b.client.GetLatestBlockhash(ctx, solana.CommitmentFinalized)
	if err != nil {
		tracer.OnError(err)
		return Checkpoint{}, errors.Wrap(err, "error getting latest blockhash")
	}

	rent, err := b.client.GetMinimumBalanceForRentExemption(ctx, token.MintSize)
	if err != nil {
		tracer.OnError(err)
		return Checkpoint{}, errors.Wrap(err, "error getting mint rent exemption")
	}

	return Checkpoint{
		Blockhash:            latest.Blockhash,
		LastValidBlockHeight: latest.LastValidBlockHeight,
		RentExemptLamports:   rent,
	}, nil
}

func (b *Builder) Build(ctx context.Context, req *creation.Request, quote fee.Quote, mint, owner *common.Account) (*Assembled, error) {
	log := b.log.WithFields(logrus.Fields{
		"method": "Build",
		"mint":   mint.String(),
		"owner":  owner.String(),
	})

	checkpoint, err := b.FetchCheckpoint(ctx)
	if err != nil {
		log.WithError(err).Warn("failure fetching checkpoint")
		return nil, err
	}

	assembled, err := Assemble(req, quote, mint, owner, b.treasury, checkpoint, b.opts...)
	if err != nil {
		log.WithError(err).Warn("failure assembling transaction")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"size":                    assembled.Transaction.Size(),
		"last_valid_block_height": checkpoint.LastValidBlockHeight,
		"fee":                     quote.Final,
	}).Debug("assembled token creation transaction")

	return assembled, nil
}

// Rebuild fetches a fresh checkpoint and rebuilds prev against it
func (b *Builder) Rebuild(ctx context.Context, prev *Assembled, computeUnitLimit uint32) (*Assembled, error) {
	checkpoint, err := b.FetchCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	return Rebuild(prev, checkpoint, computeUnitLimit)
}
