package wallet

import (
	"bytes"
	"context"

	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	"github.com/solana-token-factory/factory/pkg/solana"
)

// KeypairAdapter is an Adapter backed by a local private key. It's used by
// operator tooling and tests where no wallet UI exists.
type KeypairAdapter struct {
	owner *common.Account
}

func NewKeypairAdapter(owner *common.Account) (*KeypairAdapter, error) {
	if !owner.HasPrivateKey() {
		return nil, errors.New("owner private key is required")
	}
	return &KeypairAdapter{owner: owner}, nil
}

func (a *KeypairAdapter) SendTransaction(ctx context.Context, txn *solana.Transaction, network solana.Client, opts SendOptions) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	if !bytes.Equal(txn.FeePayer(), a.owner.PublicKey().ToBytes()) {
		return solana.Signature{}, ErrWrongFeePayer
	}

	if err := txn.Sign(a.owner.PrivateKey().ToBytes()); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	return network.SubmitTransaction(ctx, *txn, opts.Commitment)
}

// Handle returns a wallet handle using the adapter
func (a *KeypairAdapter) Handle() Handle {
	return Handle{
		Brand:     BrandUnknown,
		PublicKey: a.owner.PublicKey().ToBytes(),
		Adapter:   a,
	}
}
