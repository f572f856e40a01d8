package token

import (
	"context"
	"errors"
)

var (
	ErrTokenNotFound = errors.New("token record not found")
)

type Store interface {
	// Save creates or updates the record keyed by its mint address. The
	// timestamp is refreshed on update.
	Save(ctx context.Context, record *Record) error

	// Get gets a token record by its mint address
	Get(ctx context.Context, mint string) (*Record, error)

	// GetRecent gets up to limit records, most recent first
	GetRecent(ctx context.Context, limit uint64) ([]*Record, error)

	// Count returns the total number of records
	Count(ctx context.Context) (uint64, error)
}
