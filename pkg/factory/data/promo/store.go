package promo

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPromoNotFound       = errors.New("promo code not found")
	ErrPromoExists         = errors.New("promo code already exists")
	ErrPromoInactive       = errors.New("promo code is not active")
	ErrPromoExpired        = errors.New("promo code has expired")
	ErrPromoMaxUsesReached = errors.New("promo code has reached maximum uses")
)

type Store interface {
	// Put creates a new promo code
	Put(ctx context.Context, record *Record) error

	// Get gets a promo code regardless of whether it is usable
	Get(ctx context.Context, code string) (*Record, error)

	// GetAllUsable gets every promo code that is usable at now
	GetAllUsable(ctx context.Context, now time.Time) ([]*Record, error)

	// IncrementUses atomically checks the code is usable at now and records
	// one use. The updated record is returned.
	IncrementUses(ctx context.Context, code string, now time.Time) (*Record, error)
}

// CheckUsable returns the error describing why record cannot be used at now
func CheckUsable(record *Record, now time.Time) error {
	switch {
	case !record.IsActive:
		return ErrPromoInactive
	case record.IsExpired(now):
		return ErrPromoExpired
	case record.IsExhausted():
		return ErrPromoMaxUsesReached
	}
	return nil
}
