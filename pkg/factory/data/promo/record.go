package promo

import (
	"errors"
	"time"

	"github.com/solana-token-factory/factory/pkg/pointer"
)

// Record is a discount code applied to the creation fee
type Record struct {
	Id uint64

	Code               string
	DiscountPercentage uint8
	Description        string

	// MaxUses is nil when the code can be used an unlimited number of times
	MaxUses   *uint64
	UsesCount uint64

	// ExpiresAt is nil when the code never expires
	ExpiresAt *time.Time

	IsActive bool

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Code) == 0 {
		return errors.New("code is required")
	}

	if r.DiscountPercentage > 100 {
		return errors.New("discount percentage must be at most 100")
	}

	return nil
}

// IsExpired reports whether the code expired at or before now
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// IsExhausted reports whether the code has reached its maximum uses
func (r *Record) IsExhausted() bool {
	return r.MaxUses != nil && r.UsesCount >= *r.MaxUses
}

// IsUsable reports whether the code is active, unexpired and has uses left
func (r *Record) IsUsable(now time.Time) bool {
	return r.IsActive && !r.IsExpired(now) && !r.IsExhausted()
}

// RemainingUses returns the number of uses left, or nil when unlimited
func (r *Record) RemainingUses() *uint64 {
	if r.MaxUses == nil {
		return nil
	}
	if r.UsesCount >= *r.MaxUses {
		return pointer.To[uint64](0)
	}
	return pointer.To[uint64](*r.MaxUses - r.UsesCount)
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		Code:               r.Code,
		DiscountPercentage: r.DiscountPercentage,
		Description:        r.Description,

		MaxUses:   pointer.Copy(r.MaxUses),
		UsesCount: r.UsesCount,

		ExpiresAt: pointer.Copy(r.ExpiresAt),

		IsActive: r.IsActive,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Code = r.Code
	dst.DiscountPercentage = r.DiscountPercentage
	dst.Description = r.Description

	dst.MaxUses = pointer.Copy(r.MaxUses)
	dst.UsesCount = r.UsesCount

	dst.ExpiresAt = pointer.Copy(r.ExpiresAt)

	dst.IsActive = r.IsActive

	dst.CreatedAt = r.CreatedAt
}
