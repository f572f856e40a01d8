package promo

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
)

var (
	// ErrInvalidPromoCode indicates the code is unknown or not currently usable
	ErrInvalidPromoCode = errors.New("invalid or expired promo code")
)

// Source provides promo codes and records their usage
type Source interface {
	// GetUsable returns the code if it is usable, or promodata.ErrPromoNotFound
	GetUsable(ctx context.Context, code string) (*promodata.Record, error)

	// GetAllUsable returns every usable code
	GetAllUsable(ctx context.Context) ([]*promodata.Record, error)

	// MarkUsed records one use of the code and returns the remaining uses,
	// which is nil for unlimited codes
	MarkUsed(ctx context.Context, code string) (*uint64, error)
}

// Normalize returns the canonical form of a user entered promo code
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ApplyDiscount reduces lamports by percentage percent. Percentages above 100
// are treated as 100.
func ApplyDiscount(lamports uint64, percentage uint8) uint64 {
	if percentage >= 100 {
		return 0
	}
	if percentage == 0 {
		return lamports
	}

	// Split to avoid overflow on very large amounts
	discount := (lamports/100)*uint64(percentage) + (lamports%100)*uint64(percentage)/100
	return lamports - discount
}
