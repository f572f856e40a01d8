package fee

import (
	"time"

	"github.com/shopspring/decimal"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
)

const (
	LamportsPerSOL = 1_000_000_000

	// BaseFee is charged for every token creation
	BaseFee uint64 = 300_000_000

	// AuthorityFee is charged for each revoked authority
	AuthorityFee uint64 = 100_000_000

	displayPlaces = 4
)

// Quote is the fee charged for a token creation. All amounts are in lamports.
type Quote struct {
	BaseFee      uint64
	AuthorityFee uint64
	PreDiscount  uint64
	Discount     uint64
	Final        uint64

	RevokeFreeze bool
	RevokeMint   bool

	// PromoCode and DiscountPercentage are set only when a usable promo applied
	PromoCode          string
	DiscountPercentage uint8
}

// Calculate computes the fee for the given authority revocations and optional
// promo code. It is a pure function of its inputs and must be recomputed
// whenever any of them change.
func Calculate(revokeFreeze, revokeMint bool, promoCode *promodata.Record, now time.Time) Quote {
	quote := Quote{
		BaseFee:      BaseFee,
		RevokeFreeze: revokeFreeze,
		RevokeMint:   revokeMint,
	}

	if revokeFreeze {
		quote.AuthorityFee += AuthorityFee
	}
	if revokeMint {
		quote.AuthorityFee += AuthorityFee
	}

	quote.PreDiscount = quote.BaseFee + quote.AuthorityFee
	quote.Final = quote.PreDiscount

	if promoCode != nil && promoCode.IsUsable(now) {
		quote.PromoCode = promoCode.Code
		quote.DiscountPercentage = promoCode.DiscountPercentage
		if quote.DiscountPercentage > 100 {
			quote.DiscountPercentage = 100
		}

		quote.Final = promo.ApplyDiscount(quote.PreDiscount, quote.DiscountPercentage)
		quote.Discount = quote.PreDiscount - quote.Final
	}

	return quote
}

// HasDiscount reports whether a promo reduced the fee
func (q Quote) HasDiscount() bool {
	return len(q.PromoCode) > 0
}

// FinalSOL returns the final fee in SOL
func (q Quote) FinalSOL() decimal.Decimal {
	return ToSOL(q.Final)
}

// ToSOL converts lamports to SOL without rounding
func ToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports / LamportsPerSOL)).
		Add(decimal.New(int64(lamports%LamportsPerSOL), -9))
}

// FormatSOL renders lamports as SOL with at most four decimal places and no
// trailing zeros
func FormatSOL(lamports uint64) string {
	return ToSOL(lamports).Round(displayPlaces).String()
}
