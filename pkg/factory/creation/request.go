package creation

import (
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/solana-token-factory/factory/pkg/netutil"
	"github.com/solana-token-factory/factory/pkg/solana/metadata"
)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 8
)

// AllowedDecimals are the decimal precisions a token may be created with
var AllowedDecimals = map[uint8]struct{}{
	5: {},
	9: {},
}

var maxBaseUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ValidationError describes the first invalid field of a Request
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func newValidationError(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var validationErr ValidationError
	return errors.As(err, &validationErr)
}

// Request is a validated token creation request. It must not be modified once
// handed to the transaction assembler.
type Request struct {
	Name     string
	Symbol   string
	Decimals uint8

	// Supply is a positive integer in display units
	Supply string

	ImageURL    string
	MetadataURI string
	Description string

	RevokeFreeze bool
	RevokeMint   bool

	PromoCode string
}

// Normalize trims surrounding whitespace from user provided text fields and
// defaults the metadata URI to the image URL.
func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.Supply = strings.TrimSpace(r.Supply)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	r.MetadataURI = strings.TrimSpace(r.MetadataURI)
	r.Description = strings.TrimSpace(r.Description)
	r.PromoCode = strings.TrimSpace(r.PromoCode)

	if len(r.MetadataURI) == 0 {
		r.MetadataURI = r.ImageURL
	}
}

func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request is nil")
	}

	if len(r.Name) == 0 {
		return newValidationError("name", "name is required")
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return newValidationError("name", "name must be 32 characters or less")
	}

	if len(r.Symbol) == 0 {
		return newValidationError("symbol", "symbol is required")
	}
	if utf8.RuneCountInString(r.Symbol) > MaxSymbolLength {
		return newValidationError("symbol", "symbol must be 8 characters or less")
	}

	if _, ok := AllowedDecimals[r.Decimals]; !ok {
		return newValidationError("decimals", "decimals must be 5 or 9")
	}

	if len(r.Supply) == 0 {
		return newValidationError("supply", "supply is required")
	}
	if _, err := r.SupplyBaseUnits(); err != nil {
		return newValidationError("supply", err.Error())
	}

	if len(r.ImageURL) == 0 {
		return newValidationError("image", "image is required")
	}
	if isHttpURL(r.ImageURL) {
		if err := netutil.ValidateHttpUrl(r.ImageURL, false); err != nil {
			return newValidationError("image", "image url is invalid")
		}
	}
	if len(r.MetadataURI) == 0 {
		return newValidationError("metadataUri", "metadata uri is required")
	}
	if isHttpURL(r.MetadataURI) {
		if err := netutil.ValidateHttpUrl(r.MetadataURI, false); err != nil {
			return newValidationError("metadataUri", "metadata uri is invalid")
		}
	}

	return nil
}

// SupplyBaseUnits returns Supply scaled by 10^Decimals, which is the amount
// minted on chain.
func (r *Request) SupplyBaseUnits() (uint64, error) {
	supply, err := decimal.NewFromString(r.Supply)
	if err != nil {
		return 0, errors.New("supply must be a positive integer")
	}
	if !supply.IsInteger() || !supply.IsPositive() {
		return 0, errors.New("supply must be a positive integer")
	}

	scaled := supply.Shift(int32(r.Decimals))
	if scaled.GreaterThan(maxBaseUnits) {
		return 0, errors.New("supply is too large for the selected decimals")
	}

	return scaled.BigInt().Uint64(), nil
}

func isHttpURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// DisplayImageURL maps IPFS references to a gateway URL suitable for storage
// and display. Other values are returned unchanged.
func DisplayImageURL(imageURL string) string {
	trimmed := strings.TrimSpace(imageURL)
	switch {
	case strings.HasPrefix(trimmed, "http"), strings.HasPrefix(trimmed, "data:"):
		return trimmed
	case strings.HasPrefix(trimmed, "ipfs:/"):
		cid := strings.TrimPrefix(strings.TrimPrefix(trimmed, metadata.IPFSProtocolPrefix), "ipfs:/")
		return metadata.IPFSGatewayPrefix + cid
	case strings.HasPrefix(trimmed, "Qm"):
		return metadata.IPFSGatewayPrefix + trimmed
	}
	return trimmed
}
