package web

import (
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
)

const (
	defaultTokenLimit = 5
	maxTokenLimit     = 50

	defaultDecimals = 9

	// Data URLs beyond this length are omitted from token listings
	maxInlineImageLength = 1000
)

var solanaAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// IsValidSolanaAddress reports whether value looks like a base58 encoded
// Solana address.
func IsValidSolanaAddress(value string) bool {
	return solanaAddressPattern.MatchString(value)
}

// parseTokenLimit returns the limit query parameter clamped to [1, 50]
func parseTokenLimit(r *http.Request) uint64 {
	raw := r.URL.Query().Get("limit")
	if len(raw) == 0 {
		return defaultTokenLimit
	}

	limit, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		limit = 0
	}

	if limit < 1 {
		return 1
	}
	if limit > maxTokenLimit {
		return maxTokenLimit
	}
	return uint64(limit)
}

type saveTokenRequest struct {
	MintAddress        string          `json:"mintAddress"`
	CreatorWallet      string          `json:"creatorWallet"`
	OwnerAddress       string          `json:"ownerAddress"`
	Name               string          `json:"name"`
	Symbol             string          `json:"symbol"`
	Description        string          `json:"description"`
	ImageUrl           string          `json:"imageUrl"`
	SolscanUrl         string          `json:"solscanUrl"`
	ExplorerUrl        string          `json:"explorerUrl"`
	Decimals           *int            `json:"decimals"`
	Supply             json.RawMessage `json:"supply"`
	HasMintAuthority   bool            `json:"hasMintAuthority"`
	HasFreezeAuthority bool            `json:"hasFreezeAuthority"`
	Timestamp          json.RawMessage `json:"timestamp"`
}

func newSaveTokenRequestFromHttpContext(r *http.Request, maxBodySize int64) (*saveTokenRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("error reading request body")
	}

	var req saveTokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid json body")
	}

	req.MintAddress = strings.TrimSpace(req.MintAddress)
	if len(req.MintAddress) == 0 {
		return nil, errors.New("Mint address is required")
	}
	if !IsValidSolanaAddress(req.MintAddress) {
		return nil, errors.New("Mint address is invalid")
	}

	return &req, nil
}

// toRecord converts the request to a record. Missing explorer links default
// to the standard explorers and the owner defaults to the creator wallet.
func (req *saveTokenRequest) toRecord(now time.Time) *tokendata.Record {
	record := &tokendata.Record{
		MintAddress:   req.MintAddress,
		CreatorWallet: strings.TrimSpace(req.CreatorWallet),
		OwnerAddress:  strings.TrimSpace(req.OwnerAddress),

		Name:        strings.TrimSpace(req.Name),
		Symbol:      strings.TrimSpace(req.Symbol),
		Description: strings.TrimSpace(req.Description),
		ImageUrl:    strings.TrimSpace(req.ImageUrl),

		SolscanUrl:  strings.TrimSpace(req.SolscanUrl),
		ExplorerUrl: strings.TrimSpace(req.ExplorerUrl),

		Decimals: defaultDecimals,
		Supply:   parseFlexibleString(req.Supply),

		HasMintAuthority:   req.HasMintAuthority,
		HasFreezeAuthority: req.HasFreezeAuthority,

		Timestamp: parseTimestamp(req.Timestamp, now),
	}

	if req.Decimals != nil && *req.Decimals >= 0 && *req.Decimals <= 255 {
		record.Decimals = uint8(*req.Decimals)
	}

	if !IsValidSolanaAddress(record.OwnerAddress) {
		record.OwnerAddress = record.CreatorWallet
	}

	if len(record.SolscanUrl) == 0 {
		record.SolscanUrl = common.SolscanTokenURL(record.MintAddress)
	}
	if len(record.ExplorerUrl) == 0 {
		record.ExplorerUrl = common.ExplorerAddressURL(record.MintAddress)
	}

	return record
}

// parseFlexibleString accepts a JSON string or number
func parseFlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}

// parseTimestamp accepts milliseconds since the epoch, an RFC 3339 string or a
// "2006-01-02 15:04:05" string. Anything else resolves to now.
func parseTimestamp(raw json.RawMessage, now time.Time) time.Time {
	value := parseFlexibleString(raw)
	if len(value) == 0 {
		return now
	}

	if millis, err := strconv.ParseInt(value, 10, 64); err == nil && millis > 0 {
		return time.UnixMilli(millis)
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}

	return now
}

type tokenView struct {
	MintAddress        string  `json:"mintAddress"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	Description        string  `json:"description"`
	ImageUrl           *string `json:"imageUrl"`
	SolscanUrl         string  `json:"solscanUrl"`
	ExplorerUrl        string  `json:"explorerUrl"`
	Decimals           uint8   `json:"decimals"`
	Supply             *string `json:"supply"`
	CreatorWallet      *string `json:"creatorWallet"`
	HasMintAuthority   bool    `json:"hasMintAuthority"`
	HasFreezeAuthority bool    `json:"hasFreezeAuthority"`
	Timestamp          int64   `json:"timestamp"`
}

// newTokenView renders a record for listing. Records with an invalid mint or
// missing name or symbol aren't displayable.
func newTokenView(record *tokendata.Record) (*tokenView, bool) {
	if !IsValidSolanaAddress(record.MintAddress) {
		return nil, false
	}
	if len(record.Name) == 0 || len(record.Symbol) == 0 {
		return nil, false
	}

	view := &tokenView{
		MintAddress:        record.MintAddress,
		Name:               html.EscapeString(record.Name),
		Symbol:             html.EscapeString(record.Symbol),
		Description:        html.EscapeString(record.Description),
		SolscanUrl:         record.SolscanUrl,
		ExplorerUrl:        record.ExplorerUrl,
		Decimals:           record.Decimals,
		HasMintAuthority:   record.HasMintAuthority,
		HasFreezeAuthority: record.HasFreezeAuthority,
		Timestamp:          record.Timestamp.UnixMilli(),
	}

	if len(record.ImageUrl) > 0 && !(strings.HasPrefix(record.ImageUrl, "data:") && len(record.ImageUrl) > maxInlineImageLength) {
		view.ImageUrl = &record.ImageUrl
	}
	if len(record.Supply) > 0 {
		view.Supply = &record.Supply
	}
	if len(record.CreatorWallet) > 0 {
		view.CreatorWallet = &record.CreatorWallet
	}

	if len(view.SolscanUrl) == 0 {
		view.SolscanUrl = common.SolscanTokenURL(record.MintAddress)
	}
	if len(view.ExplorerUrl) == 0 {
		view.ExplorerUrl = common.ExplorerAddressURL(record.MintAddress)
	}

	return view, true
}

type promoCodeView struct {
	Code               string  `json:"code"`
	DiscountPercentage uint8   `json:"discountPercentage"`
	MaxUses            *uint64 `json:"maxUses"`
	UsesCount          uint64  `json:"usesCount"`
	ExpiryDate         *string `json:"expiryDate"`
	Description        string  `json:"description"`
	IsActive           bool    `json:"isActive"`
}

func newPromoCodeView(record *promodata.Record) *promoCodeView {
	view := &promoCodeView{
		Code:               record.Code,
		DiscountPercentage: record.DiscountPercentage,
		MaxUses:            record.MaxUses,
		UsesCount:          record.UsesCount,
		Description:        record.Description,
		IsActive:           record.IsActive,
	}

	if record.ExpiresAt != nil {
		formatted := record.ExpiresAt.UTC().Format(time.RFC3339)
		view.ExpiryDate = &formatted
	}

	return view
}

type usePromoCodeRequest struct {
	Code string `json:"code"`
}

func newUsePromoCodeRequestFromHttpContext(r *http.Request, maxBodySize int64) (*usePromoCodeRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("error reading request body")
	}

	var req usePromoCodeRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, errors.New("invalid json body")
		}
	}

	req.Code = strings.TrimSpace(req.Code)
	if len(req.Code) == 0 {
		return nil, errors.New("Promo code is required")
	}

	return &req, nil
}
