package storageapi

import (
	"html"
	"strconv"
	"time"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
)

type apiResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type saveTokenBody struct {
	MintAddress        string `json:"mintAddress"`
	CreatorWallet      string `json:"creatorWallet"`
	OwnerAddress       string `json:"ownerAddress"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	Description        string `json:"description"`
	ImageUrl           string `json:"imageUrl"`
	SolscanUrl         string `json:"solscanUrl"`
	ExplorerUrl        string `json:"explorerUrl"`
	Decimals           uint8  `json:"decimals"`
	Supply             string `json:"supply"`
	HasMintAuthority   bool   `json:"hasMintAuthority"`
	HasFreezeAuthority bool   `json:"hasFreezeAuthority"`
	Timestamp          int64  `json:"timestamp"`
}

func newSaveTokenBody(record *tokendata.Record) *saveTokenBody {
	body := &saveTokenBody{
		MintAddress:        record.MintAddress,
		CreatorWallet:      record.CreatorWallet,
		OwnerAddress:       record.OwnerAddress,
		Name:               record.Name,
		Symbol:             record.Symbol,
		Description:        record.Description,
		ImageUrl:           record.ImageUrl,
		SolscanUrl:         record.SolscanUrl,
		ExplorerUrl:        record.ExplorerUrl,
		Decimals:           record.Decimals,
		Supply:             record.Supply,
		HasMintAuthority:   record.HasMintAuthority,
		HasFreezeAuthority: record.HasFreezeAuthority,
	}
	if !record.Timestamp.IsZero() {
		body.Timestamp = record.Timestamp.UnixMilli()
	}
	return body
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

func (v *tokenView) toRecord() *tokendata.Record {
	record := &tokendata.Record{
		MintAddress:        v.MintAddress,
		Name:               html.UnescapeString(v.Name),
		Symbol:             html.UnescapeString(v.Symbol),
		Description:        html.UnescapeString(v.Description),
		SolscanUrl:         v.SolscanUrl,
		ExplorerUrl:        v.ExplorerUrl,
		Decimals:           v.Decimals,
		HasMintAuthority:   v.HasMintAuthority,
		HasFreezeAuthority: v.HasFreezeAuthority,
		Timestamp:          time.UnixMilli(v.Timestamp),
	}
	if v.ImageUrl != nil {
		record.ImageUrl = *v.ImageUrl
	}
	if v.Supply != nil {
		record.Supply = *v.Supply
	}
	if v.CreatorWallet != nil {
		record.CreatorWallet = *v.CreatorWallet
	}
	return record
}

type tokensResponse struct {
	apiResponse
	Tokens []*tokenView `json:"tokens"`
	Count  int          `json:"count"`
}

type countResponse struct {
	apiResponse
	Count uint64 `json:"count"`
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

func (v *promoCodeView) toRecord() *promodata.Record {
	record := &promodata.Record{
		Code:               v.Code,
		DiscountPercentage: v.DiscountPercentage,
		Description:        v.Description,
		MaxUses:            v.MaxUses,
		UsesCount:          v.UsesCount,
		IsActive:           v.IsActive,
	}

	if v.ExpiryDate != nil {
		if parsed, err := time.Parse(time.RFC3339, *v.ExpiryDate); err == nil {
			record.ExpiresAt = &parsed
		} else if millis, err := strconv.ParseInt(*v.ExpiryDate, 10, 64); err == nil {
			expiresAt := time.UnixMilli(millis)
			record.ExpiresAt = &expiresAt
		}
	}

	return record
}

type promoCodesResponse struct {
	apiResponse
	PromoCodes []*promoCodeView `json:"promoCodes"`
	Count      int              `json:"count"`
}

type usePromoCodeBody struct {
	Code string `json:"code"`
}

type usePromoCodeResponse struct {
	apiResponse
	Code          string  `json:"code"`
	RemainingUses *uint64 `json:"remainingUses"`
}
