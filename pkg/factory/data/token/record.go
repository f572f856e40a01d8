package token

import (
	"errors"
	"time"
)

// Record is a log entry for a token created through the factory
type Record struct {
	Id uint64

	MintAddress   string
	CreatorWallet string
	OwnerAddress  string

	Name        string
	Symbol      string
	Description string
	ImageUrl    string

	SolscanUrl  string
	ExplorerUrl string

	Decimals uint8
	Supply   string

	HasMintAuthority   bool
	HasFreezeAuthority bool

	Timestamp time.Time
}

func (r *Record) Validate() error {
	if len(r.MintAddress) == 0 {
		return errors.New("mint address is required")
	}
	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		MintAddress:   r.MintAddress,
		CreatorWallet: r.CreatorWallet,
		OwnerAddress:  r.OwnerAddress,

		Name:        r.Name,
		Symbol:      r.Symbol,
		Description: r.Description,
		ImageUrl:    r.ImageUrl,

		SolscanUrl:  r.SolscanUrl,
		ExplorerUrl: r.ExplorerUrl,

		Decimals: r.Decimals,
		Supply:   r.Supply,

		HasMintAuthority:   r.HasMintAuthority,
		HasFreezeAuthority: r.HasFreezeAuthority,

		Timestamp: r.Timestamp,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.MintAddress = r.MintAddress
	dst.CreatorWallet = r.CreatorWallet
	dst.OwnerAddress = r.OwnerAddress

	dst.Name = r.Name
	dst.Symbol = r.Symbol
	dst.Description = r.Description
	dst.ImageUrl = r.ImageUrl

	dst.SolscanUrl = r.SolscanUrl
	dst.ExplorerUrl = r.ExplorerUrl

	dst.Decimals = r.Decimals
	dst.Supply = r.Supply

	dst.HasMintAuthority = r.HasMintAuthority
	dst.HasFreezeAuthority = r.HasFreezeAuthority

	dst.Timestamp = r.Timestamp
}
