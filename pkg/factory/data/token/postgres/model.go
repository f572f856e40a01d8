package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/solana-token-factory/factory/pkg/database/postgres"
	"github.com/solana-token-factory/factory/pkg/factory/data/token"
)

const (
	tableName = "factory__core_token"

	allColumns = `id, mint_address, creator_wallet, owner_address, name, symbol, description, image_url, solscan_url, explorer_url, decimals, supply, has_mint_authority, has_freeze_authority, timestamp`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	MintAddress   string `db:"mint_address"`
	CreatorWallet string `db:"creator_wallet"`
	OwnerAddress  string `db:"owner_address"`

	Name        string `db:"name"`
	Symbol      string `db:"symbol"`
	Description string `db:"description"`
	ImageUrl    string `db:"image_url"`

	SolscanUrl  string `db:"solscan_url"`
	ExplorerUrl string `db:"explorer_url"`

	Decimals int    `db:"decimals"`
	Supply   string `db:"supply"`

	HasMintAuthority   bool `db:"has_mint_authority"`
	HasFreezeAuthority bool `db:"has_freeze_authority"`

	Timestamp time.Time `db:"timestamp"`
}

func toModel(obj *token.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if obj.Timestamp.IsZero() {
		obj.Timestamp = time.Now().UTC()
	}

	return &model{
		MintAddress:        obj.MintAddress,
		CreatorWallet:      obj.CreatorWallet,
		OwnerAddress:       obj.OwnerAddress,
		Name:               obj.Name,
		Symbol:             obj.Symbol,
		Description:        obj.Description,
		ImageUrl:           obj.ImageUrl,
		SolscanUrl:         obj.SolscanUrl,
		ExplorerUrl:        obj.ExplorerUrl,
		Decimals:           int(obj.Decimals),
		Supply:             obj.Supply,
		HasMintAuthority:   obj.HasMintAuthority,
		HasFreezeAuthority: obj.HasFreezeAuthority,
		Timestamp:          obj.Timestamp,
	}, nil
}

func fromModel(obj *model) *token.Record {
	return &token.Record{
		Id:                 uint64(obj.Id.Int64),
		MintAddress:        obj.MintAddress,
		CreatorWallet:      obj.CreatorWallet,
		OwnerAddress:       obj.OwnerAddress,
		Name:               obj.Name,
		Symbol:             obj.Symbol,
		Description:        obj.Description,
		ImageUrl:           obj.ImageUrl,
		SolscanUrl:         obj.SolscanUrl,
		ExplorerUrl:        obj.ExplorerUrl,
		Decimals:           uint8(obj.Decimals),
		Supply:             obj.Supply,
		HasMintAuthority:   obj.HasMintAuthority,
		HasFreezeAuthority: obj.HasFreezeAuthority,
		Timestamp:          obj.Timestamp,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(mint_address, creator_wallet, owner_address, name, symbol, description, image_url, solscan_url, explorer_url, decimals, supply, has_mint_authority, has_freeze_authority, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)

			ON CONFLICT (mint_address)
			DO UPDATE
				SET creator_wallet = $2, owner_address = $3, name = $4, symbol = $5, description = $6, image_url = $7, solscan_url = $8, explorer_url = $9,
					decimals = $10, supply = $11, has_mint_authority = $12, has_freeze_authority = $13, timestamp = $14
				WHERE ` + tableName + `.mint_address = $1

			RETURNING ` + allColumns

		return tx.QueryRowxContext(
			ctx,
			query,
			m.MintAddress,
			m.CreatorWallet,
			m.OwnerAddress,
			m.Name,
			m.Symbol,
			m.Description,
			m.ImageUrl,
			m.SolscanUrl,
			m.ExplorerUrl,
			m.Decimals,
			m.Supply,
			m.HasMintAuthority,
			m.HasFreezeAuthority,
			m.Timestamp,
		).StructScan(m)
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, mint string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE mint_address = $1`

	err := db.GetContext(ctx, res, query, mint)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, token.ErrTokenNotFound)
	}
	return res, nil
}

func dbGetRecent(ctx context.Context, db *sqlx.DB, limit uint64) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		ORDER BY timestamp DESC, id DESC
		LIMIT $1`

	err := db.SelectContext(ctx, &res, query, limit)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func dbCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName

	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}
	return res, nil
}
