package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/solana-token-factory/factory/pkg/database/postgres"
	"github.com/solana-token-factory/factory/pkg/factory/data/promo"
	"github.com/solana-token-factory/factory/pkg/pointer"
)

const (
	tableName = "factory__core_promocode"

	allColumns = `id, code, discount_percentage, description, max_uses, uses_count, expiry_date, is_active, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Code               string `db:"code"`
	DiscountPercentage int    `db:"discount_percentage"`
	Description        string `db:"description"`

	MaxUses   sql.NullInt64 `db:"max_uses"`
	UsesCount int64         `db:"uses_count"`

	ExpiryDate sql.NullTime `db:"expiry_date"`

	IsActive bool `db:"is_active"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *promo.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Now().UTC()
	}

	m := &model{
		Code:               obj.Code,
		DiscountPercentage: int(obj.DiscountPercentage),
		Description:        obj.Description,
		UsesCount:          int64(obj.UsesCount),
		IsActive:           obj.IsActive,
		CreatedAt:          obj.CreatedAt,
	}
	if obj.MaxUses != nil {
		m.MaxUses = sql.NullInt64{Int64: int64(*obj.MaxUses), Valid: true}
	}
	if obj.ExpiresAt != nil {
		m.ExpiryDate = sql.NullTime{Time: *obj.ExpiresAt, Valid: true}
	}
	return m, nil
}

func fromModel(obj *model) *promo.Record {
	return &promo.Record{
		Id:                 uint64(obj.Id.Int64),
		Code:               obj.Code,
		DiscountPercentage: uint8(obj.DiscountPercentage),
		Description:        obj.Description,
		MaxUses:            pointer.IfValid(obj.MaxUses.Valid, uint64(obj.MaxUses.Int64)),
		UsesCount:          uint64(obj.UsesCount),
		ExpiresAt:          pointer.IfValid(obj.ExpiryDate.Valid, obj.ExpiryDate.Time),
		IsActive:           obj.IsActive,
		CreatedAt:          obj.CreatedAt,
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(code, discount_percentage, description, max_uses, uses_count, expiry_date, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + allColumns

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Code,
			m.DiscountPercentage,
			m.Description,
			m.MaxUses,
			m.UsesCount,
			m.ExpiryDate,
			m.IsActive,
			m.CreatedAt,
		).StructScan(m)

		return pgutil.CheckUniqueViolation(err, promo.ErrPromoExists)
	})
}

func dbGet(ctx context.Context, db sqlx.QueryerContext, code string, forUpdate bool) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE code = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	err := sqlx.GetContext(ctx, db, res, query, code)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, promo.ErrPromoNotFound)
	}
	return res, nil
}

func dbGetAllUsable(ctx context.Context, db *sqlx.DB, now time.Time) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE is_active = TRUE
		AND (expiry_date IS NULL OR expiry_date > $1)
		AND (max_uses IS NULL OR uses_count < max_uses)
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, now)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func dbIncrementUses(ctx context.Context, db *sqlx.DB, code string, now time.Time) (*model, error) {
	var res *model
	err := pgutil.ExecuteRetryable(ctx, func() error {
		return pgutil.ExecuteInTx(ctx, db, sql.LevelSerializable, func(tx *sqlx.Tx) error {
			existing, err := dbGet(ctx, tx, code, true)
			if err != nil {
				return err
			}

			if err := promo.CheckUsable(fromModel(existing), now); err != nil {
				return err
			}

			query := `UPDATE ` + tableName + `
				SET uses_count = uses_count + 1
				WHERE id = $1
				RETURNING ` + allColumns

			updated := &model{}
			err = tx.QueryRowxContext(ctx, query, existing.Id).StructScan(updated)
			if err != nil {
				return err
			}

			res = updated
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
