package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solana-token-factory/factory/pkg/factory/data/promo"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) promo.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements promo.Store.Put
func (s *store) Put(ctx context.Context, record *promo.Record) error {
	m, err := toModel(record)
	if err != nil {
		return err
	}

	err = m.dbPut(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(m)
	res.CopyTo(record)

	return nil
}

// Get implements promo.Store.Get
func (s *store) Get(ctx context.Context, code string) (*promo.Record, error) {
	m, err := dbGet(ctx, s.db, code, false)
	if err != nil {
		return nil, err
	}
	return fromModel(m), nil
}

// GetAllUsable implements promo.Store.GetAllUsable
func (s *store) GetAllUsable(ctx context.Context, now time.Time) ([]*promo.Record, error) {
	models, err := dbGetAllUsable(ctx, s.db, now)
	if err != nil {
		return nil, err
	}

	res := make([]*promo.Record, len(models))
	for i, m := range models {
		res[i] = fromModel(m)
	}
	return res, nil
}

// IncrementUses implements promo.Store.IncrementUses
func (s *store) IncrementUses(ctx context.Context, code string, now time.Time) (*promo.Record, error) {
	m, err := dbIncrementUses(ctx, s.db, code, now)
	if err != nil {
		return nil, err
	}
	return fromModel(m), nil
}
