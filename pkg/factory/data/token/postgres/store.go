package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/solana-token-factory/factory/pkg/factory/data/token"
)

type store struct {
	db *sqlx.DB
}

func New(db *sql.DB) token.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements token.Store.Save
func (s *store) Save(ctx context.Context, record *token.Record) error {
	m, err := toModel(record)
	if err != nil {
		return err
	}

	err = m.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(m)
	res.CopyTo(record)

	return nil
}

// Get implements token.Store.Get
func (s *store) Get(ctx context.Context, mint string) (*token.Record, error) {
	m, err := dbGet(ctx, s.db, mint)
	if err != nil {
		return nil, err
	}
	return fromModel(m), nil
}

// GetRecent implements token.Store.GetRecent
func (s *store) GetRecent(ctx context.Context, limit uint64) ([]*token.Record, error) {
	models, err := dbGetRecent(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*token.Record, len(models))
	for i, m := range models {
		res[i] = fromModel(m)
	}
	return res, nil
}

// Count implements token.Store.Count
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbCount(ctx, s.db)
}
