package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/solana-token-factory/factory/pkg/retry"
)

const maxSerializationRetries = 5

// ExecuteRetryable retries fn while it fails with a serialization failure
func ExecuteRetryable(ctx context.Context, fn func() error) error {
	_, err := retry.Retry(
		ctx,
		fn,
		retry.Limit(maxSerializationRetries),
		retry.RetriableFunc(IsSerializationFailure),
	)
	return err
}

// ExecuteInTx executes fn within the scope of a new DB transaction. Commit or
// rollback is called based on whether fn returns an error.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// We always need to execute a Rollback() so sql.DB releases the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}
