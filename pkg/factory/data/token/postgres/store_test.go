package postgres

import (
	"database/sql"
	"testing"

	"github.com/solana-token-factory/factory/pkg/factory/data/token"
	"github.com/solana-token-factory/factory/pkg/factory/data/token/tests"

	postgrestest "github.com/solana-token-factory/factory/pkg/database/postgres/test"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE factory__core_token(
			id SERIAL NOT NULL PRIMARY KEY,

			mint_address TEXT NOT NULL,
			creator_wallet TEXT NOT NULL,
			owner_address TEXT NOT NULL,

			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			description TEXT NOT NULL,
			image_url TEXT NOT NULL,

			solscan_url TEXT NOT NULL,
			explorer_url TEXT NOT NULL,

			decimals INTEGER NOT NULL,
			supply TEXT NOT NULL,

			has_mint_authority BOOL NOT NULL,
			has_freeze_authority BOOL NOT NULL,

			timestamp TIMESTAMP WITH TIME ZONE NOT NULL,

			CONSTRAINT factory__core_token__uniq__mint_address UNIQUE (mint_address)
		);
	`

	tableDestroy = `
		DROP TABLE factory__core_token;
	`
)

var (
	testStore token.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	schema := postgrestest.Schema{Create: tableCreate, Drop: tableDestroy}

	postgrestest.Main(m, schema, func(db *sql.DB, reset func()) {
		testStore = New(db)
		teardown = reset
	})
}

func TestTokenPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}
