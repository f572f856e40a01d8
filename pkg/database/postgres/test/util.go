package test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/solana-token-factory/factory/pkg/retry"
	"github.com/solana-token-factory/factory/pkg/retry/backoff"
)

const (
	image        = "postgres"
	imageTag     = "14"
	containerTTL = 2 * time.Minute

	user     = "factory"
	password = "factory-test"
	dbname   = "factory"
)

// Schema is the DDL a store's tests run against. Migrations live outside this
// repository, so each store's tests carry their own copy.
type Schema struct {
	Create string
	Drop   string
}

// StartPostgresDB runs a throwaway postgres container and returns a client
// once it accepts connections. closeFunc removes the container.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "error starting postgres container")
	}

	// Expire never fails, it only bounds the lifetime of leaked containers
	_ = resource.Expire(uint(containerTTL.Seconds()))

	closeFunc = func() {
		if err := pool.Purge(resource); err != nil {
			logrus.StandardLogger().WithError(err).Warn("failure purging postgres container")
		}
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort("5432/tcp"),
		dbname,
	)

	_, err = retry.Retry(
		context.Background(),
		func() error {
			db, err = sql.Open("pgx", dsn)
			if err != nil {
				return err
			}
			return db.Ping()
		},
		retry.Limit(60),
		retry.Backoff(backoff.Constant(500*time.Millisecond), time.Second),
	)
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "timed out waiting for postgres container")
	}

	return db, closeFunc, nil
}

// Main runs a package's tests against a fresh database with schema applied.
// ready receives the database and a reset func that recreates the schema,
// suitable as the teardown of a shared store test suite.
func Main(m *testing.M, schema Schema, ready func(db *sql.DB, reset func())) {
	log := logrus.StandardLogger().WithField("type", "postgres/test")

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("error creating docker pool")
		os.Exit(1)
	}

	db, closeFunc, err := StartPostgresDB(pool)
	if err != nil {
		log.WithError(err).Error("error starting postgres")
		os.Exit(1)
	}

	fail := func(err error, msg string) {
		log.WithError(err).Error(msg)
		db.Close()
		closeFunc()
		os.Exit(1)
	}

	if _, err := db.Exec(schema.Create); err != nil {
		fail(err, "error creating schema")
	}

	ready(db, func() {
		if pc := recover(); pc != nil {
			db.Close()
			closeFunc()
			panic(pc)
		}

		if _, err := db.Exec(schema.Drop); err != nil {
			fail(err, "error dropping schema")
		}
		if _, err := db.Exec(schema.Create); err != nil {
			fail(err, "error recreating schema")
		}
	})

	code := m.Run()
	db.Close()
	closeFunc()
	os.Exit(code)
}
