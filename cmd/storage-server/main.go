package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solana-token-factory/factory/pkg/app"
	pg "github.com/solana-token-factory/factory/pkg/database/postgres"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	promo_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/promo/memory"
	promo_postgres_client "github.com/solana-token-factory/factory/pkg/factory/data/promo/postgres"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	token_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/token/memory"
	token_postgres_client "github.com/solana-token-factory/factory/pkg/factory/data/token/postgres"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
	"github.com/solana-token-factory/factory/pkg/factory/server/web"
)

type databaseConfig struct {
	User               string `mapstructure:"user"`
	Host               string `mapstructure:"host"`
	Password           string `mapstructure:"password"`
	Port               int    `mapstructure:"port"`
	DbName             string `mapstructure:"db_name"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	UseAwsIam          bool   `mapstructure:"use_aws_iam"`
}

type seedPromoCode struct {
	Code               string    `mapstructure:"code"`
	DiscountPercentage uint8     `mapstructure:"discount_percentage"`
	Description        string    `mapstructure:"description"`
	MaxUses            uint64    `mapstructure:"max_uses"`
	ExpiresAt          time.Time `mapstructure:"expires_at"`
}

type storageConfig struct {
	// UseMemoryStores runs without a database, which is only suitable for
	// local development
	UseMemoryStores bool `mapstructure:"use_memory_stores"`

	Database databaseConfig `mapstructure:"database"`

	PromoCodes []seedPromoCode `mapstructure:"promo_codes"`
}

type storageApp struct {
	log *logrus.Entry

	db      *sql.DB
	handler http.Handler

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newStorageApp() *storageApp {
	return &storageApp{
		log:        logrus.StandardLogger().WithField("type", "storage-server"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *storageApp) Init(config app.Config, metricsProvider *newrelic.Application) error {
	var conf storageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     &conf,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(map[string]interface{}(config)); err != nil {
		return errors.Wrap(err, "invalid app config")
	}

	var tokens tokendata.Store
	var promos promodata.Store
	if conf.UseMemoryStores {
		a.log.Warn("using in memory stores, data will not be persisted")
		tokens = token_memory_client.New()
		promos = promo_memory_client.New()
	} else {
		db, err := pg.Open(&pg.Config{
			User:               conf.Database.User,
			Host:               conf.Database.Host,
			Password:           conf.Database.Password,
			Port:               conf.Database.Port,
			DbName:             conf.Database.DbName,
			MaxOpenConnections: conf.Database.MaxOpenConnections,
			MaxIdleConnections: conf.Database.MaxIdleConnections,
			UseAwsIam:          conf.Database.UseAwsIam,
		})
		if err != nil {
			return errors.Wrap(err, "error opening database")
		}
		a.db = db

		tokens = token_postgres_client.New(db)
		promos = promo_postgres_client.New(db)
	}

	if err := a.seedPromoCodes(promos, conf.PromoCodes); err != nil {
		return err
	}

	a.handler = web.NewServer(tokens, promos, metricsProvider, web.WithEnvConfigs()).Handler()
	return nil
}

// seedPromoCodes creates configured promo codes that don't exist yet
func (a *storageApp) seedPromoCodes(store promodata.Store, codes []seedPromoCode) error {
	ctx := context.Background()

	for _, seed := range codes {
		record := &promodata.Record{
			Code:               promo.Normalize(seed.Code),
			DiscountPercentage: seed.DiscountPercentage,
			Description:        strings.TrimSpace(seed.Description),
			IsActive:           true,
		}
		if seed.MaxUses > 0 {
			maxUses := seed.MaxUses
			record.MaxUses = &maxUses
		}
		if !seed.ExpiresAt.IsZero() {
			expiresAt := seed.ExpiresAt
			record.ExpiresAt = &expiresAt
		}

		err := store.Put(ctx, record)
		if errors.Is(err, promodata.ErrPromoExists) {
			continue
		} else if err != nil {
			return errors.Wrapf(err, "error seeding promo code %s", record.Code)
		}

		a.log.WithField("code", record.Code).Info("seeded promo code")
	}

	return nil
}

// HTTPHandler implements app.App.HTTPHandler
func (a *storageApp) HTTPHandler() http.Handler {
	return a.handler
}

// ShutdownChan implements app.App.ShutdownChan
func (a *storageApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *storageApp) Stop() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failure closing database")
			}
		}
	})
}

func main() {
	if err := app.Run(newStorageApp()); err != nil {
		logrus.StandardLogger().WithError(err).Error("error running storage server")
		os.Exit(1)
	}
}
