package storageapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	promo_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/promo/memory"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	token_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/token/memory"
	"github.com/solana-token-factory/factory/pkg/factory/promo"
	"github.com/solana-token-factory/factory/pkg/factory/server/web"
	"github.com/solana-token-factory/factory/pkg/pointer"
)

var _ promo.Source = (*Client)(nil)

type testEnv struct {
	ctx    context.Context
	tokens tokendata.Store
	promos promodata.Store
	client *Client
	server *httptest.Server
}

func setup(t *testing.T, wrap func(http.Handler) http.Handler) testEnv {
	tokens := token_memory_client.New()
	promos := promo_memory_client.New()

	var handler http.Handler = web.NewServer(tokens, promos, nil, web.WithEnvConfigs()).Handler()
	if wrap != nil {
		handler = wrap(handler)
	}

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return testEnv{
		ctx:    context.Background(),
		tokens: tokens,
		promos: promos,
		client: NewClient(withManualTestOverrides(&testOverrides{
			baseUrl:     server.URL,
			maxAttempts: 3,
		})),
		server: server,
	}
}

func TestTokens_HappyPath(t *testing.T) {
	env := setup(t, nil)

	count, err := env.client.CountTokens(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	mint := common.NewRandomTestAccount(t).PublicKey().ToBase58()
	creator := common.NewRandomTestAccount(t).PublicKey().ToBase58()
	timestamp := time.UnixMilli(time.Now().UnixMilli())

	require.NoError(t, env.client.SaveToken(env.ctx, &tokendata.Record{
		MintAddress:      mint,
		CreatorWallet:    creator,
		OwnerAddress:     creator,
		Name:             "Fish & Chips",
		Symbol:           "FISH",
		Description:      "tasty",
		ImageUrl:         "https://example.com/fish.png",
		Decimals:         6,
		Supply:           "1000000",
		HasMintAuthority: true,
		Timestamp:        timestamp,
	}))

	stored, err := env.tokens.Get(env.ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Fish & Chips", stored.Name)
	assert.Equal(t, common.SolscanTokenURL(mint), stored.SolscanUrl)
	assert.EqualValues(t, 6, stored.Decimals)
	assert.True(t, stored.Timestamp.Equal(timestamp))

	count, err = env.client.CountTokens(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	recent, err := env.client.GetRecentTokens(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, mint, recent[0].MintAddress)
	assert.Equal(t, "Fish & Chips", recent[0].Name)
	assert.Equal(t, "1000000", recent[0].Supply)
	assert.Equal(t, creator, recent[0].CreatorWallet)
	assert.Equal(t, "https://example.com/fish.png", recent[0].ImageUrl)
	assert.True(t, recent[0].HasMintAuthority)
	assert.True(t, recent[0].Timestamp.Equal(timestamp))
}

func TestSaveToken_Invalid(t *testing.T) {
	env := setup(t, nil)

	assert.Error(t, env.client.SaveToken(env.ctx, &tokendata.Record{}))

	err := env.client.SaveToken(env.ctx, &tokendata.Record{MintAddress: "invalid"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestPromoSource(t *testing.T) {
	env := setup(t, nil)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{
		Code:               "LAUNCH20",
		DiscountPercentage: 20,
		MaxUses:            pointer.To[uint64](1),
		ExpiresAt:          &expiry,
		IsActive:           true,
	}))
	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{
		Code:               "FOREVER",
		DiscountPercentage: 10,
		IsActive:           true,
	}))

	_, err := env.client.GetUsable(env.ctx, "MISSING")
	assert.ErrorIs(t, err, promodata.ErrPromoNotFound)

	record, err := env.client.GetUsable(env.ctx, "LAUNCH20")
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH20", record.Code)
	assert.EqualValues(t, 20, record.DiscountPercentage)
	require.NotNil(t, record.MaxUses)
	assert.EqualValues(t, 1, *record.MaxUses)
	require.NotNil(t, record.ExpiresAt)
	assert.True(t, expiry.Equal(*record.ExpiresAt))
	assert.True(t, record.IsActive)

	all, err := env.client.GetAllUsable(env.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	remaining, err := env.client.MarkUsed(env.ctx, "LAUNCH20")
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.EqualValues(t, 0, *remaining)

	_, err = env.client.MarkUsed(env.ctx, "LAUNCH20")
	assert.ErrorIs(t, err, promodata.ErrPromoMaxUsesReached)

	_, err = env.client.MarkUsed(env.ctx, "MISSING")
	assert.ErrorIs(t, err, promodata.ErrPromoNotFound)

	remaining, err = env.client.MarkUsed(env.ctx, "FOREVER")
	require.NoError(t, err)
	assert.Nil(t, remaining)

	_, err = env.client.GetUsable(env.ctx, "LAUNCH20")
	assert.ErrorIs(t, err, promodata.ErrPromoNotFound)
}

func TestPromoSource_WithService(t *testing.T) {
	env := setup(t, nil)

	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{
		Code:               "HALF",
		DiscountPercentage: 50,
		IsActive:           true,
	}))

	service := promo.NewService(env.client, promo.NewCache())

	record, err := service.Validate(env.ctx, " half ")
	require.NoError(t, err)
	assert.EqualValues(t, 50, record.DiscountPercentage)

	_, err = service.Validate(env.ctx, "nope")
	assert.ErrorIs(t, err, promo.ErrInvalidPromoCode)
}

func TestRetries(t *testing.T) {
	var calls int32
	flaky := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	env := setup(t, flaky)

	count, err := env.client.CountTokens(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, -10)
	_, err = env.client.CountTokens(env.ctx)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.EqualValues(t, -7, atomic.LoadInt32(&calls))
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	counting := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			next.ServeHTTP(w, r)
		})
	}
	env := setup(t, counting)

	_, err := env.client.MarkUsed(env.ctx, "MISSING")
	assert.ErrorIs(t, err, promodata.ErrPromoNotFound)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, isRetriable(&StatusError{StatusCode: http.StatusInternalServerError}))
	assert.True(t, isRetriable(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, isRetriable(&StatusError{StatusCode: http.StatusBadRequest}))
	assert.False(t, isRetriable(context.Canceled))
	assert.True(t, isRetriable(ErrRequestFailed))
}
