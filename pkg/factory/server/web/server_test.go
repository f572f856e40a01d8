package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/factory/common"
	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	promo_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/promo/memory"
	tokendata "github.com/solana-token-factory/factory/pkg/factory/data/token"
	token_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/token/memory"
	"github.com/solana-token-factory/factory/pkg/pointer"
)

type testEnv struct {
	ctx     context.Context
	now     time.Time
	tokens  tokendata.Store
	promos  promodata.Store
	handler http.Handler
}

func setup(t *testing.T, maxRequests uint64) testEnv {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tokens := token_memory_client.New()
	promos := promo_memory_client.New()

	server := NewServer(tokens, promos, nil, withManualTestOverrides(&testOverrides{
		rateLimitMaxRequests: maxRequests,
	}))
	server.now = func() time.Time { return now }

	return testEnv{
		ctx:     context.Background(),
		now:     now,
		tokens:  tokens,
		promos:  promos,
		handler: server.Handler(),
	}
}

func (e testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		marshalled, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(marshalled)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.10:4321"
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, jsonContentTypeHeaderValue, rec.Header().Get(contentTypeHeaderName))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func randomMint(t *testing.T) string {
	return common.NewRandomTestAccount(t).PublicKey().ToBase58()
}

func TestSaveAndGetTokens(t *testing.T) {
	env := setup(t, 1000)

	creator := randomMint(t)
	var mints []string
	for i := 0; i < 7; i++ {
		mint := randomMint(t)
		mints = append(mints, mint)

		status, body := env.do(t, http.MethodPost, TokensPath, map[string]any{
			"mintAddress":        mint,
			"creatorWallet":      creator,
			"name":               fmt.Sprintf("Token <%d>", i),
			"symbol":             fmt.Sprintf("TK%d", i),
			"description":        "a token",
			"imageUrl":           "https://example.com/image.png",
			"decimals":           9,
			"supply":             "1000000",
			"timestamp":          env.now.Add(time.Duration(i) * time.Minute).UnixMilli(),
			"hasMintAuthority":   true,
			"hasFreezeAuthority": false,
		})
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Token saved successfully", body["message"])
		assert.Equal(t, mint, body["mintAddress"])
		assert.Equal(t, apiVersion, body["api_version"])
	}

	status, body := env.do(t, http.MethodGet, TokensPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, defaultTokenLimit, body["count"])

	tokens := body["tokens"].([]any)
	require.Len(t, tokens, defaultTokenLimit)

	first := tokens[0].(map[string]any)
	assert.Equal(t, mints[6], first["mintAddress"])
	assert.Equal(t, "Token &lt;6&gt;", first["name"])
	assert.Equal(t, common.SolscanTokenURL(mints[6]), first["solscanUrl"])
	assert.Equal(t, common.ExplorerAddressURL(mints[6]), first["explorerUrl"])
	assert.Equal(t, creator, first["creatorWallet"])
	assert.Equal(t, "1000000", first["supply"])
	assert.EqualValues(t, 9, first["decimals"])
	assert.Equal(t, true, first["hasMintAuthority"])
	assert.EqualValues(t, env.now.Add(6*time.Minute).UnixMilli(), first["timestamp"])

	status, body = env.do(t, http.MethodGet, TokensPath+"?limit=2", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tokens"], 2)

	status, body = env.do(t, http.MethodGet, TokensPath+"?limit=0", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tokens"], 1)

	status, body = env.do(t, http.MethodGet, TokensPath+"?limit=500", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["tokens"], 7)

	status, body = env.do(t, http.MethodGet, TokensCountPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 7, body["count"])
}

func TestSaveToken_Upsert(t *testing.T) {
	env := setup(t, 1000)

	mint := randomMint(t)
	owner := randomMint(t)

	status, _ := env.do(t, http.MethodPost, TokensPath, map[string]any{
		"mintAddress": mint,
		"name":        "Before",
		"symbol":      "BFR",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, TokensPath, map[string]any{
		"mintAddress":   mint,
		"creatorWallet": owner,
		"name":          "After",
		"symbol":        "AFT",
		"decimals":      5,
		"supply":        42,
	})
	require.Equal(t, http.StatusOK, status)

	count, err := env.tokens.Count(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	record, err := env.tokens.Get(env.ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "After", record.Name)
	assert.Equal(t, "AFT", record.Symbol)
	assert.EqualValues(t, 5, record.Decimals)
	assert.Equal(t, "42", record.Supply)
	assert.Equal(t, owner, record.OwnerAddress)
	assert.Equal(t, common.SolscanTokenURL(mint), record.SolscanUrl)
	assert.Equal(t, env.now.UnixMilli(), record.Timestamp.UnixMilli())
}

func TestSaveToken_Validation(t *testing.T) {
	env := setup(t, 1000)

	status, body := env.do(t, http.MethodPost, TokensPath, map[string]any{"name": "missing mint"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Mint address is required", body["error"])

	status, body = env.do(t, http.MethodPost, TokensPath, map[string]any{"mintAddress": "0OIl"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	req := httptest.NewRequest(http.MethodPost, TokensPath, strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTokens_SkipsMalformedRecords(t *testing.T) {
	env := setup(t, 1000)

	good := randomMint(t)
	require.NoError(t, env.tokens.Save(env.ctx, &tokendata.Record{
		MintAddress: good,
		Name:        "Good",
		Symbol:      "GOOD",
		ImageUrl:    "data:image/png;base64," + strings.Repeat("A", 2000),
		Timestamp:   env.now,
	}))
	require.NoError(t, env.tokens.Save(env.ctx, &tokendata.Record{
		MintAddress: "not-a-mint",
		Name:        "Bad",
		Symbol:      "BAD",
		Timestamp:   env.now.Add(time.Second),
	}))
	require.NoError(t, env.tokens.Save(env.ctx, &tokendata.Record{
		MintAddress: randomMint(t),
		Symbol:      "NONAME",
		Timestamp:   env.now.Add(2 * time.Second),
	}))

	status, body := env.do(t, http.MethodGet, TokensPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	tokens := body["tokens"].([]any)
	require.Len(t, tokens, 1)
	view := tokens[0].(map[string]any)
	assert.Equal(t, good, view["mintAddress"])
	assert.Nil(t, view["imageUrl"])
	assert.Nil(t, view["supply"])
}

func TestPromoCodes(t *testing.T) {
	env := setup(t, 1000)

	expiry := env.now.Add(24 * time.Hour)
	for _, record := range []*promodata.Record{
		{Code: "LAUNCH20", DiscountPercentage: 20, MaxUses: pointer.To[uint64](2), ExpiresAt: &expiry, IsActive: true, Description: "launch"},
		{Code: "FOREVER", DiscountPercentage: 10, IsActive: true},
		{Code: "DISABLED", DiscountPercentage: 50, IsActive: false},
		{Code: "OLD", DiscountPercentage: 50, ExpiresAt: pointer.To(env.now.Add(-time.Hour)), IsActive: true},
	} {
		require.NoError(t, env.promos.Put(env.ctx, record))
	}

	status, body := env.do(t, http.MethodGet, PromoCodesPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])

	status, body = env.do(t, http.MethodGet, PromoCodesPath+"?code=launch20", nil)
	require.Equal(t, http.StatusOK, status)
	codes := body["promoCodes"].([]any)
	require.Len(t, codes, 1)
	view := codes[0].(map[string]any)
	assert.Equal(t, "LAUNCH20", view["code"])
	assert.EqualValues(t, 20, view["discountPercentage"])
	assert.EqualValues(t, 2, view["maxUses"])
	assert.EqualValues(t, 0, view["usesCount"])
	assert.Equal(t, expiry.Format(time.RFC3339), view["expiryDate"])
	assert.Equal(t, true, view["isActive"])

	status, body = env.do(t, http.MethodGet, PromoCodesPath+"?code=FOREVER", nil)
	require.Equal(t, http.StatusOK, status)
	view = body["promoCodes"].([]any)[0].(map[string]any)
	assert.Nil(t, view["maxUses"])
	assert.Nil(t, view["expiryDate"])

	for _, code := range []string{"DISABLED", "OLD", "MISSING"} {
		status, body = env.do(t, http.MethodGet, PromoCodesPath+"?code="+code, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Invalid or expired promo code", body["message"])
	}
}

func TestUsePromoCode(t *testing.T) {
	env := setup(t, 1000)

	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{Code: "TWICE", DiscountPercentage: 20, MaxUses: pointer.To[uint64](2), IsActive: true}))
	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{Code: "UNLIMITED", DiscountPercentage: 5, IsActive: true}))
	require.NoError(t, env.promos.Put(env.ctx, &promodata.Record{Code: "OLD", DiscountPercentage: 5, ExpiresAt: pointer.To(env.now.Add(-time.Minute)), IsActive: true}))

	status, body := env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "twice"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Promo code usage recorded", body["message"])
	assert.Equal(t, "TWICE", body["code"])
	assert.EqualValues(t, 1, body["remainingUses"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "TWICE"})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["remainingUses"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "TWICE"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Promo code has reached maximum uses", body["error"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "UNLIMITED"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "remainingUses")
	assert.Nil(t, body["remainingUses"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "OLD"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Promo code has expired", body["error"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{"code": "NOPE"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid promo code", body["error"])

	status, body = env.do(t, http.MethodPost, UsePromoCodePath, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Promo code is required", body["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	env := setup(t, 1000)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, TokensPath},
		{http.MethodPost, TokensCountPath},
		{http.MethodPost, PromoCodesPath},
		{http.MethodGet, UsePromoCodePath},
	} {
		status, body := env.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, status)
		assert.Equal(t, false, body["success"])
	}
}

func TestRateLimit(t *testing.T) {
	env := setup(t, 3)

	for i := 0; i < 3; i++ {
		status, _ := env.do(t, http.MethodGet, TokensCountPath, nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := env.do(t, http.MethodGet, TokensCountPath, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", body["error"])

	// Loopback clients are exempt
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, TokensCountPath, nil)
		req.RemoteAddr = "127.0.0.1:5555"
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	// Limits are tracked per forwarded client
	req := httptest.NewRequest(http.MethodGet, TokensCountPath, nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := setup(t, 1000)

	req := httptest.NewRequest(http.MethodOptions, TokensPath, nil)
	req.Header.Set("Origin", "https://factory.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, now, parseTimestamp(nil, now))
	assert.Equal(t, now, parseTimestamp(json.RawMessage(`"garbage"`), now))
	assert.Equal(t, int64(1_700_000_000_000), parseTimestamp(json.RawMessage(`1700000000000`), now).UnixMilli())
	assert.Equal(t, int64(1_700_000_000_000), parseTimestamp(json.RawMessage(`"1700000000000"`), now).UnixMilli())
	assert.True(t, parseTimestamp(json.RawMessage(`"2024-03-01T10:00:00Z"`), now).Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, parseTimestamp(json.RawMessage(`"2024-03-01 10:00:00"`), now).Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}
