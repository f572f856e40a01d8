package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	promodata "github.com/solana-token-factory/factory/pkg/factory/data/promo"
	promo_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/promo/memory"
	token_memory_client "github.com/solana-token-factory/factory/pkg/factory/data/token/memory"
	"github.com/solana-token-factory/factory/pkg/factory/recent"
	"github.com/solana-token-factory/factory/pkg/factory/server/web"
)

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadKeypair(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	dir := t.TempDir()

	values := make([]string, len(priv))
	for i, b := range priv {
		values[i] = fmt.Sprint(b)
	}
	jsonPath := filepath.Join(dir, "id.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("["+strings.Join(values, ",")+"]\n"), 0600))

	account, err := loadKeypair(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(pub), account.PublicKey().ToBase58())
	assert.True(t, account.HasPrivateKey())

	base58Path := filepath.Join(dir, "id.txt")
	require.NoError(t, os.WriteFile(base58Path, []byte(base58.Encode(priv)), 0600))

	account, err = loadKeypair(base58Path)
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(pub), account.PublicKey().ToBase58())

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("[1,2,300]"), 0600))
	_, err = loadKeypair(badPath)
	assert.Error(t, err)

	_, err = loadKeypair(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestQuote_WithoutStorage(t *testing.T) {
	out, err := execute(t, "quote", "--storage-url", "", "--revoke-freeze", "--revoke-mint", "--promo", "LAUNCH")
	require.NoError(t, err)

	assert.Contains(t, out, "base fee:       0.3 SOL")
	assert.Contains(t, out, "authority fee:  0.2 SOL")
	assert.NotContains(t, out, "promo")
	assert.Contains(t, out, "total:          0.5 SOL")
}

func TestQuote_WithPromoCode(t *testing.T) {
	promos := promo_memory_client.New()
	require.NoError(t, promos.Put(context.Background(), &promodata.Record{
		Code:               "LAUNCH",
		DiscountPercentage: 50,
		IsActive:           true,
	}))

	server := httptest.NewServer(web.NewServer(token_memory_client.New(), promos, nil, web.WithEnvConfigs()).Handler())
	defer server.Close()

	out, err := execute(t, "quote", "--storage-url", server.URL, "--revoke-freeze", "--promo", "launch")
	require.NoError(t, err)

	assert.Contains(t, out, "authority fee:  0.1 SOL")
	assert.Contains(t, out, "promo LAUNCH:  -0.2 SOL (50%)")
	assert.Contains(t, out, "total:          0.2 SOL")

	out, err = execute(t, "promos", "--storage-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "LAUNCH")
	assert.Contains(t, out, "50%")
}

func TestQuote_UnknownNetwork(t *testing.T) {
	_, err := execute(t, "quote", "--network", "localnet")
	assert.Error(t, err)
}

func TestRecent_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent.json")

	out, err := execute(t, "recent", "--recent-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no recent tokens")

	list := recent.NewList(recent.DefaultCapacity)
	list.Add(recent.Entry{
		Name:        "Test Token",
		Symbol:      "TEST",
		MintAddress: "mint1",
		Timestamp:   time.Now().Add(-2 * time.Hour).UnixMilli(),
	})
	require.NoError(t, saveRecent(path, list))

	out, err = execute(t, "recent", "--recent-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Token (TEST)  mint1  2 hours ago")
}

func TestCreate_RequiresFlags(t *testing.T) {
	_, err := execute(t, "create", "--name", "Test Token")
	assert.Error(t, err)
}
