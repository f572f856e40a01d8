package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/app"
	"github.com/solana-token-factory/factory/pkg/factory/storageapi"
)

func TestInit_MemoryStores(t *testing.T) {
	storage := newStorageApp()
	require.NoError(t, storage.Init(app.Config{
		"use_memory_stores": true,
		"promo_codes": []interface{}{
			map[string]interface{}{
				"code":                "launch",
				"discount_percentage": 25,
				"description":         "  Launch week  ",
				"max_uses":            5,
				"expires_at":          "2100-01-01T00:00:00Z",
			},
			map[string]interface{}{
				"code":                "LAUNCH",
				"discount_percentage": 90,
			},
		},
	}, nil))

	server := httptest.NewServer(storage.HTTPHandler())
	defer server.Close()

	client := storageapi.NewClient(storageapi.WithBaseUrl(server.URL))

	record, err := client.GetUsable(context.Background(), "LAUNCH")
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH", record.Code)
	assert.EqualValues(t, 25, record.DiscountPercentage)
	assert.Equal(t, "Launch week", record.Description)
	require.NotNil(t, record.MaxUses)
	assert.EqualValues(t, 5, *record.MaxUses)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, 2100, record.ExpiresAt.UTC().Year())

	storage.Stop()
	storage.Stop()

	select {
	case <-storage.ShutdownChan():
	default:
		t.Fatal("expected shutdown channel to be closed")
	}
}

func TestInit_InvalidPromoCode(t *testing.T) {
	storage := newStorageApp()
	err := storage.Init(app.Config{
		"use_memory_stores": true,
		"promo_codes": []interface{}{
			map[string]interface{}{
				"code":                "BAD",
				"discount_percentage": 150,
			},
		},
	}, nil)
	assert.Error(t, err)
}

func TestInit_InvalidConfig(t *testing.T) {
	storage := newStorageApp()
	err := storage.Init(app.Config{
		"use_memory_stores": true,
		"promo_codes": []interface{}{
			map[string]interface{}{
				"code":       "BAD",
				"expires_at": "not a time",
			},
		},
	}, nil)
	assert.Error(t, err)
}
