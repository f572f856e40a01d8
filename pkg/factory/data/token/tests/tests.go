package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/factory/data/token"
)

func RunTests(t *testing.T, s token.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s token.Store){
		testRoundTrip,
		testUpsert,
		testGetRecent,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s token.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "mint")
		assert.Equal(t, token.ErrTokenNotFound, err)
		assert.Nil(t, actual)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		assert.Error(t, s.Save(ctx, &token.Record{}))

		expected := newTestRecord("mint", time.Now())
		cloned := expected.Clone()
		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Id)

		actual, err = s.Get(ctx, "mint")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
		assert.EqualValues(t, 1, actual.Id)

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testUpsert(t *testing.T, s token.Store) {
	t.Run("testUpsert", func(t *testing.T) {
		ctx := context.Background()

		start := time.Now().Add(-time.Hour)
		original := newTestRecord("mint", start)
		require.NoError(t, s.Save(ctx, original))

		updated := newTestRecord("mint", start.Add(time.Minute))
		updated.Name = "Renamed"
		updated.HasMintAuthority = true
		cloned := updated.Clone()
		require.NoError(t, s.Save(ctx, updated))
		assert.Equal(t, original.Id, updated.Id)

		actual, err := s.Get(ctx, "mint")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testGetRecent(t *testing.T, s token.Store) {
	t.Run("testGetRecent", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.GetRecent(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, actual)

		start := time.Now().Add(-time.Hour)
		for i := 0; i < 10; i++ {
			require.NoError(t, s.Save(ctx, newTestRecord(fmt.Sprintf("mint%d", i), start.Add(time.Duration(i)*time.Minute))))
		}

		actual, err = s.GetRecent(ctx, 5)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assert.Equal(t, fmt.Sprintf("mint%d", 9-i), record.MintAddress)
		}

		// Saving an existing token moves it to the front
		require.NoError(t, s.Save(ctx, newTestRecord("mint2", start.Add(time.Hour))))

		actual, err = s.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, "mint2", actual[0].MintAddress)
		assert.Equal(t, "mint9", actual[1].MintAddress)

		actual, err = s.GetRecent(ctx, 50)
		require.NoError(t, err)
		assert.Len(t, actual, 10)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 10, count)
	})
}

func newTestRecord(mint string, ts time.Time) *token.Record {
	return &token.Record{
		MintAddress:        mint,
		CreatorWallet:      "creator",
		OwnerAddress:       "owner",
		Name:               "Test Token",
		Symbol:             "TEST",
		Description:        "description",
		ImageUrl:           "https://example.com/image.png",
		SolscanUrl:         "https://solscan.io/token/" + mint,
		ExplorerUrl:        "https://explorer.solana.com/address/" + mint,
		Decimals:           9,
		Supply:             "1000000",
		HasMintAuthority:   false,
		HasFreezeAuthority: true,
		Timestamp:          ts,
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *token.Record) {
	assert.Equal(t, obj1.MintAddress, obj2.MintAddress)
	assert.Equal(t, obj1.CreatorWallet, obj2.CreatorWallet)
	assert.Equal(t, obj1.OwnerAddress, obj2.OwnerAddress)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.Symbol, obj2.Symbol)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.ImageUrl, obj2.ImageUrl)
	assert.Equal(t, obj1.SolscanUrl, obj2.SolscanUrl)
	assert.Equal(t, obj1.ExplorerUrl, obj2.ExplorerUrl)
	assert.Equal(t, obj1.Decimals, obj2.Decimals)
	assert.Equal(t, obj1.Supply, obj2.Supply)
	assert.Equal(t, obj1.HasMintAuthority, obj2.HasMintAuthority)
	assert.Equal(t, obj1.HasFreezeAuthority, obj2.HasFreezeAuthority)
	assert.Equal(t, obj1.Timestamp.Unix(), obj2.Timestamp.Unix())
}
