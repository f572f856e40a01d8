package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solana-token-factory/factory/pkg/factory/data/promo"
	"github.com/solana-token-factory/factory/pkg/pointer"
)

func RunTests(t *testing.T, s promo.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s promo.Store){
		testRoundTrip,
		testGetAllUsable,
		testIncrementUses,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s promo.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "LAUNCH20")
		assert.Equal(t, promo.ErrPromoNotFound, err)
		assert.Nil(t, actual)

		assert.Error(t, s.Put(ctx, &promo.Record{}))
		assert.Error(t, s.Put(ctx, &promo.Record{Code: "BAD", DiscountPercentage: 101}))

		expected := &promo.Record{
			Code:               "LAUNCH20",
			DiscountPercentage: 20,
			Description:        "launch discount",
			MaxUses:            pointer.To[uint64](100),
			UsesCount:          3,
			ExpiresAt:          pointer.To(time.Now().Add(24 * time.Hour)),
			IsActive:           true,
			CreatedAt:          time.Now(),
		}
		cloned := expected.Clone()
		require.NoError(t, s.Put(ctx, expected))
		assert.EqualValues(t, 1, expected.Id)

		assert.Equal(t, promo.ErrPromoExists, s.Put(ctx, &promo.Record{Code: "LAUNCH20", IsActive: true}))

		actual, err = s.Get(ctx, "LAUNCH20")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		unlimited := &promo.Record{
			Code:               "FOREVER",
			DiscountPercentage: 100,
			IsActive:           true,
		}
		require.NoError(t, s.Put(ctx, unlimited))

		actual, err = s.Get(ctx, "FOREVER")
		require.NoError(t, err)
		assert.Nil(t, actual.MaxUses)
		assert.Nil(t, actual.ExpiresAt)
		assert.Nil(t, actual.RemainingUses())
	})
}

func testGetAllUsable(t *testing.T, s promo.Store) {
	t.Run("testGetAllUsable", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()

		actual, err := s.GetAllUsable(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, actual)

		for _, record := range []*promo.Record{
			{Code: "USABLE", DiscountPercentage: 10, IsActive: true},
			{Code: "INACTIVE", DiscountPercentage: 10, IsActive: false},
			{Code: "EXPIRED", DiscountPercentage: 10, IsActive: true, ExpiresAt: pointer.To(now.Add(-time.Minute))},
			{Code: "EXHAUSTED", DiscountPercentage: 10, IsActive: true, MaxUses: pointer.To[uint64](2), UsesCount: 2},
			{Code: "LIMITED", DiscountPercentage: 50, IsActive: true, MaxUses: pointer.To[uint64](2), UsesCount: 1, ExpiresAt: pointer.To(now.Add(time.Hour))},
		} {
			require.NoError(t, s.Put(ctx, record))
		}

		actual, err = s.GetAllUsable(ctx, now)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, "USABLE", actual[0].Code)
		assert.Equal(t, "LIMITED", actual[1].Code)

		actual, err = s.GetAllUsable(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, "USABLE", actual[0].Code)
	})
}

func testIncrementUses(t *testing.T, s promo.Store) {
	t.Run("testIncrementUses", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()

		_, err := s.IncrementUses(ctx, "MISSING", now)
		assert.Equal(t, promo.ErrPromoNotFound, err)

		for _, record := range []*promo.Record{
			{Code: "LIMITED", DiscountPercentage: 50, IsActive: true, MaxUses: pointer.To[uint64](2)},
			{Code: "INACTIVE", DiscountPercentage: 10, IsActive: false},
			{Code: "EXPIRED", DiscountPercentage: 10, IsActive: true, ExpiresAt: pointer.To(now.Add(-time.Minute))},
		} {
			require.NoError(t, s.Put(ctx, record))
		}

		updated, err := s.IncrementUses(ctx, "LIMITED", now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, updated.UsesCount)
		require.NotNil(t, updated.RemainingUses())
		assert.EqualValues(t, 1, *updated.RemainingUses())

		updated, err = s.IncrementUses(ctx, "LIMITED", now)
		require.NoError(t, err)
		assert.EqualValues(t, 2, updated.UsesCount)
		assert.EqualValues(t, 0, *updated.RemainingUses())

		_, err = s.IncrementUses(ctx, "LIMITED", now)
		assert.Equal(t, promo.ErrPromoMaxUsesReached, err)

		_, err = s.IncrementUses(ctx, "INACTIVE", now)
		assert.Equal(t, promo.ErrPromoInactive, err)

		_, err = s.IncrementUses(ctx, "EXPIRED", now)
		assert.Equal(t, promo.ErrPromoExpired, err)

		actual, err := s.Get(ctx, "LIMITED")
		require.NoError(t, err)
		assert.EqualValues(t, 2, actual.UsesCount)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *promo.Record) {
	assert.Equal(t, obj1.Code, obj2.Code)
	assert.Equal(t, obj1.DiscountPercentage, obj2.DiscountPercentage)
	assert.Equal(t, obj1.Description, obj2.Description)
	assert.Equal(t, obj1.MaxUses, obj2.MaxUses)
	assert.Equal(t, obj1.UsesCount, obj2.UsesCount)
	require.Equal(t, obj1.ExpiresAt == nil, obj2.ExpiresAt == nil)
	if obj1.ExpiresAt != nil {
		assert.Equal(t, obj1.ExpiresAt.Unix(), obj2.ExpiresAt.Unix())
	}
	assert.Equal(t, obj1.IsActive, obj2.IsActive)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
