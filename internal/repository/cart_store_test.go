package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCartStore using it
func setupTestRedis(t *testing.T) (*RedisCartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCartStore(client, time.Hour), mr
}

func sampleState() cart.State {
	return cart.State{
		Lines: []models.CartLine{
			{ProductID: "1", Name: "Fresh Carrots", UnitPrice: decimal.NewFromInt(100), Quantity: 2, AvailableStock: 40},
		},
		CouponCode:      "SAVE10",
		DiscountPercent: decimal.NewFromInt(10),
	}
}

func TestRedisCartStore_SaveLoadDelete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "buyer@example.com")
	assert.ErrorIs(t, err, ErrCartNotFound)

	require.NoError(t, store.Save(ctx, "buyer@example.com", sampleState()))
	assert.True(t, mr.Exists("cart:buyer@example.com"))
	assert.Equal(t, time.Hour, mr.TTL("cart:buyer@example.com"))

	got, err := store.Load(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, got.DiscountPercent.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "SAVE10", got.CouponCode)

	require.NoError(t, store.Delete(ctx, "buyer@example.com"))
	_, err = store.Load(ctx, "buyer@example.com")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestRedisCartStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "buyer@example.com", sampleState()))
	mr.FastForward(2 * time.Hour)

	_, err := store.Load(ctx, "buyer@example.com")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestRedisCartStore_CorruptValue(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:buyer@example.com", "not json"))

	_, err := store.Load(context.Background(), "buyer@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCartNotFound)
}

func TestRedisCartStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	err := store.Save(context.Background(), "buyer@example.com", sampleState())
	assert.Error(t, err)
}

func TestInMemoryCartStore(t *testing.T) {
	store := NewInMemoryCartStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrCartNotFound)

	require.NoError(t, store.Save(ctx, "a@example.com", sampleState()))
	got, err := store.Load(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.CouponCode)

	require.NoError(t, store.Delete(ctx, "a@example.com"))
	_, err = store.Load(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrCartNotFound)
}
