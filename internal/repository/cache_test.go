package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisOrderCache_SetGetDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisOrderCache(client, time.Minute)
	ctx := context.Background()

	order := newTestOrder("u1", "ref_1", "p1")
	order.ID = "o1"
	order.OrderStatus = models.OrderStatusProcessing

	require.NoError(t, cache.Set(ctx, order))
	assert.True(t, mr.Exists("order:o1"))
	assert.Equal(t, time.Minute, mr.TTL("order:o1"))

	got, err := cache.Get(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.User)
	assert.True(t, got.OrderItems[0].Price.Equal(order.OrderItems[0].Price))

	require.NoError(t, cache.Delete(ctx, "o1"))
	got, err = cache.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisOrderCache_MissIsNil(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisOrderCache(client, 0)

	got, err := cache.Get(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisOrderCache_InvalidJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisOrderCache(client, 0)
	require.NoError(t, mr.Set("order:bad", "{not json"))

	_, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisEventDeduplicator_ClaimRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	d := NewRedisEventDeduplicator(client, time.Hour)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "ref_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("webhook:charge:ref_1"))

	ok, err = d.Claim(ctx, "ref_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Release(ctx, "ref_1"))
	ok, err = d.Claim(ctx, "ref_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisEventDeduplicator_ClaimExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	d := NewRedisEventDeduplicator(client, time.Minute)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "ref_2")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = d.Claim(ctx, "ref_2")
	require.NoError(t, err)
	assert.True(t, ok)
}
