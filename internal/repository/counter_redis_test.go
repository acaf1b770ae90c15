package repository

import (
	"context"
	"testing"

	"phone-pos/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCounterStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisCounterStore(client, "")

	_, err = store.Get(ctx, domain.SeriesSale)
	assert.ErrorIs(t, err, ErrCounterNotFound)

	require.NoError(t, store.Seed(ctx, domain.Counter{Series: domain.SeriesSale, Prefix: "V-", Value: 0}))
	require.NoError(t, store.CompareAndSwap(ctx, domain.SeriesSale, 0, 1))

	// Seeding again keeps the advanced value.
	require.NoError(t, store.Seed(ctx, domain.Counter{Series: domain.SeriesSale, Prefix: "V-", Value: 0}))

	counter, err := store.Get(ctx, domain.SeriesSale)
	require.NoError(t, err)
	assert.Equal(t, "V-", counter.Prefix)
	assert.Equal(t, int64(1), counter.Value)

	assert.ErrorIs(t, store.CompareAndSwap(ctx, domain.SeriesSale, 0, 1), ErrVersionConflict)
	assert.ErrorIs(t, store.CompareAndSwap(ctx, domain.SeriesReserve, 0, 1), ErrCounterNotFound)
}
