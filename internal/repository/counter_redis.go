package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"phone-pos/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore keeps each series in a hash {prefix, value} and swaps
// the value under WATCH/MULTI.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounterStore creates a Redis-backed CounterStore
func NewRedisCounterStore(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = "counter"
	}
	return &RedisCounterStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCounterStore) key(series string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, series)
}

// Seed creates the series if it does not exist yet. Existing values are kept.
func (s *RedisCounterStore) Seed(ctx context.Context, counter domain.Counter) error {
	key := s.key(counter.Series)
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, key, "prefix", counter.Prefix)
	pipe.HSetNX(ctx, key, "value", counter.Value)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed counter %s: %w", counter.Series, err)
	}
	return nil
}

// Get reads the counter hash for series
func (s *RedisCounterStore) Get(ctx context.Context, series string) (*domain.Counter, error) {
	fields, err := s.client.HGetAll(ctx, s.key(series)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counter: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCounterNotFound
	}

	value, err := strconv.ParseInt(fields["value"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse counter value: %w", err)
	}

	return &domain.Counter{Series: series, Prefix: fields["prefix"], Value: value}, nil
}

// CompareAndSwap sets the counter to new only if it still holds old,
// watching the key so a concurrent writer aborts the transaction
func (s *RedisCounterStore) CompareAndSwap(ctx context.Context, series string, old, new int64) error {
	key := s.key(series)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "value").Int64()
		if errors.Is(err, redis.Nil) {
			return ErrCounterNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read counter: %w", err)
		}
		if current != old {
			return ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "value", new)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}
