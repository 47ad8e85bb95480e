// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cache provides the short-lived key/value store used for OTP sessions,
phone verification codes and throttle counters.

Every value carries its own TTL; expiry is the only cleanup mechanism. Missing
and expired keys are indistinguishable and reported as [ErrMiss].
*/
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or has expired.
var ErrMiss = errors.New("cache: miss")

// Store is a Redis-backed TTL store.
type Store struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

/*
Set stores value under key for ttl, replacing any previous value and TTL.

Parameters:
  - context: context.Context
  - key: string
  - value: string
  - ttl: time.Duration (must be positive)

Returns:
  - error: Connectivity errors
*/
func (store *Store) Set(context context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache_set_failed: non-positive ttl %s for %s", ttl, key)
	}
	if err := store.client.Set(context, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache_set_failed: %w", err)
	}
	return nil
}

/*
Get returns the value stored under key.

Returns:
  - string: Stored value
  - error: ErrMiss if absent or expired, connectivity errors otherwise
*/
func (store *Store) Get(context context.Context, key string) (string, error) {
	value, err := store.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("cache_get_failed: %w", err)
	}
	return value, nil
}

// Exists reports whether key is currently present.
func (store *Store) Exists(context context.Context, key string) (bool, error) {
	count, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache_exists_failed: %w", err)
	}
	return count > 0, nil
}

// TTL returns the remaining lifetime of key, or [ErrMiss] when it is absent.
func (store *Store) TTL(context context.Context, key string) (time.Duration, error) {
	remaining, err := store.client.PTTL(context, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache_ttl_failed: %w", err)
	}

	// go-redis reports a missing key as -2 and a key without expiry as -1
	if remaining == -2 {
		return 0, ErrMiss
	}
	return remaining, nil
}

// Delete removes keys. Missing keys are ignored.
func (store *Store) Delete(context context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := store.client.Del(context, keys...).Err(); err != nil {
		return fmt.Errorf("cache_delete_failed: %w", err)
	}
	return nil
}

/*
Increment adds one to the counter under key and returns the new value with the
time left in its window. The window starts on the first increment; later
increments do not extend it.

Parameters:
  - context: context.Context
  - key: string
  - window: time.Duration

Returns:
  - int64: Counter value after the increment
  - time.Duration: Remaining lifetime of the window
  - error: Connectivity errors
*/
func (store *Store) Increment(context context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		count     *redis.IntCmd
		remaining *redis.DurationCmd
	)

	// One MULTI/EXEC; EXPIRE NX only arms a counter that has no TTL yet.
	_, err := store.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(context, key)
		pipe.ExpireNX(context, key, window)
		remaining = pipe.PTTL(context, key)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("cache_increment_failed: %w", err)
	}

	ttl := remaining.Val()
	if ttl < 0 {
		ttl = window
	}
	return count.Val(), ttl, nil
}
