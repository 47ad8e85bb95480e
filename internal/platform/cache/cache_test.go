// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/cache"
)

func newStore(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client), server
}

/*
TestStore_TTL verifies that values disappear once their TTL elapses.
*/
func TestStore_TTL(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth:otp:code:u1", "123456", 600*time.Second))

	value, err := store.Get(ctx, "auth:otp:code:u1")
	require.NoError(t, err)
	assert.Equal(t, "123456", value)

	server.FastForward(599 * time.Second)
	exists, err := store.Exists(ctx, "auth:otp:code:u1")
	require.NoError(t, err)
	assert.True(t, exists)

	server.FastForward(2 * time.Second)
	_, err = store.Get(ctx, "auth:otp:code:u1")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

/*
TestStore_RemainingTTL verifies TTL reporting for present and missing keys.
*/
func TestStore_RemainingTTL(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "auth:otp:u1:id", "u1", 60*time.Second))
	server.FastForward(20 * time.Second)

	remaining, err := store.TTL(ctx, "auth:otp:u1:id")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, remaining)

	_, err = store.TTL(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

/*
TestStore_Delete verifies multi-key deletion and the zero-key no-op.
*/
func TestStore_Delete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, store.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, store.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, store.Delete(ctx))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrMiss)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

/*
TestStore_SetRejectsNonPositiveTTL verifies that keys cannot be stored forever by mistake.
*/
func TestStore_SetRejectsNonPositiveTTL(t *testing.T) {
	store, _ := newStore(t)
	assert.Error(t, store.Set(context.Background(), "k", "v", 0))
}

/*
TestStore_Increment verifies the fixed window: the first hit sets the TTL and
later hits do not extend it.
*/
func TestStore_Increment(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	count, remaining, err := store.Increment(ctx, "throttle:login:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, remaining)

	server.FastForward(40 * time.Second)
	count, remaining, err = store.Increment(ctx, "throttle:login:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.LessOrEqual(t, remaining, 20*time.Second)

	server.FastForward(21 * time.Second)
	count, _, err = store.Increment(ctx, "throttle:login:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

/*
TestStore_IncrementArmsCounterWithoutTTL verifies a counter left without an
expiry is given the window on its next hit instead of living forever.
*/
func TestStore_IncrementArmsCounterWithoutTTL(t *testing.T) {
	store, server := newStore(t)
	ctx := context.Background()

	require.NoError(t, server.Set("throttle:login:10.0.0.2", "4"))

	count, remaining, err := store.Increment(ctx, "throttle:login:10.0.0.2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Equal(t, time.Minute, remaining)
	assert.Equal(t, time.Minute, server.TTL("throttle:login:10.0.0.2"))
}
