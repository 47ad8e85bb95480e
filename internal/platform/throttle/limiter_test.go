// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package throttle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/throttle"
)

/*
TestLimiter_Window verifies that the limit applies per key and resets with the window.
*/
func TestLimiter_Window(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := throttle.NewLimiter(cache.New(client), "throttle:login:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		decision, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 60, decision.RetryAfterSeconds())

	// Other clients are unaffected
	decision, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	server.FastForward(61 * time.Second)
	decision, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

type brokenCounter struct{}

func (brokenCounter) Increment(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis down")
}

/*
TestLimiter_FailsOpen verifies that a counter outage allows the request and reports the error.
*/
func TestLimiter_FailsOpen(t *testing.T) {
	limiter := throttle.NewLimiter(brokenCounter{}, "throttle:x:", 1, time.Minute)

	decision, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, decision.Allowed)
}
