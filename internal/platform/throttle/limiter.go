// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package throttle implements fixed-window request limits shared across API
// instances through the cache store.
package throttle

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Counter increments a windowed counter. Satisfied by [cache.Store].
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter allows up to limit hits per key within each window.
type Limiter struct {
	counter Counter
	prefix  string
	limit   int
	window  time.Duration
}

// NewLimiter creates a Limiter whose keys are namespaced under prefix.
func NewLimiter(counter Counter, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{counter: counter, prefix: prefix, limit: limit, window: window}
}

// Decision is the outcome of a single [Limiter.Allow] call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (decision Decision) RetryAfterSeconds() int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Allow records a hit for key and reports whether it fits in the current window.
func (limiter *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, remaining, err := limiter.counter.Increment(ctx, limiter.prefix+key, limiter.window)
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("throttle_allow_failed: %w", err)
	}

	if count > int64(limiter.limit) {
		return Decision{Allowed: false, RetryAfter: remaining}, nil
	}
	return Decision{Allowed: true, Remaining: limiter.limit - int(count)}, nil
}
