// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis builds the go-redis client behind the cache store.

Everything kept here is short-lived: OTP sessions, resend cooldowns and
throttle counters. Losing it logs users out of a pending 2FA step but never
loses account data, so the client favours short I/O timeouts over retries.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the startup and readiness pings.
const pingTimeout = 2 * time.Second

// Options tunes the client on top of what the URL carries.
type Options struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// MinIdleConns keeps warm connections for the login path.
	MinIdleConns int

	// DialTimeout bounds establishing a connection.
	DialTimeout time.Duration

	// IOTimeout bounds every read and write.
	IOTimeout time.Duration
}

/*
NewClient parses the URL, applies the tuning and verifies connectivity.

Parameters:
  - context: Bounds the initial ping
  - options: Connection URL and pool tuning
  - logger: Receives the connection event

Returns:
  - *redis.Client: A connected client, owned by the caller
  - error: Invalid URL or unreachable server
*/
func NewClient(context stdctx.Context, options Options, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := redis.ParseURL(options.URL)
	if err != nil {
		return nil, fmt.Errorf("redis_url_invalid: %w", err)
	}

	applyTuning(parsed, options)
	client := redis.NewClient(parsed)

	if err := Checker(client)(context); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.InfoContext(context, "redis_connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
		slog.Int("pool_size", parsed.PoolSize),
		slog.Duration("io_timeout", parsed.ReadTimeout),
	)
	return client, nil
}

// applyTuning copies the non-zero settings of options onto parsed.
func applyTuning(parsed *redis.Options, options Options) {
	if options.PoolSize > 0 {
		parsed.PoolSize = options.PoolSize
		parsed.MaxIdleConns = options.PoolSize
	}
	if options.MinIdleConns > 0 {
		parsed.MinIdleConns = min(options.MinIdleConns, parsed.PoolSize)
	}
	if options.DialTimeout > 0 {
		parsed.DialTimeout = options.DialTimeout
	}
	if options.IOTimeout > 0 {
		parsed.ReadTimeout = options.IOTimeout
		parsed.WriteTimeout = options.IOTimeout
		parsed.PoolTimeout = options.IOTimeout + time.Second
	}

	// A failed command surfaces at once; callers already degrade without Redis.
	parsed.MaxRetries = 1
	parsed.ContextTimeoutEnabled = true
}

// Checker returns a readiness check that pings the server under its own deadline.
func Checker(client redis.UniversalClient) func(stdctx.Context) error {
	return func(context stdctx.Context) error {
		pingContext, cancel := stdctx.WithTimeout(context, pingTimeout)
		defer cancel()

		if err := client.Ping(pingContext).Err(); err != nil {
			return fmt.Errorf("redis_ping_failed: %w", err)
		}
		return nil
	}
}
