// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"
)

// # Token Revocation

// RevocationRepository records refresh tokens that must no longer be accepted.
type RevocationRepository interface {

	/*
		Revoke blacklists a refresh token by its jti. Revoking twice is a no-op
		that reports false, which lets refresh rotation detect a replayed token.

		Parameters:
		  - context: context.Context
		  - jti: string
		  - userID: string
		  - expiresAt: time.Time (the token's own expiry, used by the sweeper)

		Returns:
		  - bool: True if this call inserted the entry
		  - error: Storage failures
	*/
	Revoke(context context.Context, jti, userID string, expiresAt time.Time) (bool, error)

	/*
		IsRevoked reports whether a jti has been blacklisted.

		Parameters:
		  - context: context.Context
		  - jti: string

		Returns:
		  - bool: True if revoked
		  - error: Storage failures
	*/
	IsRevoked(context context.Context, jti string) (bool, error)

	/*
		DeleteExpired removes entries whose token expired before the cutoff.

		Parameters:
		  - context: context.Context
		  - before: time.Time

		Returns:
		  - int64: Number of rows removed
		  - error: Storage failures
	*/
	DeleteExpired(context context.Context, before time.Time) (int64, error)
}

// # Short-Lived Cache

// Cache is the TTL key/value contract used for OTP sessions. Satisfied by
// [cache.Store].
type Cache interface {
	Set(context context.Context, key, value string, ttl time.Duration) error
	Get(context context.Context, key string) (string, error)
	TTL(context context.Context, key string) (time.Duration, error)
	Delete(context context.Context, keys ...string) error
}
