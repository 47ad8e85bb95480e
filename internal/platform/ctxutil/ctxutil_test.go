// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
)

/*
TestScope_Defaults verifies the accessors outside an HTTP request.
*/
func TestScope_Defaults(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ctxutil.ScopeFrom(ctx))
	assert.Empty(t, ctxutil.RequestID(ctx))
	assert.Equal(t, slog.Default(), ctxutil.Logger(ctx))
	assert.Nil(t, ctxutil.AuthUser(ctx))
}

/*
TestScope_Logger verifies that a logger set on the scope is seen by every
context derived from it, including ones created before the call.
*/
func TestScope_Logger(t *testing.T) {
	ctx, scope := ctxutil.Open(context.Background(), "req-1")
	derived, cancel := context.WithCancel(ctx)
	defer cancel()

	// No logger yet
	assert.Equal(t, slog.Default(), ctxutil.Logger(derived))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scope.SetLogger(logger)

	assert.Equal(t, logger, ctxutil.Logger(derived))
	assert.Equal(t, "req-1", ctxutil.RequestID(derived))
}

/*
TestScope_AuthUser verifies that attaching claims records the caller on the
scope held by the outer context.
*/
func TestScope_AuthUser(t *testing.T) {
	outer, scope := ctxutil.Open(context.Background(), "req-2")
	claims := &sec.AuthClaims{
		UserID:    "user-123",
		Role:      string(sec.RoleSuperuser),
		TokenType: sec.TokenTypeAccess,
	}

	inner := ctxutil.WithAuthUser(outer, claims)

	retrieved := ctxutil.AuthUser(inner)
	require.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.UserID)
	assert.True(t, retrieved.IsAccess())

	// Claims stay scoped to the inner context, the caller id does not
	assert.Nil(t, ctxutil.AuthUser(outer))
	assert.Equal(t, "user-123", scope.UserID())
}

/*
TestScope_AuthUserWithoutScope verifies claims work in plain contexts.
*/
func TestScope_AuthUserWithoutScope(t *testing.T) {
	ctx := ctxutil.WithAuthUser(context.Background(), &sec.AuthClaims{UserID: "user-9"})
	assert.Equal(t, "user-9", ctxutil.AuthUser(ctx).UserID)

	foreign := context.WithValue(context.Background(), "claims", "not-claims")
	assert.Nil(t, ctxutil.AuthUser(foreign))
}
