// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ctxutil carries per-request state through [context.Context].

The HTTP edge opens one [Scope] per request. The scope is a pointer, so a
value learned deep in the middleware chain (the caller's user id, known only
after the token is verified) is visible to the outer middleware once the
handler returns. Immutable values such as the verified claims are still
stored as ordinary context values.
*/
package ctxutil

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/quill/internal/platform/ctxkey"
	"github.com/taibuivan/quill/internal/platform/sec"
)

// # Request Scope

// Scope is the mutable state shared by every layer serving one request.
type Scope struct {
	// RequestID correlates log lines and the X-Request-ID response header.
	RequestID string

	mu     sync.RWMutex
	logger *slog.Logger
	userID string
}

// Open attaches a fresh [Scope] to ctx.
func Open(ctx context.Context, requestID string) (context.Context, *Scope) {
	scope := &Scope{RequestID: requestID}
	return context.WithValue(ctx, ctxkey.Scope, scope), scope
}

// ScopeFrom returns the request scope, or nil outside an HTTP request.
func ScopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(ctxkey.Scope).(*Scope)
	return scope
}

// SetLogger replaces the request logger.
func (scope *Scope) SetLogger(logger *slog.Logger) {
	scope.mu.Lock()
	defer scope.mu.Unlock()
	scope.logger = logger
}

// UserID returns the authenticated caller, empty for anonymous requests.
func (scope *Scope) UserID() string {
	scope.mu.RLock()
	defer scope.mu.RUnlock()
	return scope.userID
}

func (scope *Scope) setUserID(userID string) {
	scope.mu.Lock()
	defer scope.mu.Unlock()
	scope.userID = userID
}

// # Accessors

// RequestID returns the correlation id of the request, or "".
func RequestID(ctx context.Context) string {
	if scope := ScopeFrom(ctx); scope != nil {
		return scope.RequestID
	}
	return ""
}

// Logger returns the request logger, falling back to [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	if scope := ScopeFrom(ctx); scope != nil {
		scope.mu.RLock()
		defer scope.mu.RUnlock()
		if scope.logger != nil {
			return scope.logger
		}
	}
	return slog.Default()
}

// WithAuthUser stores the verified claims and records the caller on the scope.
func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	if scope := ScopeFrom(ctx); scope != nil && claims != nil {
		scope.setUserID(claims.UserID)
	}
	return context.WithValue(ctx, ctxkey.Claims, claims)
}

// AuthUser returns the verified claims, or nil for anonymous requests.
func AuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(ctxkey.Claims).(*sec.AuthClaims)
	return claims
}
