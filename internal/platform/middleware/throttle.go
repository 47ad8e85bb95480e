// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/platform/throttle"
)

// # Scoped Throttling

// ScopeLimiter is the subset of [throttle.Limiter] used by [Throttle].
type ScopeLimiter interface {
	Allow(ctx context.Context, key string) (throttle.Decision, error)
}

// Throttle limits requests per client IP, either globally or for one
// endpoint group. Counters live in the shared cache so the limit holds
// across API instances. The rejection message names the scope
// (e.g. "Too many login attempts.").
//
// A counter outage lets the request through and logs a warning.
func Throttle(limiter ScopeLimiter, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			decision, err := limiter.Allow(request.Context(), RealIP(request))
			if err != nil {
				ctxutil.Logger(request.Context()).WarnContext(request.Context(), "throttle_unavailable",
					slog.Any("error", err),
				)
			}

			if !decision.Allowed {
				respond.Error(writer, request, apperr.Throttled(message, decision.RetryAfterSeconds()))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
