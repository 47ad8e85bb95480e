// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the HTTP processing chain shared by every route.

Order in the server (outermost first):

  - RequestScope: opens the per-request [ctxutil.Scope] and the X-Request-ID.
  - StructuredLogger: one access log line per request, written after the
    handler so it can name the authenticated caller.
  - Throttle: Redis-backed per-IP limits (global and per endpoint group).
  - PanicRecovery: converts a panic into a 500 envelope.
  - Authenticate: verifies the bearer token and records the caller.
  - CORS: origin allowlist from configuration.
*/
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/respond"
)

// maxRequestIDLength caps client-supplied ids before they reach the logs.
const maxRequestIDLength = 128

// # Request Scope

// RequestScope opens the request scope and echoes the correlation id.
//
// A client id is reused when it is short printable ASCII; otherwise a UUIDv7
// is generated so ids sort by arrival time.
func RequestScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if !usableRequestID(requestID) {
				requestID = newRequestID()
			}

			ctx, _ := ctxutil.Open(request.Context(), requestID)
			writer.Header().Set(constants.HeaderXRequestID, requestID)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, char := range id {
		if char < 0x21 || char > 0x7e {
			return false
		}
	}
	return true
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// # Access Logging

// statusRecorder remembers the response status and size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	if recorder.status == 0 {
		recorder.status = code
	}
	recorder.ResponseWriter.WriteHeader(code)
}

func (recorder *statusRecorder) Write(body []byte) (int, error) {
	if recorder.status == 0 {
		recorder.status = http.StatusOK
	}
	written, err := recorder.ResponseWriter.Write(body)
	recorder.bytes += written
	return written, err
}

// StructuredLogger installs the request logger on the scope and writes the
// access log line once the handler has returned.
//
// The caller's user_id comes from the scope, which [Authenticate] fills in
// further down the chain.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()

			scope := ctxutil.ScopeFrom(request.Context())
			if scope == nil {
				var ctx context.Context
				ctx, scope = ctxutil.Open(request.Context(), newRequestID())
				request = request.WithContext(ctx)
			}

			requestLogger := logger.With(
				slog.String("request_id", scope.RequestID),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)
			scope.SetLogger(requestLogger)

			recorder := &statusRecorder{ResponseWriter: writer}
			next.ServeHTTP(recorder, request)

			status := recorder.status
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attributes := []slog.Attr{
				slog.Int("status", status),
				slog.Int("bytes", recorder.bytes),
				slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			}
			if userID := scope.UserID(); userID != "" {
				attributes = append(attributes, slog.String("user_id", userID))
			}

			requestLogger.LogAttrs(request.Context(), level, "http_request_finished", attributes...)
		})
	}
}

// # Panic Recovery

// PanicRecovery turns a handler panic into the standard 500 envelope.
// [http.ErrAbortHandler] is re-raised so the server can drop the connection.
func PanicRecovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				ctxutil.Logger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
					slog.Any("panic", recovered),
					slog.String("stack", string(debug.Stack())),
				)
				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Cross-Origin Resource Sharing

// OriginPolicy supplies the browser origins allowed to call the API.
// Satisfied by [config.Config].
type OriginPolicy interface {
	IsDevelopment() bool
	AllowedOrigins() []string
}

const (
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders  = "Accept, Content-Type, Authorization, X-Request-ID"
	corsExposeHeaders = "X-Request-ID, Retry-After"
	corsMaxAge        = "300"
)

// CORS answers preflight requests and decorates responses for allowed origins.
// Development accepts any origin; other environments use the allowlist.
func CORS(policy OriginPolicy) func(http.Handler) http.Handler {
	allowed := policy.AllowedOrigins()
	allowAny := policy.IsDevelopment()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Add("Vary", constants.HeaderOrigin)

			if allowAny || slices.Contains(allowed, origin) {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			}

			if request.Method == http.MethodOptions && request.Header.Get("Access-Control-Request-Method") != "" {
				header.Set("Access-Control-Allow-Methods", corsAllowMethods)
				header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				header.Set("Access-Control-Max-Age", corsMaxAge)
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Helpers

// RealIP returns the client address: X-Real-IP, then the first
// X-Forwarded-For hop, then the socket peer.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
