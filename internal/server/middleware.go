// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the lumend HTTP API.
package server

import (
	"context"
	"crypto/subtle"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ============================================================================
// TOKEN RESOLUTION
// ============================================================================

// TokenResolver maps an identity credential to a user id. Authentication
// itself lives outside lumend; the resolver only answers "who is this
// token".
type TokenResolver interface {
	// Resolve returns the user id for a token, or ok=false if the token is
	// not recognized.
	Resolve(token string) (userID string, ok bool)
}

// StaticTokens is a fixed token table for development and tests.
type StaticTokens map[string]string

// Resolve looks the token up with constant-time comparison so invalid
// tokens cannot be probed by timing.
func (t StaticTokens) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	var (
		userID string
		found  bool
	)
	for candidate, id := range t {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			userID = id
			found = true
		}
	}
	return userID, found
}

// ctxKey is the private context key type for request-scoped values.
type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id stored by AuthMiddleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// AuthMiddleware resolves the Authorization header to a user id and rejects
// requests whose token is missing or unrecognized.
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			userID, ok := resolver.Resolve(token)
			if !ok {
				log.Printf("AUTH_DENIED | ip=%s reason=unknown_token", GetClientIP(r))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ============================================================================
// RATE LIMITING
// ============================================================================

// UserRateLimiter enforces a per-user token-bucket rate limit. Requests
// before authentication fall back to the client IP as the bucket key.
type UserRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter creates a limiter allowing perMinute requests with the
// given burst.
func NewUserRateLimiter(perMinute int, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// DefaultUserRateLimiter allows 60 requests per minute with a burst of 10.
func DefaultUserRateLimiter() *UserRateLimiter {
	return NewUserRateLimiter(60, 10)
}

// Allow reports whether a request for the given key may proceed.
func (l *UserRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimitMiddleware returns 429 when the caller exceeds their budget.
// Must run after AuthMiddleware so the bucket is keyed by user, not by IP.
func RateLimitMiddleware(limiter *UserRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserID(r.Context())
			if key == "" {
				key = GetClientIP(r)
			}

			if !limiter.Allow(key) {
				log.Printf("RATE_LIMITED | key=%s path=%s", key, r.URL.Path)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// BODY LIMITS
// ============================================================================

// BodyLimitMiddleware caps the request body size. Oversized bodies fail at
// read time inside the handler with http.MaxBytesError.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// LOGGING AND RECOVERY
// ============================================================================

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs each request with timing information.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Printf("REQUEST | method=%s path=%s status=%d duration=%s ip=%s",
				r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond), GetClientIP(r))
		})
	}
}

// RecoveryMiddleware converts handler panics into 500 responses with a
// logged stack trace.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Printf("PANIC | path=%s error=%v\n%s", r.URL.Path, err, debug.Stack())
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// HELPERS
// ============================================================================

// Chain composes middleware left to right: the first middleware is the
// outermost.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// GetClientIP extracts the client IP from the request, honoring
// X-Forwarded-For when present.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
