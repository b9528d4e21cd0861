// Package httpapi exposes the Controller command surface as a REST API,
// mirroring the teacher's api-gateway handler/middleware split.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adil-adysh/plan-flow/internal/telemetry"
)

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs every HTTP request with method, path, status, and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// RateLimit rejects a request with 429 when limiter denies the caller's
// remote address for the given command key. limiter may be nil to disable
// rate limiting entirely (e.g. in tests).
func RateLimit(limiter CommandLimiter, command string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := limiter.Allow(r.Context(), command+":"+r.RemoteAddr)
			if err != nil {
				// Fail open: a limiter outage should not block commands.
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				telemetry.RecordAPIRateLimited(command)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
