package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nadzzz/scenerelay/internal/relay"
)

// requestIDHeader is honored on input and echoed on every response.
const requestIDHeader = "X-Request-ID"

// withRequestID tags each request with an id and attaches a request-scoped
// logger to its context.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := slog.Default().With("request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(relay.WithLogger(r.Context(), logger)))
	})
}

// requireHTTPS redirects plain-HTTP requests to https. The X-Forwarded-Proto
// header of the fronting proxy is trusted.
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

// rateLimiter wraps a rate.Limiter for HTTP middleware.
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter creates a limiter; reqPerSec is the sustained rate, burst
// the maximum burst size.
func newRateLimiter(reqPerSec float64, burst int) *rateLimiter {
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/reqPerSec)), burst),
	}
}

// wrap enforces the limit on next.
func (rl *rateLimiter) wrap(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, []byte(`{"code":429,"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
