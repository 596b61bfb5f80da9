// Package ratelimit implements a fixed-window request limiter shared by all
// instances through Redis.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"yesod/internal/metrics"
)

// Counter increments a windowed counter and reports the time left in the
// window.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type Limiter struct {
	counter Counter
	max     int
	window  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func New(counter Counter, max int, window time.Duration, logger *zap.Logger) *Limiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{counter: counter, max: max, window: window, logger: logger, now: time.Now}
}

// Allow counts one request of identifier. When the store is unreachable the
// request is let through.
func (l *Limiter) Allow(ctx context.Context, identifier string) Result {
	now := l.now()
	count, ttl, err := l.counter.IncrWindow(ctx, "ratelimit:"+identifier, l.window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable", zap.String("identifier", identifier), zap.Error(err))
		return Result{Allowed: true, Limit: l.max, Remaining: l.max, Reset: now.Add(l.window)}
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: remaining,
		Reset:     now.Add(ttl),
	}
}

// Middleware rejects requests over the limit with 429. scope separates the
// counters of different routes.
func (l *Limiter) Middleware(scope string, rejected http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Allow(r.Context(), scope+":"+ClientIP(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

			if !res.Allowed {
				metrics.RateLimited.WithLabelValues(scope).Inc()
				retry := int(res.Reset.Sub(l.now()).Seconds())
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				rejected(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
