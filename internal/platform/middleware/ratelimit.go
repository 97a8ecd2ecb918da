package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// slidingWindow tracks request timestamps for per-caller rate limiting.
// A sliding window avoids the burst-at-boundary problem of fixed buckets.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// RateLimiter applies an in-memory sliding-window limit keyed by caller.
// State is per-process; the service runs as a single instance today.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// NewRateLimiter builds a limiter allowing limit requests per window per key.
func NewRateLimiter(limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Allow records a request for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{window: l.window}
		l.buckets[key] = sw
	}

	now := time.Now()
	sw.cleanup(now)
	if len(sw.timestamps) >= l.limit {
		return false
	}
	sw.timestamps = append(sw.timestamps, now)
	return true
}

// Limit rejects requests over the per-user limit with 429. It keys on the
// authenticated user when present, the remote address otherwise.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if userID := GetUserID(r.Context()); !userID.IsNil() {
			key = userID.String()
		}

		if !l.Allow(key) {
			args := append([]any{"user_id", key}, clientAttrs(r)...)
			logSecurityEvent(r.Context(), l.logger, "ratelimit.exceeded", args...)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
