package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RealIP extracts the client's real IP address, preferring Cloudflare's
// CF-Connecting-IP header, then X-Forwarded-For, and falling back to RemoteAddr.
// The headers are client controlled unless a proxy in front overwrites them.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	return RemoteIP(r)
}

// RemoteIP returns the host part of the connection's remote address.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter keyed by an arbitrary string.
type RateLimiter struct {
	limit  int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	key     func(*http.Request) string
}

// NewRateLimiter allows limit hits per key in every period. A limit of zero
// or less disables limiting.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
		key:     RemoteIP,
	}
}

// TrustProxy keys requests by RealIP instead of the connection address.
// Enable it only behind a proxy that sets the forwarding headers.
func (rl *RateLimiter) TrustProxy(trust bool) {
	if trust {
		rl.key = RealIP
	} else {
		rl.key = RemoteIP
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// along with the time the current window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Time) {
	if rl.limit <= 0 {
		return true, time.Time{}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.period)}
		rl.windows[key] = w
	}
	w.count++
	return w.count <= rl.limit, w.resetAt
}

// Cleanup drops windows that have already reset and returns how many were removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}

// Limit returns middleware that rejects requests over the limit with 429,
// keyed by the client IP. See TrustProxy.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, resetAt := rl.Allow(rl.key(r))
		if !ok {
			retry := int(resetAt.Sub(rl.now()).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
