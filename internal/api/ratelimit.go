package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window request counter per client IP. It guards the
// control endpoints that start tick loops.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int           // max requests per window
	period  time.Duration // window length
	now     func() time.Time
}

type window struct {
	remaining int
	opened    time.Time
}

// NewRateLimiter allows limit requests per period for each client.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow consumes one request for ip and reports whether it was within limits.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.opened) >= rl.period {
		rl.windows[ip] = &window{remaining: rl.limit - 1, opened: now}
		return rl.limit > 0
	}
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// RetryAfter returns the whole seconds until ip's window reopens.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok {
		return 0
	}
	left := rl.period - rl.now().Sub(w.opened)
	if left < 0 {
		return 0
	}
	return int(left.Seconds()) + 1
}

// sweep drops windows that closed more than one period ago.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, w := range rl.windows {
		if now.Sub(w.opened) > 2*rl.period {
			delete(rl.windows, ip)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware answers 429 once a client exceeds rl.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
