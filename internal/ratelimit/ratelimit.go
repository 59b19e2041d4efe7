// Package ratelimit throttles logo submissions per client before they reach the upstream quota.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// FixedWindow allows limit requests per key per window.
type FixedWindow struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]entry
}

type entry struct {
	count int
	reset time.Time
}

// NewFixedWindow returns nil when limit or window is not positive, which disables limiting.
func NewFixedWindow(limit int, window time.Duration, clock func() time.Time) *FixedWindow {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &FixedWindow{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]entry),
	}
}

// Allow records a hit for key. When the hit is rejected it also returns the time until the window resets.
func (l *FixedWindow) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store[key]
	if !ok || !now.Before(e.reset) {
		l.store[key] = entry{count: 1, reset: now.Add(l.window)}
		l.pruneExpiredLocked(now)
		return true, 0
	}
	if e.count >= l.limit {
		return false, e.reset.Sub(now)
	}
	e.count++
	l.store[key] = e
	return true, 0
}

func (l *FixedWindow) pruneExpiredLocked(now time.Time) {
	for key, e := range l.store {
		if !now.Before(e.reset) {
			delete(l.store, key)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
// keyFn extracts the client key; rejected is called to write the response body.
func Middleware(l Limiter, keyFn func(*http.Request) string, rejected func(http.ResponseWriter, *http.Request, time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(keyFn(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int((wait + time.Second - 1) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if rejected != nil {
				rejected(w, r, wait)
				return
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
