package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces requests per key (typically an upstream host) with a
// token bucket per key.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

// New allows one request per interval per key with the given burst.
// A non-positive interval disables limiting.
func New(interval time.Duration, burst int) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{m: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = lim
	}
	return lim
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool { return l.get(key).Allow() }

// Wait blocks until a request for key may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error { return l.get(key).Wait(ctx) }
