package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	rateLimitSweep   = time.Minute
	rateLimitStaleAt = 5 * time.Minute
)

// rateLimiter is a per-client token bucket.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	now      func() time.Time
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// run drops idle buckets until ctx is cancelled.
func (rl *rateLimiter) run(ctx context.Context) {
	t := time.NewTicker(rateLimitSweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.sweep()
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.visitors {
		if now.Sub(b.lastSeen) > rateLimitStaleAt {
			delete(rl.visitors, key)
		}
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.visitors[key]
	if !ok {
		rl.visitors[key] = &bucket{tokens: rl.rate - 1, lastSeen: now}
		return true
	}

	if refill := int(now.Sub(b.lastSeen) / rl.interval); refill > 0 {
		b.tokens = min(b.tokens+refill*rl.rate, rl.rate)
		b.lastSeen = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// limit rejects requests over the budget with 429.
func (rl *rateLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			jsonError(w, "Muitas requisições, tente novamente mais tarde", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey strips the port so one client shares a bucket across connections.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
