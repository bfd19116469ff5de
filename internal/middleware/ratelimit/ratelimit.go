// Package ratelimit throttles requests per key with token buckets.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, typically a profile id.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo

	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	hits atomic.Int64
}

type clientInfo struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Config holds rate limiter configuration
type Config struct {
	// PerSecond is the sustained rate; Burst the bucket size.
	PerSecond float64
	Burst     int
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PerSecond: 2,
		Burst:     4,
		IdleTTL:   10 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.PerSecond <= 0 {
		config.PerSecond = def.PerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	return &Limiter{
		clients: make(map[string]*clientInfo),
		limit:   rate.Limit(config.PerSecond),
		burst:   config.Burst,
		idle:    config.IdleTTL,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket.
func (rl *Limiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	client, ok := rl.clients[key]
	if !ok {
		client = &clientInfo{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	rl.mu.Unlock()

	if client.limiter.AllowN(now, 1) {
		return true
	}
	rl.hits.Add(1)
	return false
}

// CleanExpired drops buckets idle for longer than IdleTTL.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for key, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of currently tracked keys
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware throttles the requests for which key returns a non-empty key.
// Requests without a key pass through.
func (rl *Limiter) Middleware(key func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k != "" && !rl.Allow(k) {
				if onLimit != nil {
					onLimit(w, r)
				} else {
					w.Header().Set("Retry-After", "1")
					http.Error(w, "Too many requests. Please slow down.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
