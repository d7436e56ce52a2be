package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out one token bucket per key. Buckets idle for
// longer than the eviction window are dropped by Sweep.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	clock    Clocker
	limiters map[string]*keyedLimiter
	limit    rate.Limit
	burst    int
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a limiter allowing rps requests per second
// with the given burst per key.
func NewKeyedRateLimiter(clock Clocker, rps float64, burst int) *KeyedRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		clock:    clock,
		limiters: make(map[string]*keyedLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request for the key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	now := krl.clock.Now()
	krl.mu.Lock()
	kl, ok := krl.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = kl
	}
	kl.lastSeen = now
	krl.mu.Unlock()
	return kl.limiter.AllowN(now, 1)
}

// Sweep evicts the buckets not used since idle and returns how many were dropped.
func (krl *KeyedRateLimiter) Sweep(idle time.Duration) int {
	cutoff := krl.clock.Now().Add(-idle)
	krl.mu.Lock()
	defer krl.mu.Unlock()
	n := 0
	for key, kl := range krl.limiters {
		if kl.lastSeen.Before(cutoff) {
			delete(krl.limiters, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}
