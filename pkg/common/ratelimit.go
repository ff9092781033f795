// Package common holds small building blocks shared across services.
package common

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket whose rate can be retuned at runtime, for
// example from quota headers returned by a downstream service.
type RateLimiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
}

// NewRateLimiter allows rps requests per second with bursts of up to burst.
// A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.limiter.Wait(ctx)
}

// UpdateLimits retunes the limiter.
func (rl *RateLimiter) UpdateLimits(rps float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiter.SetLimit(rate.Limit(rps))
	rl.limiter.SetBurst(max(burst, 1))
}

// Limits returns the current rate and burst.
func (rl *RateLimiter) Limits() (float64, int) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return float64(rl.limiter.Limit()), rl.limiter.Burst()
}
