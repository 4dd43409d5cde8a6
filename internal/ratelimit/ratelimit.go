// Package ratelimit gates how quickly backend streams may be started.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	defaultRequests    = 60
	defaultWindow      = time.Minute
	defaultMinInterval = 100 * time.Millisecond
	minRefillRate      = time.Microsecond
)

// RateLimiter is a token bucket with an additional minimum spacing between
// consecutive acquisitions. A nil *RateLimiter never blocks.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      int
	maxTokens   int
	refillRate  time.Duration // time to earn one token
	lastRefill  time.Time
	minInterval time.Duration
	lastRequest time.Time
}

// New allows maxRequests stream starts per window, spaced at least
// minInterval apart. Non-positive arguments fall back to 60 per minute and
// 100ms.
func New(maxRequests int, window time.Duration, minInterval time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = defaultRequests
	}
	if window <= 0 {
		window = defaultWindow
	}
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	return &RateLimiter{
		tokens:      maxRequests,
		maxTokens:   maxRequests,
		refillRate:  max(window/time.Duration(maxRequests), minRefillRate),
		lastRefill:  time.Now(),
		minInterval: minInterval,
	}
}

// Wait blocks until a stream may start or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for {
		now := time.Now()
		rl.refill(now)

		var wait time.Duration
		if !rl.lastRequest.IsZero() {
			wait = rl.minInterval - now.Sub(rl.lastRequest)
		}
		if rl.tokens <= 0 {
			wait = max(wait, rl.lastRefill.Add(rl.rate()).Sub(now), rl.rate())
		}
		if wait <= 0 {
			rl.tokens--
			rl.lastRequest = now
			return nil
		}

		rl.mu.Unlock()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			rl.mu.Lock()
			return fmt.Errorf("rate limit wait cancelled: %w", ctx.Err())
		case <-timer.C:
		}
		rl.mu.Lock()
	}
}

// Available reports how many stream starts could proceed without waiting for
// a refill.
func (rl *RateLimiter) Available() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill(time.Now())
	return rl.tokens
}

func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed <= 0 {
		return
	}
	if add := int(elapsed / rl.rate()); add > 0 {
		rl.tokens = min(rl.maxTokens, rl.tokens+add)
		rl.lastRefill = now
	}
}

// rate guards against limiters built without New.
func (rl *RateLimiter) rate() time.Duration {
	if rl.refillRate <= 0 {
		return minRefillRate
	}
	return rl.refillRate
}
