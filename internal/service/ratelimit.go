package service

import (
	"context"
	"sync"
	"time"
)

// RateLimiter serializes outbound registry calls to a minimum interval.
// All client calls share one limiter, so concurrent workers queue on the
// throttle instead of overwhelming the registry. The zero interval disables
// waiting, which is what tests inject.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time
}

// NewRateLimiter creates a limiter enforcing the given minimum interval
// between calls.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the caller may issue the next request or the context is
// cancelled. The slot is claimed before sleeping, so concurrent callers
// space out rather than thundering through together; the mutex is held only
// to compute the wait, never across the network call.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	next := l.lastCall.Add(l.interval)
	if next.Before(now) {
		next = now
	}
	l.lastCall = next
	l.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
