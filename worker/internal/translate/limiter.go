package translate

import (
	"context"
	"sync"
	"time"
)

// rateLimiter paces calls to the translation service by spacing them at
// least one interval apart. A nil limiter (rps <= 0) never blocks.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newRateLimiter(rps float64) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		return nil
	}
	return &rateLimiter{interval: interval}
}

// Wait blocks until this caller's slot arrives or the context is canceled.
// Concurrent callers are serialized in arrival order at the mutex.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	if r.next.Before(now) {
		r.next = now
	}
	delay := r.next.Sub(now)
	r.next = r.next.Add(r.interval)
	r.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
