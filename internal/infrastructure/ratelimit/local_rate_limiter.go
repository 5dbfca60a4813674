package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

var _ service.RateLimiter = (*LocalRateLimiter)(nil)

// attemptWindow tracks one identifier's counter within the current window.
type attemptWindow struct {
	count   int
	resetAt time.Time
}

// LocalRateLimiter is an in-process fixed-window limiter. Each instance
// counts independently, so a multi-instance deployment enforces a looser
// aggregate limit; the Redis limiter is the distributed option.
type LocalRateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*attemptWindow
	threshold int
	window    time.Duration
}

// NewLocalRateLimiter creates an in-process fixed-window rate limiter.
//
// Parameters:
//   - threshold: attempts allowed per window
//   - window: window length
//
// Returns:
//   - *LocalRateLimiter: initialized rate limiter
func NewLocalRateLimiter(threshold int, window time.Duration) *LocalRateLimiter {
	if threshold <= 0 {
		threshold = constants.RateLimitThreshold
	}
	if window <= 0 {
		window = constants.RateLimitWindow
	}

	return &LocalRateLimiter{
		windows:   make(map[string]*attemptWindow),
		threshold: threshold,
		window:    window,
	}
}

// Allow counts an attempt against the identifier. The window starts at the
// first counted attempt and restarts once it elapses.
func (rl *LocalRateLimiter) Allow(ctx context.Context, identifier string) (*service.RateLimitDecision, error) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		w = &attemptWindow{resetAt: now.Add(rl.window)}
		rl.windows[identifier] = w
	}
	w.count++

	decision := &service.RateLimitDecision{
		Allowed:   w.count <= rl.threshold,
		Remaining: rl.threshold - w.count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = w.resetAt.Sub(now)
	}
	return decision, nil
}

// Reset clears the counter for an identifier.
func (rl *LocalRateLimiter) Reset(ctx context.Context, identifier string) error {
	rl.clear(identifier)
	return nil
}

// Retune replaces the threshold and window for decisions from now on.
// Windows already in progress keep their original expiry. Non-positive
// values leave the current setting unchanged.
func (rl *LocalRateLimiter) Retune(threshold int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if threshold > 0 {
		rl.threshold = threshold
	}
	if window > 0 {
		rl.window = window
	}
}

func (rl *LocalRateLimiter) clear(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.windows, identifier)
}

// Cleanup removes counters whose window has already elapsed and returns
// how many were removed. The retention janitor calls this periodically so
// the map does not grow with one entry per client forever.
func (rl *LocalRateLimiter) Cleanup() int {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for identifier, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, identifier)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked identifiers.
func (rl *LocalRateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}
