// Package ratelimit bounds failed login attempts per client identifier
// within a fixed window. The Redis implementation enforces the window
// across instances; the local implementation covers single-node profiles
// and serves as the fallback when Redis is unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ service.RateLimiter = (*RedisRateLimiter)(nil)

// fixedWindowScript counts an attempt and returns {count, remaining_ms}.
// The window TTL is set in the same script invocation as the first
// increment, so a counter can never exist without an expiry. The PTTL
// re-check guards counters left over from a FLUSH or manual edit.
const fixedWindowScript = `
local key = KEYS[1]
local window_ms = tonumber(ARGV[1])

local count = redis.call('INCR', key)
if count == 1 then
    redis.call('PEXPIRE', key, window_ms)
end

local ttl = redis.call('PTTL', key)
if ttl < 0 then
    redis.call('PEXPIRE', key, window_ms)
    ttl = window_ms
end

return {count, ttl}
`

// RedisRateLimiter enforces the attempt window in Redis so all instances
// share one counter per identifier. When Redis cannot be reached the local
// fixed-window limiter takes over; the limit is never failed open for
// credential attempts.
type RedisRateLimiter struct {
	client   redis.UniversalClient
	fallback *LocalRateLimiter
	logger   logger.Logger

	mu        sync.RWMutex
	threshold int
	window    time.Duration
}

// NewRedisRateLimiter creates a Redis-backed rate limiter.
//
// Parameters:
//   - client: connected Redis client
//   - cfg: rate limit configuration (threshold, window)
//   - log: logger instance
//
// Returns:
//   - *RedisRateLimiter: initialized rate limiter
func NewRedisRateLimiter(client redis.UniversalClient, cfg config.RateLimitConfig, log logger.Logger) *RedisRateLimiter {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = constants.RateLimitThreshold
	}
	window := cfg.Window()
	if window <= 0 {
		window = constants.RateLimitWindow
	}

	return &RedisRateLimiter{
		client:    client,
		threshold: threshold,
		window:    window,
		fallback:  NewLocalRateLimiter(threshold, window),
		logger:    log.WithComponent("rate_limiter"),
	}
}

func rateLimitKey(identifier string) string {
	return constants.RedisPrefixRateLimit + identifier
}

// Allow counts an attempt and reports whether it is within the limit. The
// count and window TTL are maintained by a single Lua script, so concurrent
// attempts from several instances stay consistent.
func (rl *RedisRateLimiter) Allow(ctx context.Context, identifier string) (*service.RateLimitDecision, error) {
	if identifier == "" {
		return nil, errors.ErrInvalidRequest("rate limit identifier must not be empty")
	}

	rl.mu.RLock()
	threshold, window := rl.threshold, rl.window
	rl.mu.RUnlock()

	result, err := rl.client.Eval(ctx, fixedWindowScript,
		[]string{rateLimitKey(identifier)},
		window.Milliseconds(),
	).Result()
	if err != nil {
		rl.logger.Warn(ctx, "redis rate limit unavailable, enforcing local window",
			logger.ErrorField(err),
		)
		return rl.fallback.Allow(ctx, identifier)
	}

	count, ttl, err := parseWindowReply(result)
	if err != nil {
		return nil, errors.ErrServerError(err.Error())
	}

	decision := &service.RateLimitDecision{
		Allowed:   count <= int64(threshold),
		Remaining: threshold - int(count),
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return decision, nil
}

// Retune replaces the threshold and window for decisions from now on,
// including the local fallback's. Non-positive values leave the current
// setting unchanged.
func (rl *RedisRateLimiter) Retune(threshold int, window time.Duration) {
	rl.mu.Lock()
	if threshold > 0 {
		rl.threshold = threshold
	}
	if window > 0 {
		rl.window = window
	}
	rl.mu.Unlock()

	rl.fallback.Retune(threshold, window)
}

// Reset clears the counter for an identifier after a successful
// authentication.
func (rl *RedisRateLimiter) Reset(ctx context.Context, identifier string) error {
	rl.fallback.clear(identifier)

	if err := rl.client.Del(ctx, rateLimitKey(identifier)).Err(); err != nil {
		return errors.ErrStorageFailure("ratelimit.reset", err)
	}
	return nil
}

// parseWindowReply unpacks the {count, ttl_ms} array returned by the
// window script.
func parseWindowReply(reply interface{}) (int64, int64, error) {
	values, ok := reply.([]interface{})
	if !ok || len(values) < 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply %T", reply)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected count type %T", values[0])
	}
	ttl, ok := values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected ttl type %T", values[1])
	}
	return count, ttl, nil
}
