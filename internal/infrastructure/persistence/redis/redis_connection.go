// Package redis provides Redis connection management and the Redis-backed
// revocation deny-list. A single address yields a standalone client, several
// addresses a cluster client; both are reached through the universal client.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ RedisConnectionManager = (*RedisConnection)(nil)

// RedisConnectionManager is the connection lifecycle surface consumed by
// stores, the rate limiter and the readiness probe.
type RedisConnectionManager interface {
	GetClient() redis.UniversalClient
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) (map[string]interface{}, error)
	Close() error
}

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config        config.RedisConfig
	client        redis.UniversalClient
	logger        logger.Logger
	isInitialized bool
}

// NewRedisConnection creates a new Redis connection manager instance.
//
// Parameters:
//   - cfg: Redis configuration
//   - log: Logger instance
//
// Returns:
//   - *RedisConnection: Initialized connection manager
func NewRedisConnection(cfg config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("redis"),
	}
}

// Connect establishes the Redis connection and validates connectivity.
//
// Returns:
//   - error: Connection establishment error if any
func (rc *RedisConnection) Connect() error {
	if rc.isInitialized {
		rc.logger.Warn(context.Background(), "Redis connection already initialized")
		return nil
	}

	opts := rc.buildOptions()
	rc.client = redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.logger.Error(ctx, "Redis ping failed", err,
			logger.Any("addrs", rc.config.Addresses),
		)
		_ = rc.client.Close()
		rc.client = nil
		return fmt.Errorf("redis connection failed: %w", err)
	}

	rc.isInitialized = true
	rc.logger.Info(ctx, "Redis connection established",
		logger.Any("addrs", rc.config.Addresses),
		logger.Int("pool_size", opts.PoolSize),
	)
	return nil
}

// buildOptions maps service configuration onto go-redis universal options,
// filling defaults for anything left unset.
func (rc *RedisConnection) buildOptions() *redis.UniversalOptions {
	addrs := rc.config.Addresses
	if len(addrs) == 0 {
		addrs = []string{"localhost:6379"}
	}

	poolSize := rc.config.PoolSize
	if poolSize == 0 {
		poolSize = 10
	}
	minIdle := rc.config.MinIdleConns
	if minIdle == 0 {
		minIdle = 2
	}
	dialTimeout := time.Duration(rc.config.DialTimeout) * time.Second
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}

	return &redis.UniversalOptions{
		Addrs:    addrs,
		Password: rc.config.Password,
		DB:       rc.config.DB,

		PoolSize:     poolSize,
		MinIdleConns: minIdle,

		DialTimeout:  dialTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	}
}

// GetClient returns the Redis client instance.
// It returns nil if the connection is not initialized.
//
// Returns:
//   - redis.UniversalClient: Redis client instance
func (rc *RedisConnection) GetClient() redis.UniversalClient {
	if !rc.isInitialized {
		return nil
	}
	return rc.client
}

// Ping checks Redis server connectivity.
//
// Parameters:
//   - ctx: Context for timeout control
//
// Returns:
//   - error: Connectivity check error if any
func (rc *RedisConnection) Ping(ctx context.Context) error {
	if !rc.isInitialized {
		return fmt.Errorf("redis connection not initialized")
	}

	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.logger.Error(ctx, "Redis ping failed", err)
		return err
	}
	return nil
}

// HealthCheck reports connectivity and pool statistics for the readiness
// endpoint.
//
// Parameters:
//   - ctx: Context for timeout control
//
// Returns:
//   - map[string]interface{}: Health status details
//   - error: Health check error if any
func (rc *RedisConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if !rc.isInitialized {
		return nil, fmt.Errorf("redis connection not initialized")
	}

	health := make(map[string]interface{})

	start := time.Now()
	err := rc.client.Ping(ctx).Err()
	latency := time.Since(start)

	health["connected"] = err == nil
	health["latency_ms"] = latency.Milliseconds()

	if err != nil {
		health["error"] = err.Error()
		return health, err
	}

	stats := rc.client.PoolStats()
	health["pool_hits"] = stats.Hits
	health["pool_misses"] = stats.Misses
	health["pool_timeouts"] = stats.Timeouts
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns

	return health, nil
}

// IsConnected returns whether the Redis connection is active.
//
// Returns:
//   - bool: True if connected and healthy
func (rc *RedisConnection) IsConnected() bool {
	if !rc.isInitialized {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return rc.client.Ping(ctx).Err() == nil
}

// Close gracefully closes the Redis connection and releases resources.
//
// Returns:
//   - error: Closure error if any
func (rc *RedisConnection) Close() error {
	if !rc.isInitialized {
		return nil
	}

	if err := rc.client.Close(); err != nil {
		rc.logger.Error(context.Background(), "Failed to close Redis connection", err)
		return err
	}

	rc.isInitialized = false
	rc.logger.Info(context.Background(), "Redis connection closed")
	return nil
}
