// Package postgres provides the SQL persistence layer: a pgx connection
// pool for the revocation and user stores, and a GORM handle (Postgres in
// production, SQLite for single-node profiles and tests) for the signing
// key store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	config config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection creates a new PostgreSQL connection manager and performs
// an initial connectivity check.
//
// Parameters:
//   - ctx: context for connection timeout control
//   - cfg: database configuration including credentials and pool settings
//   - log: logger instance for connection lifecycle events
//
// Returns:
//   - *DBConnection: initialized connection manager
//   - error: connection establishment error if any
func NewDBConnection(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	log = log.WithComponent("postgres")
	log.Info(ctx, "initializing PostgreSQL connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		log.Error(ctx, "failed to parse database connection string", err)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Minute
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = time.Duration(cfg.MaxConnIdleTime) * time.Minute
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		log.Error(ctx, "failed to create database connection pool", err)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	dbConn := &DBConnection{
		pool:   pool,
		config: cfg,
		logger: log,
	}

	if err := dbConn.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "PostgreSQL connection pool initialized",
		logger.Int64("total_conns", int64(pool.Stat().TotalConns())),
	)
	return dbConn, nil
}

// Pool returns the underlying pgxpool.Pool for repository implementations.
//
// Returns:
//   - *pgxpool.Pool: active connection pool instance
func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies database connectivity and responsiveness.
//
// Parameters:
//   - ctx: context for timeout control
//
// Returns:
//   - error: connection error if the database is unreachable
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.logger.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database connection failed: %w", err)
	}

	latency := time.Since(start)
	if latency > 100*time.Millisecond {
		db.logger.Warn(ctx, "high database latency",
			logger.Duration("latency_ms", latency),
		)
	}
	return nil
}

// HealthCheck reports pool statistics for the readiness endpoint.
//
// Parameters:
//   - ctx: context for timeout control
//
// Returns:
//   - map[string]interface{}: health metrics including pool statistics
//   - error: health check error if any
func (db *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	stats := db.pool.Stat()
	health := map[string]interface{}{
		"status":               "healthy",
		"total_connections":    stats.TotalConns(),
		"idle_connections":     stats.IdleConns(),
		"acquired_connections": stats.AcquiredConns(),
		"max_connections":      db.config.MaxConns,
	}

	if stats.IdleConns() == 0 && db.config.MaxConns > 0 && stats.TotalConns() >= int32(db.config.MaxConns) {
		db.logger.Warn(ctx, "connection pool exhausted",
			logger.Int64("total_conns", int64(stats.TotalConns())),
			logger.Int("max_conns", db.config.MaxConns),
		)
		health["warning"] = "connection_pool_near_limit"
	}

	return health, nil
}

// Close gracefully shuts down the connection pool. It should be called
// during application shutdown.
func (db *DBConnection) Close() {
	db.logger.Info(context.Background(), "closing PostgreSQL connection pool")
	db.pool.Close()
}
