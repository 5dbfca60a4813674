package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/crypto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/kms"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/monitoring"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/postgres"
	redisstore "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/redis"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// adminContext carries the wired storage-facing services the admin commands
// act on, plus the close function releasing their connections. No HTTP
// server or background worker is started; commands talk to the stores the
// running service uses.
type adminContext struct {
	cfg         *config.Config
	log         logger.Logger
	keys        service.KeyManager
	keyStore    repository.KeyStore
	revocations repository.RevocationStore
	close       func()
}

// newAdminContext loads the server's configuration tree and wires the
// stores. Revocations stay nil when the configured backend is process-local
// to the server; commands that need them report that instead of writing to
// a store nobody reads.
func newAdminContext(ctx context.Context) (*adminContext, error) {
	log, err := monitoring.NewZapLogger(config.LogConfig{Level: "warn"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	cfg, err := config.LoadConfig(log)
	if err != nil {
		return nil, err
	}

	provider, err := kms.NewProvider(cfg.MasterKey, cfg.Vault, log)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	secret, err := provider.MasterSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	cipher, err := crypto.NewKeyCipher(secret)
	if err != nil {
		return nil, fmt.Errorf("key cipher: %w", err)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	gormDB, err := postgres.NewGormDB(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		closers = append(closers, func() { _ = sqlDB.Close() })
	}
	if err := postgres.Migrate(gormDB); err != nil {
		closeAll()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	keyStore := postgres.NewKeyStore(gormDB)

	var revocations repository.RevocationStore
	switch cfg.Revocation.Backend {
	case "redis":
		conn := redisstore.NewRedisConnection(cfg.Redis, log)
		if err := conn.Connect(); err != nil {
			closeAll()
			return nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		revocations = redisstore.NewRevocationStore(conn.GetClient(), log)
	case "postgres":
		pool, err := postgres.NewDBConnection(ctx, cfg.Database, log)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("database pool: %w", err)
		}
		closers = append(closers, pool.Close)
		revocations = postgres.NewRevocationStore(pool, log)
	}

	keys := crypto.NewKeyManager(keyStore, cipher, &crypto.KeyManagerConfig{
		RotationInterval:   cfg.KeyRotation.Interval(),
		GracePeriod:        cfg.KeyRotation.Grace(),
		RetentionMargin:    constants.KeyRetentionMargin,
		RSAKeySize:         cfg.KeyRotation.RSAKeySize,
		PrivateKeyCacheTTL: constants.PrivateKeyCacheTTL,
	}, monitoring.NewMetrics(prometheus.NewRegistry()), log)

	return &adminContext{
		cfg:         cfg,
		log:         log,
		keys:        keys,
		keyStore:    keyStore,
		revocations: revocations,
		close:       closeAll,
	}, nil
}

// requireRevocations returns the revocation store or explains why the
// configured backend cannot be reached from a one-shot process.
func (ac *adminContext) requireRevocations() (repository.RevocationStore, error) {
	if ac.revocations == nil {
		return nil, fmt.Errorf(
			"revocation backend %q lives inside the server process; revoke through the /v1/auth/revoke endpoint instead",
			ac.cfg.Revocation.Backend)
	}
	return ac.revocations, nil
}
