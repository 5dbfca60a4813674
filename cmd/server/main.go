// The climbauth server binary. It assembles the configured storage,
// revocation and rate limit backends under the domain services and serves
// the HTTP API, the gRPC health endpoint and the background workers until
// a termination signal arrives.
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application"
	appservice "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	domainrepo "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	domainservice "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/audit"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/consumers"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/crypto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/kms"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/monitoring"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/notify"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/memory"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/postgres"
	redisstore "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/redis"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/ratelimit"
	grpciface "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/grpc"
	httpiface "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/handlers"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("climbauth: %v", err)
	}
}

func run() error {
	// 1. Configuration and logging. A bootstrap logger covers the window
	// before the configured one exists; the reload targets are bound once
	// the real logger and limiter are built.
	bootLog, err := monitoring.NewZapLogger(config.LogConfig{Level: "info"})
	if err != nil {
		return fmt.Errorf("bootstrap logger: %w", err)
	}
	reload := &reloadTargets{}
	cfg, err := config.LoadAndWatch(bootLog, reload.apply)
	if err != nil {
		return err
	}
	log, err := monitoring.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Observability
	tracing, err := monitoring.NewTracingManager(cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "tracing shutdown failed", logger.ErrorField(err))
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	// 3. Master key and at-rest cipher
	secret, err := masterSecret(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("master key: %w", err)
	}
	cipher, err := crypto.NewKeyCipher(secret)
	if err != nil {
		return fmt.Errorf("key cipher: %w", err)
	}

	// 4. Storage backends
	gormDB, err := postgres.NewGormDB(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := postgres.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	keyStore := postgres.NewKeyStore(gormDB)

	var pgPool *postgres.DBConnection
	var users domainrepo.UserDirectory
	if cfg.Database.Driver == "postgres" {
		pgPool, err = postgres.NewDBConnection(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database pool: %w", err)
		}
		defer pgPool.Close()
		users = postgres.NewUserDirectory(pgPool, log)
	} else {
		users = postgres.NewGormUserDirectory(gormDB, log)
	}

	var redisConn *redisstore.RedisConnection
	if cfg.Redis.Enabled {
		redisConn = redisstore.NewRedisConnection(cfg.Redis, log)
		if err := redisConn.Connect(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisConn.Close()
	}

	var revocations domainrepo.RevocationStore
	switch cfg.Revocation.Backend {
	case "redis":
		revocations = redisstore.NewRevocationStore(redisConn.GetClient(), log)
	case "postgres":
		revocations = postgres.NewRevocationStore(pgPool, log)
	default:
		revocations = memory.NewRevocationStore()
	}

	var limiter domainservice.RateLimiter
	var retune retunable
	var counters application.AttemptCounterCleaner
	if cfg.RateLimit.Backend == "redis" {
		rrl := ratelimit.NewRedisRateLimiter(redisConn.GetClient(), cfg.RateLimit, log)
		limiter, retune = rrl, rrl
	} else {
		local := ratelimit.NewLocalRateLimiter(cfg.RateLimit.Threshold, cfg.RateLimit.Window())
		limiter, retune = local, local
		counters = local
	}
	reload.bind(log, retune)

	// 5. Domain and application services
	keys := crypto.NewKeyManager(keyStore, cipher, &crypto.KeyManagerConfig{
		RotationInterval:   cfg.KeyRotation.Interval(),
		GracePeriod:        cfg.KeyRotation.Grace(),
		RetentionMargin:    constants.KeyRetentionMargin,
		RSAKeySize:         cfg.KeyRotation.RSAKeySize,
		PrivateKeyCacheTTL: constants.PrivateKeyCacheTTL,
	}, metrics, log)
	if _, err := keys.EnsureKey(ctx); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}

	tokens := domainservice.NewTokenDomainService(domainservice.TokenServiceConfig{
		Issuer:          cfg.Token.Issuer,
		AccessTokenTTL:  cfg.Token.AccessTTL(),
		RefreshTokenTTL: cfg.Token.RefreshTTL(),
		ResetTokenTTL:   cfg.Token.ResetTTL(),
		ClockSkew:       cfg.Token.Skew(),
	}, keys, revocations, metrics, log)

	auditSink, err := audit.New(cfg.Audit, metrics, log)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	defer func() {
		if closer, ok := auditSink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn(context.Background(), "audit sink close failed", logger.ErrorField(err))
			}
		}
	}()

	authService := appservice.NewAuthAppService(
		tokens, users, limiter,
		crypto.NewBcryptHasher(0),
		notify.NewLogNotifier(log),
		auditSink, metrics, log,
	)

	// 6. Interface layer
	probes := []handlers.Probe{
		{Name: "signing_key", Check: func(ctx context.Context) error {
			_, _, err := keys.SigningKey(ctx)
			return err
		}},
		{Name: "database", Check: func(ctx context.Context) error {
			if pgPool != nil {
				return pgPool.Ping(ctx)
			}
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
	}
	if redisConn != nil {
		probes = append(probes, handlers.Probe{Name: "redis", Check: redisConn.Ping})
	}

	router := httpiface.NewRouter(cfg, log,
		handlers.NewAuthHandler(authService, cfg.Token, log),
		handlers.NewJWKSHandler(keys, log),
		handlers.NewHealthHandler(log, probes...),
		tokens, tracing, metrics, registry,
	)

	// 7. Servers and background workers under one errgroup. Cancelling the
	// signal context drains them all.
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return router.Run(groupCtx)
	})
	group.Go(func() error {
		return grpciface.NewServer(cfg.Server.GRPCAddr(), log).Run(groupCtx)
	})
	group.Go(func() error {
		return application.NewRotationScheduler(keys, auditSink, log, cfg.KeyRotation.CheckInterval()).Run(groupCtx)
	})
	group.Go(func() error {
		return application.NewRetentionJanitor(revocations, keys, counters, auditSink, log, cfg.KeyRotation.PurgeInterval()).Run(groupCtx)
	})
	if cfg.Audit.ConsumerEnabled {
		consumer := consumers.NewRevocationConsumer(cfg.Audit, revocations, metrics, log)
		group.Go(func() error {
			consumer.Start(groupCtx)
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			consumer.Stop()
			return nil
		})
	}

	log.Info(ctx, "climbauth started",
		logger.String("http_addr", cfg.Server.Addr()),
		logger.String("grpc_addr", cfg.Server.GRPCAddr()),
		logger.String("database_driver", cfg.Database.Driver),
		logger.String("revocation_backend", cfg.Revocation.Backend),
		logger.String("rate_limit_backend", cfg.RateLimit.Backend),
		logger.String("audit_sink", cfg.Audit.Sink),
	)

	err = group.Wait()
	log.Info(context.Background(), "climbauth stopped")
	return err
}

// retunable is the hot-reload slice of a rate limiter.
type retunable interface {
	Retune(threshold int, window time.Duration)
}

// reloadTargets holds the components that accept config changes at
// runtime. The watch callback may fire before the real logger and limiter
// exist, so targets are bound behind a mutex.
type reloadTargets struct {
	mu      sync.Mutex
	log     logger.Logger
	limiter retunable
}

func (t *reloadTargets) bind(log logger.Logger, limiter retunable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = log
	t.limiter = limiter
}

// apply pushes the hot-reloadable tunables from a re-read config tree
// into the live components. Everything else keeps its boot-time value.
func (t *reloadTargets) apply(cfg *config.Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log != nil {
		t.log.SetLevel(constants.LogLevel(cfg.Log.Level))
	}
	if t.limiter != nil {
		t.limiter.Retune(cfg.RateLimit.Threshold, cfg.RateLimit.Window())
	}
}

// masterSecret resolves the 32-byte at-rest secret from the configured
// provider.
func masterSecret(ctx context.Context, cfg *config.Config, log logger.Logger) ([]byte, error) {
	provider, err := kms.NewProvider(cfg.MasterKey, cfg.Vault, log)
	if err != nil {
		return nil, err
	}

	resolveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return provider.MasterSecret(resolveCtx)
}
