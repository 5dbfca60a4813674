// Package serverlite assembles the complete authentication stack on
// in-memory backends: real RSA keys, real token issuance and verification,
// the real HTTP router and middleware. Only the stores, the audit sink and
// the reset notifier are swapped for fakes, so end-to-end tests and local
// development run the production code paths without Postgres, Redis or
// Kafka.
package serverlite

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	appservice "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	domainService "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/crypto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/monitoring"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/ratelimit"
	httpiface "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/handlers"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/tests/fakes"
)

// Options tunes the assembled stack. The zero value gives production
// token lifetimes, bearer refresh transport and the default rate limit.
type Options struct {
	// RefreshTransport selects bearer or cookie refresh delivery.
	RefreshTransport constants.RefreshTransportMode

	// RateLimitThreshold caps login attempts per client per window.
	RateLimitThreshold int

	// RateLimitWindow is the login attempt window.
	RateLimitWindow time.Duration

	// TokenConfig overrides the issuance parameters when non-nil.
	TokenConfig *domainService.TokenServiceConfig

	// KeyConfig overrides the rotation policy when non-nil. Short
	// rotation intervals let tests cross rotation boundaries quickly.
	KeyConfig *crypto.KeyManagerConfig

	// Logger replaces the default silent logger.
	Logger logger.Logger
}

// Server 进程内完整认证栈
// Server is the assembled in-process stack. The exported fields give tests
// direct access to the seams: the directory to seed accounts, the notifier
// to read delivered reset tokens, the audit recorder to assert trails.
type Server struct {
	// Handler serves the full HTTP API.
	Handler http.Handler

	Auth        appservice.AuthAppService
	Tokens      domainService.TokenService
	Keys        domainService.KeyManager
	Users       *fakes.InMemoryUserDirectory
	Revocations *fakes.InMemoryRevocationStore
	Audit       *fakes.RecordingAuditService
	Notifier    *fakes.StubNotifier
	Limiter     *ratelimit.LocalRateLimiter

	hasher *crypto.BcryptHasher
	nextID int
}

// New wires the stack.
//
// Parameters:
//   - opts: assembly options, zero value for defaults
//
// Returns:
//   - *Server: the assembled stack, served via Handler
//   - error: master secret or bootstrap key creation failure
func New(opts Options) (*Server, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}

	// 1. Master secret and key manager over an in-memory store.
	secret := make([]byte, constants.MasterKeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.ErrKeyGenerationFailed("master secret generation failed").WithCause(err)
	}
	cipher, err := crypto.NewKeyCipher(secret)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	keys := crypto.NewKeyManager(fakes.NewInMemoryKeyStore(), cipher, opts.KeyConfig, metrics, log)
	if _, err := keys.EnsureKey(context.Background()); err != nil {
		return nil, err
	}

	// 2. Domain token service.
	tokenCfg := domainService.DefaultTokenServiceConfig()
	if opts.TokenConfig != nil {
		tokenCfg = *opts.TokenConfig
	}
	revocations := fakes.NewInMemoryRevocationStore()
	tokens := domainService.NewTokenDomainService(tokenCfg, keys, revocations, metrics, log)

	// 3. Application service over fakes.
	users := fakes.NewInMemoryUserDirectory()
	limiter := ratelimit.NewLocalRateLimiter(opts.RateLimitThreshold, opts.RateLimitWindow)
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)
	notifier := fakes.NewStubNotifier()
	audit := fakes.NewRecordingAuditService()
	auth := appservice.NewAuthAppService(tokens, users, limiter, hasher, notifier, audit, metrics, log)

	// 4. HTTP surface: real handlers, real middleware, real router.
	transport := opts.RefreshTransport
	if transport == "" {
		transport = constants.RefreshTransportBearer
	}
	handlerTokenCfg := config.TokenConfig{
		Issuer:           tokenCfg.Issuer,
		AccessTokenTTL:   int(tokenCfg.AccessTokenTTL.Seconds()),
		RefreshTokenTTL:  int(tokenCfg.RefreshTokenTTL.Seconds()),
		ResetTokenTTL:    int(tokenCfg.ResetTokenTTL.Seconds()),
		RefreshTransport: string(transport),
	}

	tracing, err := monitoring.NewTracingManager(config.TracingConfig{Enabled: false}, log)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(auth, handlerTokenCfg, log)
	jwksHandler := handlers.NewJWKSHandler(keys, log)
	healthHandler := handlers.NewHealthHandler(log, handlers.Probe{
		Name: "signing_key",
		Check: func(ctx context.Context) error {
			_, _, err := keys.SigningKey(ctx)
			return err
		},
	})

	router := httpiface.NewRouter(
		&config.Config{Token: handlerTokenCfg},
		log, authHandler, jwksHandler, healthHandler,
		tokens, tracing, metrics, registry,
	)

	return &Server{
		Handler:     router.Engine(),
		Auth:        auth,
		Tokens:      tokens,
		Keys:        keys,
		Users:       users,
		Revocations: revocations,
		Audit:       audit,
		Notifier:    notifier,
		Limiter:     limiter,
		hasher:      hasher,
	}, nil
}

// SeedUser registers an account with the given credentials and returns it.
// The password is hashed at the minimum bcrypt cost to keep tests fast.
func (s *Server) SeedUser(email, password string, tier constants.Tier) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	s.nextID++
	user := &models.User{
		ID:           fmt.Sprintf("user-%04d", s.nextID),
		Email:        email,
		PasswordHash: hash,
		Tier:         tier,
	}
	if err := s.Users.Save(context.Background(), user); err != nil {
		return nil, err
	}
	return user, nil
}
