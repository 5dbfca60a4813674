// Package http assembles the gin engine, wires the middleware chain and
// routes, and runs the HTTP server under the caller's context.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/monitoring"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/handlers"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/middleware"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine *gin.Engine
	server *http.Server
	config *config.Config
	logger logger.Logger
}

// NewRouter assembles the engine with the full middleware chain and all
// routes registered.
//
// Parameters:
//   - cfg: service configuration
//   - log: structured logger
//   - auth: authentication endpoints handler
//   - jwks: key set document handler
//   - health: liveness and readiness handler
//   - verifier: access token verifier guarding the session route
//   - tracing: span source for the observability middleware
//   - metrics: request metrics collectors
//   - gatherer: registry backing the /metrics endpoint
//
// Returns:
//   - *Router: the assembled router, ready to Run
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	auth *handlers.AuthHandler,
	jwks *handlers.JWKSHandler,
	health *handlers.HealthHandler,
	verifier middleware.AccessVerifier,
	tracing *monitoring.TracingManager,
	metrics *monitoring.Metrics,
	gatherer prometheus.Gatherer,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestContext())
	engine.Use(middleware.Observability(tracing, metrics, log))

	if len(cfg.Server.CORSOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	engine.GET("/healthz", health.Liveness)
	engine.GET("/readyz", health.Readiness)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if cfg.Server.EnablePprof {
		pprof.Register(engine)
	}

	engine.GET("/.well-known/jwks.json", middleware.ETag(), jwks.GetJWKS)

	v1 := engine.Group("/v1/auth")
	{
		v1.POST("/login", auth.Login)
		v1.POST("/refresh", auth.Refresh)
		v1.POST("/logout", auth.Logout)
		v1.POST("/revoke", auth.Revoke)
		v1.POST("/introspect", auth.Introspect)
		v1.GET("/session", middleware.RequireAccessToken(verifier, log), auth.Session)

		reset := v1.Group("/password-reset")
		{
			reset.POST("/request", auth.RequestPasswordReset)
			reset.POST("/complete", auth.ResetPassword)
		}
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})

	return &Router{
		engine: engine,
		config: cfg,
		logger: log.WithComponent("http_server"),
	}
}

// Engine exposes the assembled engine for in-process test harnesses.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
// It blocks, making it suitable for an errgroup.
func (r *Router) Run(ctx context.Context) error {
	r.server = &http.Server{
		Addr:           r.config.Server.Addr(),
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.ListenAndServe()
	}()
	r.logger.Info(ctx, "HTTP server listening", logger.String("addr", r.server.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		if err := r.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		r.logger.Info(ctx, "HTTP server stopped")
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
