package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Probe is one named readiness check against a dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// probeTimeout bounds how long a single readiness probe may take
const probeTimeout = 3 * time.Second

// HealthHandler serves the liveness and readiness endpoints. Liveness only
// confirms the process answers; readiness runs every registered dependency
// probe and fails when any dependency does.
type HealthHandler struct {
	probes []Probe
	logger logger.Logger
}

// NewHealthHandler creates the handler with its dependency probes.
func NewHealthHandler(log logger.Logger, probes ...Probe) *HealthHandler {
	return &HealthHandler{
		probes: probes,
		logger: log.WithComponent("health_handler"),
	}
}

// Liveness answers as long as the process serves requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness runs all probes concurrently and reports per-dependency status.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := h.runProbes(c.Request.Context())

	status := "ready"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *HealthHandler) runProbes(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	checks := make(map[string]string, len(h.probes))

	wg.Add(len(h.probes))
	for _, probe := range h.probes {
		go func(p Probe) {
			defer wg.Done()
			status := "ok"
			if err := p.Check(ctx); err != nil {
				status = "error: " + err.Error()
				h.logger.Warn(ctx, "Readiness probe failed",
					logger.String("probe", p.Name), logger.ErrorField(err))
			}
			mu.Lock()
			checks[p.Name] = status
			mu.Unlock()
		}(probe)
	}
	wg.Wait()
	return checks
}
