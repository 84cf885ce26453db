package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/analytics"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/gateway"
	"github.com/nulzo/model-router-api/internal/registry"
)

const healthProbeTimeout = 3 * time.Second

// Version is the gateway's own build version, reported by GET /health.
var Version = "v0.0.0"

type HealthHandler struct {
	service   *gateway.Service
	registry  *registry.Registry
	analytics *analytics.Service
	startedAt time.Time
}

func NewHealthHandler(service *gateway.Service, reg *registry.Registry, analyticsSvc *analytics.Service) *HealthHandler {
	return &HealthHandler{service: service, registry: reg, analytics: analyticsSvc, startedAt: time.Now()}
}

// Health is GET /health — a liveness check with no upstream calls.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        Version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready is GET /ready — readiness gated on at least one provider being
// registered in the current snapshot.
func (h *HealthHandler) Ready(c *gin.Context) {
	snap := h.registry.Load()
	if len(snap.Adapters) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "no providers registered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// ProviderHealth is GET /health/providers — probes every registered
// adapter concurrently and reports per-provider liveness.
func (h *HealthHandler) ProviderHealth(c *gin.Context) {
	statuses := h.service.HealthAll(c.Request.Context(), healthProbeTimeout)

	overall := domain.HealthHealthy
	for _, s := range statuses {
		if s.State == domain.HealthUnhealthy {
			overall = domain.HealthDegraded
		}
	}
	if len(statuses) == 0 {
		overall = domain.HealthUnhealthy
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"providers": statuses,
	})
}

// RequestStats is GET /requests/stats — daily usage rollups backed by
// the analytics store, defaulting to a 7 day window.
func (h *HealthHandler) RequestStats(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	stats, err := h.analytics.GetUsageOverview(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(domain.InternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
