package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/gateway"
)

type ModelHandler struct {
	service *gateway.Service
}

func NewModelHandler(service *gateway.Service) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListModels is GET /v1/models — the aggregated, cache-fronted catalog
// across every enabled provider.
func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.service.ListModels(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": models})
}

// RefreshModels is POST /v1/models/refresh — forces every adapter to
// recompute its catalog and repopulates the cache, returning a
// per-provider count so an operator can see the refresh actually hit
// every configured provider.
func (h *ModelHandler) RefreshModels(c *gin.Context) {
	result, err := h.service.RefreshModels(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
