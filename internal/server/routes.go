package server

import (
	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/server/middleware"
	v1 "github.com/nulzo/model-router-api/internal/server/v1"
)

func registerRoutes(engine *gin.Engine, apiKeys []string, chat *v1.ChatHandler, models *v1.ModelHandler, health *v1.HealthHandler) {
	engine.GET("/health", health.Health)
	engine.GET("/ready", health.Ready)

	authed := engine.Group("/")
	authed.Use(middleware.Auth(apiKeys))

	authed.POST("/v1/messages", chat.CreateMessage)
	authed.GET("/v1/models", models.ListModels)
	authed.POST("/v1/models/refresh", models.RefreshModels)
	authed.GET("/health/providers", health.ProviderHealth)
	authed.GET("/requests/stats", health.RequestStats)
}
