// Package server assembles the gin engine: middleware chain, route
// table, and graceful start/stop.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-router-api/internal/analytics"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/gateway"
	"github.com/nulzo/model-router-api/internal/registry"
	"github.com/nulzo/model-router-api/internal/server/middleware"
	v1 "github.com/nulzo/model-router-api/internal/server/v1"
	"go.uber.org/zap"
)

type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

func New(cfg domain.ServerConfig, reg *registry.Registry, svc *gateway.Service, analyticsSvc *analytics.Service, logger *zap.Logger) *Server {
	engine := gin.New()
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Tracing("model-router-api"))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())
	engine.Use(middleware.ErrorHandler(logger))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	engine.Use(limiter.Middleware())

	chatHandler := v1.NewChatHandler(svc, cfg.MaxTokensCeiling)
	modelHandler := v1.NewModelHandler(svc)
	healthHandler := v1.NewHealthHandler(svc, reg, analyticsSvc)

	registerRoutes(engine, cfg.APIKeys, chatHandler, modelHandler, healthHandler)

	return &Server{
		engine: engine,
		logger: logger,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: 0, // streaming responses must not be cut off
		},
	}
}

// Start blocks until the underlying http.Server stops, which on a
// clean shutdown happens via Shutdown below returning http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
