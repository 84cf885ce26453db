package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/model-router-api/internal/analytics"
	"github.com/nulzo/model-router-api/internal/cache"
	cachememory "github.com/nulzo/model-router-api/internal/cache/memory"
	cacheredis "github.com/nulzo/model-router-api/internal/cache/redis"
	"github.com/nulzo/model-router-api/internal/config"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/gateway"
	"github.com/nulzo/model-router-api/internal/logger"
	otelinit "github.com/nulzo/model-router-api/internal/platform/otel"
	"github.com/nulzo/model-router-api/internal/registry"
	"github.com/nulzo/model-router-api/internal/server"
	v1 "github.com/nulzo/model-router-api/internal/server/v1"
	"github.com/nulzo/model-router-api/internal/store/sqlite"
	"go.uber.org/zap"

	// Import adapters to trigger their init() factory registration.
	_ "github.com/nulzo/model-router-api/internal/provider/anthropic"
	_ "github.com/nulzo/model-router-api/internal/provider/gemini"
	_ "github.com/nulzo/model-router-api/internal/provider/ollama"
	_ "github.com/nulzo/model-router-api/internal/provider/openai"
)

// AppVersion is overridable at build time via -ldflags, matching the
// teacher's cmd/prism.go versioning convention.
var AppVersion = "v0.0.0"

func main() {
	v1.Version = AppVersion

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	logger.Initialize(env)
	defer logger.Sync()
	log := logger.Get()

	domain.InitValidator()

	cfg, err := config.Load(env)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	shutdownTracer, err := otelinit.InitTracer("model-router-api", log, os.Stdout)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}

	var cacheService cache.Service
	if cfg.Redis.Enabled {
		cacheService = cacheredis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		log.Info("cache backend: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		cacheService = cachememory.New()
		log.Info("cache backend: in-process memory")
	}

	var ingestor *analytics.Ingestor
	var analyticsSvc *analytics.Service
	if cfg.Analytics.Enabled {
		db, err := sqlite.Open(cfg.Analytics.DSN)
		if err != nil {
			log.Fatal("failed to open analytics store", zap.Error(err))
		}
		store := sqlite.NewRequestLogStore(db)
		ingestor = analytics.NewIngestor(log, store)
		analyticsSvc = analytics.NewService(store)
	} else {
		analyticsSvc = analytics.NewService(noopStore{})
		log.Info("analytics disabled")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ingestor != nil {
		ingestor.Start(rootCtx)
	}

	reg := registry.New()
	gateway.Bootstrap(rootCtx, reg, cfg.Server.Providers, cfg.Server.Routes, log)

	svc := gateway.New(reg, cacheService, ingestor, log, cfg.Server.Providers)
	srv := server.New(cfg.Server, reg, svc, analyticsSvc, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if ingestor != nil {
		ingestor.Stop()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// noopStore backs the analytics Service when the SQLite sink is
// disabled, so GET /requests/stats still returns an empty result
// rather than requiring a nil check at every call site.
type noopStore struct{}

func (noopStore) LogRequest(ctx context.Context, entry analytics.RequestLogEntry) error { return nil }
func (noopStore) DailyStats(ctx context.Context, days int) ([]analytics.DailyStat, error) {
	return nil, nil
}
