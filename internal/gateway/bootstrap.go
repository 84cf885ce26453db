package gateway

import (
	"context"
	"time"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
	"github.com/nulzo/model-router-api/internal/registry"
	"go.uber.org/zap"
)

const bootstrapHealthTimeout = 5 * time.Second

// Bootstrap constructs an adapter for every enabled provider config,
// probes its health with a short timeout, and publishes only the
// providers that pass into the registry. A provider that fails its
// probe is skipped with a warning rather than registered in a state
// that will fail every request it's routed — the original Rust
// implementation and this gateway's teacher both gate registration on
// a startup health probe for exactly this reason.
func Bootstrap(ctx context.Context, reg *registry.Registry, configs []domain.ProviderConfig, routes []domain.RouteConfig, logger *zap.Logger) {
	adapters := make(map[string]provider.Adapter)
	types := make(map[string]string)
	var order []string

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		a, err := provider.Build(cfg)
		if err != nil {
			logger.Warn("provider construction failed, skipping", zap.String("provider", cfg.ID), zap.Error(err))
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, bootstrapHealthTimeout)
		status := a.Health(probeCtx)
		cancel()
		if status.State == domain.HealthUnhealthy {
			logger.Warn("provider failed startup health probe, skipping registration",
				zap.String("provider", cfg.ID), zap.String("last_error", status.LastError))
			continue
		}

		adapters[cfg.ID] = a
		types[cfg.ID] = cfg.Type
		order = append(order, cfg.ID)
		logger.Info("provider registered", zap.String("provider", cfg.ID), zap.String("type", cfg.Type))
	}

	if len(adapters) == 0 {
		logger.Warn("no providers registered after bootstrap")
	}

	reg.Publish(adapters, types, routes, order...)
}
