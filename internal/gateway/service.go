// Package gateway orchestrates the router, the provider registry, and
// the analytics/cache collaborators around the core translation
// pipeline. Nothing in the core (domain, provider, httpclient, router,
// registry) imports this package; it sits one layer above, wiring the
// ambient stack around the pure request-routing engine.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/model-router-api/internal/analytics"
	"github.com/nulzo/model-router-api/internal/cache"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/registry"
	"github.com/nulzo/model-router-api/internal/router"
	"go.uber.org/zap"
)

const modelsCacheKey = "gateway:models:v1"
const modelsCacheTTL = 5 * time.Minute

// Service is the single entry point the HTTP handlers call through.
type Service struct {
	registry        *registry.Registry
	cache           cache.Service
	ingestor        *analytics.Ingestor
	logger          *zap.Logger
	providerConfigs []domain.ProviderConfig
}

func New(reg *registry.Registry, c cache.Service, ingestor *analytics.Ingestor, logger *zap.Logger, providerConfigs []domain.ProviderConfig) *Service {
	return &Service{registry: reg, cache: c, ingestor: ingestor, logger: logger, providerConfigs: providerConfigs}
}

// Chat performs a one-shot completion. It resolves the model to an
// adapter, forwards the call, and records analytics.
func (s *Service) Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error) {
	snap := s.registry.Load()
	adapter, providerID, err := router.Resolve(snap, req.Model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := adapter.Chat(ctx, req)
	latency := time.Since(start)

	s.logRequest(providerID, req.Model, latency, resp, err)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	return resp, nil
}

// StreamChat resolves the model to an adapter and returns its raw
// event sequence, wrapped so the final event triggers an analytics
// record without buffering the stream.
func (s *Service) StreamChat(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	snap := s.registry.Load()
	adapter, providerID, err := router.Resolve(snap, req.Model)
	if err != nil {
		return nil, err
	}

	upstream, err := adapter.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.StreamResult)
	go func() {
		defer close(out)
		start := time.Now()
		firstByte := time.Time{}
		var finalUsage domain.Usage
		var streamErr error

		for result := range upstream {
			if firstByte.IsZero() {
				firstByte = time.Now()
			}
			if result.Err != nil {
				streamErr = result.Err
			}
			if result.Event.MessageDelta != nil && result.Event.MessageDelta.Usage != nil {
				finalUsage = *result.Event.MessageDelta.Usage
			}
			out <- result
		}

		latency := time.Since(start)
		var ttft time.Duration
		if !firstByte.IsZero() {
			ttft = firstByte.Sub(start)
		}
		s.logStream(providerID, req.Model, latency, ttft, finalUsage, streamErr)
	}()

	return out, nil
}

// ListModels aggregates list_models() over all enabled providers in
// the current snapshot, consulting the cache collaborator first.
func (s *Service) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var cached []domain.ModelInfo
	if s.cache != nil {
		if err := s.cache.Get(ctx, modelsCacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	models, err := s.collectModels(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, modelsCacheKey, models, modelsCacheTTL)
	}
	return models, nil
}

// RefreshResult is the response shape for POST /v1/models/refresh: a
// per-provider model count plus any provider whose configured API
// version string has fallen behind this gateway's known-good floor.
type RefreshResult struct {
	Status          string            `json:"status"`
	ProviderStats   map[string]int    `json:"provider_stats"`
	Timestamp       time.Time         `json:"timestamp"`
	VersionWarnings map[string]string `json:"version_warnings,omitempty"`
}

// RefreshModels forces recomputation of every adapter's catalog,
// invalidates the cache, and returns a per-provider count alongside
// any provider version drift warnings.
func (s *Service) RefreshModels(ctx context.Context) (RefreshResult, error) {
	snap := s.registry.Load()
	stats := make(map[string]int, len(snap.Adapters))
	var all []domain.ModelInfo

	for id, adapter := range snap.Adapters {
		models, err := adapter.Models(ctx)
		if err != nil {
			s.logger.Warn("model refresh failed for provider", zap.String("provider", id), zap.Error(err))
			continue
		}
		stats[id] = len(models)
		all = append(all, models...)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, modelsCacheKey, all, modelsCacheTTL)
	}

	warnings := checkVersionFloors(s.providerConfigs)
	for id, warning := range warnings {
		s.logger.Warn("provider version below known-good floor", zap.String("provider", id), zap.String("detail", warning))
	}

	return RefreshResult{Status: "refreshed", ProviderStats: stats, Timestamp: time.Now(), VersionWarnings: warnings}, nil
}

func (s *Service) collectModels(ctx context.Context) ([]domain.ModelInfo, error) {
	snap := s.registry.Load()
	var all []domain.ModelInfo
	for _, adapter := range snap.Adapters {
		models, err := adapter.Models(ctx)
		if err != nil {
			return nil, fmt.Errorf("list models from %s: %w", adapter.Name(), err)
		}
		all = append(all, models...)
	}
	return all, nil
}

// HealthAll probes every registered adapter concurrently, each
// bounded by the given per-probe timeout.
func (s *Service) HealthAll(ctx context.Context, perProbeTimeout time.Duration) map[string]domain.HealthStatus {
	snap := s.registry.Load()
	results := make(map[string]domain.HealthStatus, len(snap.Adapters))

	type pair struct {
		id     string
		status domain.HealthStatus
	}
	ch := make(chan pair, len(snap.Adapters))

	for id, adapter := range snap.Adapters {
		id, adapter := id, adapter
		go func() {
			probeCtx, cancel := context.WithTimeout(ctx, perProbeTimeout)
			defer cancel()
			ch <- pair{id: id, status: adapter.Health(probeCtx)}
		}()
	}

	for i := 0; i < len(snap.Adapters); i++ {
		p := <-ch
		results[p.id] = p.status
	}
	return results
}

func (s *Service) logRequest(providerID, model string, latency time.Duration, resp *domain.CanonicalResponse, err error) {
	if s.ingestor == nil {
		return
	}
	entry := analytics.RequestLogEntry{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		Model:      model,
		LatencyMs:  latency.Milliseconds(),
	}
	if err != nil {
		entry.Status = errorStatus(err)
		entry.ErrorKind = errorKind(err)
	} else {
		entry.Status = 200
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
	}
	s.ingestor.Log(entry)
}

func (s *Service) logStream(providerID, model string, latency, ttft time.Duration, usage domain.Usage, err error) {
	if s.ingestor == nil {
		return
	}
	entry := analytics.RequestLogEntry{
		ID:           uuid.NewString(),
		ProviderID:   providerID,
		Model:        model,
		LatencyMs:    latency.Milliseconds(),
		TTFTMs:       ttft.Milliseconds(),
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	}
	if err != nil {
		entry.Status = errorStatus(err)
		entry.ErrorKind = errorKind(err)
	} else {
		entry.Status = 200
	}
	s.ingestor.Log(entry)
}

func errorStatus(err error) int {
	if p, ok := err.(*domain.Problem); ok {
		return p.Status
	}
	return 500
}

func errorKind(err error) string {
	if p, ok := err.(*domain.Problem); ok {
		return p.Kind
	}
	return "internal_error"
}
