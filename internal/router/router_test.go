package router_test

import (
	"context"
	"testing"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
	"github.com/nulzo/model-router-api/internal/registry"
	"github.com/nulzo/model-router-api/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	name, typ string
}

func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) Type() string { return s.typ }
func (s *stubAdapter) Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error) {
	return nil, nil
}
func (s *stubAdapter) Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	return nil, nil
}
func (s *stubAdapter) Models(ctx context.Context) ([]domain.ModelInfo, error) { return nil, nil }
func (s *stubAdapter) Health(ctx context.Context) domain.HealthStatus         { return domain.HealthStatus{} }

func newSnapshot(t *testing.T, routes []domain.RouteConfig, adapters map[string]provider.Adapter, types map[string]string) *registry.Snapshot {
	t.Helper()
	reg := registry.New()
	reg.Publish(adapters, types, routes)
	return reg.Load()
}

func TestResolve_ExplicitRouteWinsOverPrefix(t *testing.T) {
	openaiAdapter := &stubAdapter{name: "openai-main", typ: "openai"}
	anthropicAdapter := &stubAdapter{name: "anthropic-main", typ: "anthropic"}

	snap := newSnapshot(t,
		[]domain.RouteConfig{{ModelID: "gpt-4-custom", ProviderID: "anthropic-main"}},
		map[string]provider.Adapter{"openai-main": openaiAdapter, "anthropic-main": anthropicAdapter},
		map[string]string{"openai-main": "openai", "anthropic-main": "anthropic"},
	)

	adapter, providerID, err := router.Resolve(snap, "gpt-4-custom")
	require.NoError(t, err)
	assert.Equal(t, "anthropic-main", providerID)
	assert.Same(t, anthropicAdapter, adapter)
}

func TestResolve_PrefixDispatch(t *testing.T) {
	geminiAdapter := &stubAdapter{name: "gemini-main", typ: "gemini"}
	snap := newSnapshot(t, nil,
		map[string]provider.Adapter{"gemini-main": geminiAdapter},
		map[string]string{"gemini-main": "gemini"},
	)

	adapter, providerID, err := router.Resolve(snap, "gemini-1.5-pro")
	require.NoError(t, err)
	assert.Equal(t, "gemini-main", providerID)
	assert.Same(t, geminiAdapter, adapter)
}

func TestResolve_NoMatchReturnsProviderNotFound(t *testing.T) {
	snap := newSnapshot(t, nil, map[string]provider.Adapter{}, map[string]string{})

	_, _, err := router.Resolve(snap, "unknown-model")
	require.Error(t, err)
	problem, ok := err.(*domain.Problem)
	require.True(t, ok)
	assert.Equal(t, "provider_not_found", problem.Kind)
}

func TestResolve_PrefixWithNoRegisteredProviderOfType(t *testing.T) {
	snap := newSnapshot(t, nil, map[string]provider.Adapter{}, map[string]string{})

	_, _, err := router.Resolve(snap, "claude-3-opus")
	require.Error(t, err)
}
