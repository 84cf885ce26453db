package registry_test

import (
	"context"
	"testing"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
	"github.com/nulzo/model-router-api/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct{}

func (stubAdapter) Name() string { return "stub" }
func (stubAdapter) Type() string { return "stub" }
func (stubAdapter) Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error) {
	return nil, nil
}
func (stubAdapter) Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error) {
	return nil, nil
}
func (stubAdapter) Models(ctx context.Context) ([]domain.ModelInfo, error) { return nil, nil }
func (stubAdapter) Health(ctx context.Context) domain.HealthStatus         { return domain.HealthStatus{} }

func TestRegistry_LoadReturnsEmptySnapshotBeforePublish(t *testing.T) {
	reg := registry.New()
	snap := reg.Load()
	assert.Empty(t, snap.Adapters)
	_, ok := snap.FirstOfType("openai")
	assert.False(t, ok)
}

func TestRegistry_PublishIsVisibleToLoad(t *testing.T) {
	reg := registry.New()
	reg.Publish(
		map[string]provider.Adapter{"p1": stubAdapter{}},
		map[string]string{"p1": "openai"},
		[]domain.RouteConfig{{ModelID: "custom", ProviderID: "p1"}},
	)

	snap := reg.Load()
	a, ok := snap.AdapterFor("p1")
	require.True(t, ok)
	assert.Equal(t, "stub", a.Name())

	id, ok := snap.FirstOfType("openai")
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	assert.Equal(t, "p1", snap.ModelRoutes["custom"])
}

func TestRegistry_PublishWithOrderMakesFirstOfTypeDeterministic(t *testing.T) {
	reg := registry.New()
	adapters := map[string]provider.Adapter{"p1": stubAdapter{}, "p2": stubAdapter{}}
	types := map[string]string{"p1": "openai", "p2": "openai"}

	for i := 0; i < 10; i++ {
		reg.Publish(adapters, types, nil, "p1", "p2")
		id, ok := reg.Load().FirstOfType("openai")
		require.True(t, ok)
		assert.Equal(t, "p1", id, "order argument must fix FirstOfType regardless of map iteration order")
	}
}

func TestRegistry_PublishReplacesPriorSnapshotAtomically(t *testing.T) {
	reg := registry.New()
	reg.Publish(map[string]provider.Adapter{"p1": stubAdapter{}}, map[string]string{"p1": "openai"}, nil)
	first := reg.Load()

	reg.Publish(map[string]provider.Adapter{"p2": stubAdapter{}}, map[string]string{"p2": "anthropic"}, nil)
	second := reg.Load()

	_, ok := first.AdapterFor("p2")
	assert.False(t, ok, "the snapshot held before republish must not see the new provider")
	_, ok = second.AdapterFor("p1")
	assert.False(t, ok)
}
