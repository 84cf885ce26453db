// Package registry holds the provider_id -> adapter and
// model_id -> provider_id mappings as an immutable, atomically
// swappable snapshot. Readers never block on writers and never
// observe a partially-built mapping.
package registry

import (
	"sync/atomic"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
)

// Snapshot is the registry's read-only view for the lifetime of one
// request. Every in-flight request keeps the snapshot it was handed
// even if the registry is republished mid-request.
type Snapshot struct {
	Adapters        map[string]provider.Adapter // provider_id -> adapter
	ModelRoutes     map[string]string            // model_id -> provider_id (explicit)
	ProvidersByType map[string][]string          // provider type -> provider_ids of that type, registration order
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Adapters:        map[string]provider.Adapter{},
		ModelRoutes:     map[string]string{},
		ProvidersByType: map[string][]string{},
	}
}

// Registry is the atomically swappable holder of the current Snapshot.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

func New() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot())
	return r
}

// Load returns the current snapshot. Safe for concurrent use without
// any lock on the caller's part.
func (r *Registry) Load() *Snapshot {
	return r.current.Load()
}

// Publish atomically replaces the registry's snapshot. adapters is
// keyed by provider_id; routes are the explicit model_id -> provider_id
// overrides from configuration. order, when given, is the provider_id
// registration order (typically the original config slice's order) so
// ProvidersByType is built deterministically rather than in
// map-iteration order; callers that omit it (or omit an id from it)
// fall back to map order for that id, which is only safe when at most
// one provider of each type is registered.
func (r *Registry) Publish(adapters map[string]provider.Adapter, types map[string]string, routes []domain.RouteConfig, order ...string) {
	snap := emptySnapshot()

	ids := order
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		seen[id] = struct{}{}
	}
	for id := range adapters {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		a, ok := adapters[id]
		if !ok {
			continue
		}
		snap.Adapters[id] = a
		t := types[id]
		snap.ProvidersByType[t] = append(snap.ProvidersByType[t], id)
	}
	for _, rt := range routes {
		snap.ModelRoutes[rt.ModelID] = rt.ProviderID
	}
	r.current.Store(snap)
}

// AdapterFor resolves a provider_id to its adapter in this snapshot.
func (s *Snapshot) AdapterFor(providerID string) (provider.Adapter, bool) {
	a, ok := s.Adapters[providerID]
	return a, ok
}

// FirstOfType returns the first registered provider_id of the given
// type, in registration order, for use by prefix dispatch.
func (s *Snapshot) FirstOfType(providerType string) (string, bool) {
	ids, ok := s.ProvidersByType[providerType]
	if !ok || len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}
