// Package provider defines the adapter capability contract every
// upstream AI provider implementation satisfies, and the factory
// registry adapters self-register into.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/nulzo/model-router-api/internal/domain"
)

// Adapter is the polymorphic capability set every provider
// implementation exposes. Adapters are stateless beyond their
// immutable ProviderConfig and a shared HTTP client; they are freely
// usable from many concurrent goroutines.
type Adapter interface {
	Name() string
	Type() string
	Chat(ctx context.Context, req *domain.CanonicalRequest) (*domain.CanonicalResponse, error)
	Stream(ctx context.Context, req *domain.CanonicalRequest) (<-chan domain.StreamResult, error)
	Models(ctx context.Context) ([]domain.ModelInfo, error)
	Health(ctx context.Context) domain.HealthStatus
}

// Factory builds an Adapter from its immutable configuration.
type Factory func(cfg domain.ProviderConfig) (Adapter, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register wires an adapter implementation's type name to its
// constructor. Adapters call this from an init() func so the registry
// is fully populated before main() runs.
func Register(providerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[providerType]; exists {
		panic(fmt.Sprintf("provider factory %q already registered", providerType))
	}
	factories[providerType] = f
}

func Get(providerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("no provider factory registered for type %q", providerType)
	}
	return f, nil
}

// Build looks up the factory for cfg.Type and constructs the adapter.
func Build(cfg domain.ProviderConfig) (Adapter, error) {
	f, err := Get(cfg.Type)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}
