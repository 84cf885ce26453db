// Package router selects an adapter for an incoming request's model
// identifier, applying the explicit-mapping-then-prefix dispatch rule.
package router

import (
	"strings"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
	"github.com/nulzo/model-router-api/internal/registry"
)

type prefixRule struct {
	prefix       string
	providerType string
}

// prefixRules is consulted in order; the rule list is small enough
// that a linear scan is the right data structure (O(k), k constant).
var prefixRules = []prefixRule{
	{prefix: "gemini-", providerType: "gemini"},
	{prefix: "gpt-", providerType: "openai"},
	{prefix: "o1-", providerType: "openai"},
	{prefix: "claude-", providerType: "anthropic"},
}

// Resolve picks the adapter that should serve modelID against the
// given registry snapshot. An explicit model_id -> provider_id mapping
// always wins over prefix dispatch.
func Resolve(snap *registry.Snapshot, modelID string) (provider.Adapter, string, error) {
	if providerID, ok := snap.ModelRoutes[modelID]; ok {
		a, ok := snap.AdapterFor(providerID)
		if !ok {
			return nil, "", domain.ProviderNotFoundError(modelID)
		}
		return a, providerID, nil
	}

	for _, rule := range prefixRules {
		if !strings.HasPrefix(modelID, rule.prefix) {
			continue
		}
		providerID, ok := snap.FirstOfType(rule.providerType)
		if !ok {
			continue
		}
		a, ok := snap.AdapterFor(providerID)
		if !ok {
			continue
		}
		return a, providerID, nil
	}

	return nil, "", domain.ProviderNotFoundError(modelID)
}
