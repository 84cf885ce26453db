// Package ollama registers a provider type for locally-hosted Ollama
// instances. Ollama exposes an OpenAI-compatible /v1/chat/completions
// endpoint, so this adapter is the openai adapter with a different
// default base URL and no required API key — the same DRY reuse the
// teacher's codebase already practiced for this provider.
package ollama

import (
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider"
	"github.com/nulzo/model-router-api/internal/provider/openai"
)

func init() {
	provider.Register("ollama", NewAdapter)
}

func NewAdapter(cfg domain.ProviderConfig) (provider.Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	return openai.NewAdapter(cfg)
}
