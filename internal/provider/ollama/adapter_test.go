package ollama_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapter_DelegatesToOpenAIWithCustomBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-ollama",
			"model": "llama3",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1}
		}`))
	}))
	defer server.Close()

	adapter, err := ollama.NewAdapter(domain.ProviderConfig{ID: "ollama-local", Type: "ollama", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "ollama-local", adapter.Name())
	assert.Equal(t, "openai", adapter.Type())

	resp, err := adapter.Chat(context.Background(), &domain.CanonicalRequest{
		Model:     "llama3",
		MaxTokens: 16,
		Messages:  []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-ollama", resp.ID)
}

func TestNewAdapter_DefaultsBaseURLToLocalhost(t *testing.T) {
	adapter, err := ollama.NewAdapter(domain.ProviderConfig{ID: "ollama-local", Type: "ollama"})
	require.NoError(t, err)
	require.NotNil(t, adapter)

	health := adapter.Health(context.Background())
	assert.Equal(t, domain.HealthUnhealthy, health.State)
}
