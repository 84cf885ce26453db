package anthropic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/nulzo/model-router-api/internal/provider/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() *domain.CanonicalRequest {
	return &domain.CanonicalRequest{
		Model:     "claude-3-opus",
		MaxTokens: 64,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be terse"},
			{Role: domain.RoleUser, Content: "Hi"},
		},
	}
}

func TestAdapter_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "msg_123",
			"model": "claude-3-opus",
			"content": [{"type": "text", "text": "Hello!"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	adapter, err := anthropic.NewAdapter(domain.ProviderConfig{ID: "anthropic-test", Type: "anthropic", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := adapter.Chat(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "msg_123", resp.ID)
	assert.Equal(t, domain.StopEndTurn, resp.StopReason)
	assert.Equal(t, "Hello!", resp.Content[0].Text)
	assert.Equal(t, 10, resp.Usage.InputTokens)
}

func TestAdapter_Chat_MapsStopSequenceDistinctlyFromEndTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "msg_124",
			"model": "claude-3-opus",
			"content": [{"type": "text", "text": "Hello!"}],
			"stop_reason": "stop_sequence",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	adapter, err := anthropic.NewAdapter(domain.ProviderConfig{ID: "anthropic-test", Type: "anthropic", APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := adapter.Chat(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StopStopSequence, resp.StopReason)
	assert.NotEqual(t, domain.StopEndTurn, resp.StopReason)
}

func TestAdapter_Chat_UsesXAPIKeyConsistently(t *testing.T) {
	// Anthropic's wire dialect always authenticates via x-api-key, never
	// x-server-key, on both the messages endpoint and the health probe.
	var sawHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"m","model":"claude","content":[],"stop_reason":"end_turn","usage":{}}`))
	}))
	defer server.Close()

	adapter, err := anthropic.NewAdapter(domain.ProviderConfig{ID: "a", Type: "anthropic", APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = adapter.Chat(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "secret", sawHeader)
}

func TestAdapter_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		events := []string{
			`data: {"type":"message_start","message":{"id":"m1","model":"claude-3-opus","usage":{"input_tokens":5,"output_tokens":0}}}`,
			`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
			`data: {"type":"content_block_stop","index":0}`,
			`data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":1}}`,
			`data: {"type":"message_stop"}`,
		}
		for _, e := range events {
			_, _ = w.Write([]byte(e + "\n\n"))
			flusher.Flush()
		}
	}))
	defer server.Close()

	adapter, err := anthropic.NewAdapter(domain.ProviderConfig{ID: "a", Type: "anthropic", APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	req := testRequest()
	req.Stream = true
	events, err := adapter.Stream(context.Background(), req)
	require.NoError(t, err)

	var last domain.CanonicalEvent
	var deltaUsage *domain.Usage
	for result := range events {
		require.NoError(t, result.Err)
		last = result.Event
		if result.Event.Type == domain.EventMessageDelta {
			deltaUsage = result.Event.MessageDelta.Usage
		}
	}
	assert.Equal(t, domain.EventMessageStop, last.Type)
	require.NotNil(t, deltaUsage)
	assert.Equal(t, 5, deltaUsage.InputTokens)
	assert.Equal(t, 1, deltaUsage.OutputTokens)
}
