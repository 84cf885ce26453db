package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/model-router-api/internal/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reqBody struct {
	Name string `json:"name"`
}

type respBody struct {
	Greeting string `json:"greeting"`
}

func TestSendRequest_DecodesSuccessResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"greeting":"hi"}`))
	}))
	defer server.Close()

	var out respBody
	err := httpclient.SendRequest(context.Background(), server.Client(), http.MethodPost, server.URL,
		map[string]string{"Authorization": "Bearer token"}, reqBody{Name: "x"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Greeting)
}

func TestSendRequest_NonSuccessStatusReturnsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	err := httpclient.SendRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil, nil)
	require.Error(t, err)
	upstreamErr, ok := err.(*httpclient.UpstreamError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
}

func TestUpstreamError_ErrorStripsQueryParameters(t *testing.T) {
	err := &httpclient.UpstreamError{StatusCode: 403, URL: "https://generativelanguage.googleapis.com/v1beta/models?key=sk-secret"}
	assert.NotContains(t, err.Error(), "sk-secret")
	assert.Contains(t, err.Error(), "generativelanguage.googleapis.com")
}

func TestStreamRequest_InvokesProcessLineForEachNonEmptyLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data: one\n\ndata: two\n\n"))
	}))
	defer server.Close()

	var lines []string
	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, reqBody{Name: "x"},
		func(line string) error {
			lines = append(lines, line)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"data: one", "data: two"}, lines)
}

func TestStreamRequest_NonSuccessStatusReturnsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil,
		func(line string) error { return nil })
	require.Error(t, err)
	_, ok := err.(*httpclient.UpstreamError)
	assert.True(t, ok)
}

func TestStreamRequest_ProcessLineErrorAbortsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data: one\n\ndata: two\n\n"))
	}))
	defer server.Close()

	var lines []string
	err := httpclient.StreamRequest(context.Background(), server.Client(), http.MethodPost, server.URL, nil, nil,
		func(line string) error {
			lines = append(lines, line)
			return assertAbort{}
		})
	require.Error(t, err)
	assert.Len(t, lines, 1)
}

type assertAbort struct{}

func (assertAbort) Error() string { return "abort" }
