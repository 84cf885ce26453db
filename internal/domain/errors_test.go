package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_MarshalJSON_FlattensExtensions(t *testing.T) {
	p := domain.ProviderError(429, "rate limited", domain.WithExtension("upstream_type", "rate_limit_error"))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	errBody := decoded["error"]
	assert.Equal(t, "provider_error", errBody["type"])
	assert.Equal(t, "rate limited", errBody["message"])
	assert.Equal(t, "rate_limit_error", errBody["upstream_type"])
}

func TestRedact_StripsAPIKeysAndURLs(t *testing.T) {
	msg := domain.Redact("request to https://api.example.com/v1/models?key=sk-abc123 failed: Authorization=Bearer sk-secret-value")
	assert.NotContains(t, msg, "sk-abc123")
	assert.NotContains(t, msg, "sk-secret-value")
	assert.Contains(t, msg, "[redacted]")
}

func TestInternalError_AttachesLogWithoutLeakingDetail(t *testing.T) {
	cause := assertNewError("boom: contains sk-live-deadbeef")
	p := domain.InternalError(cause)
	assert.Equal(t, 500, p.Status)
	assert.Equal(t, "an internal error occurred", p.Detail)
	assert.Same(t, cause, p.Log)
}

func assertNewError(msg string) error {
	return &testError{msg: msg}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
