package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/config"
	"epcsync/internal/domain"
	"epcsync/internal/llm"
	"epcsync/internal/llm/claude"
)

func newTestClient(serverURL string) *claude.Client {
	cfg := &config.ModelProviderConfig{
		Provider:     "claude",
		APIKey:       "test-api-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}
	return claude.NewClientWithEndpoint(cfg, llm.Generation{Temperature: 0.1, MaxTokens: 4000}, serverURL)
}

func TestClaudeClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, float64(4000), reqBody["max_tokens"])
		assert.Equal(t, "system prompt", reqBody["system"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		assert.Equal(t, "user prompt", messages[0].(map[string]interface{})["content"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": `{"groups":`},
				{"type": "text", "text": `[]}`},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).Complete(context.Background(), "system prompt", "user prompt")

	require.NoError(t, err)
	assert.Equal(t, `{"groups":[]}`, out)
}

func TestClaudeClient_Complete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), "s", "u")

	te, ok := llm.IsRateLimited(err)
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, te.RetryAfter)
}

func TestClaudeClient_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), "s", "u")

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "empty response")
}

func TestClaudeClient_Complete_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Complete(context.Background(), "s", "u")

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
	assert.True(t, te.Retryable())
}
