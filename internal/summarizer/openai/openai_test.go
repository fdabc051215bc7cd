package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	choices := []map[string]any{}
	if content != "" {
		choices = append(choices, map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-3.5-turbo",
		"choices": choices,
	})
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url + "/v1", APIKeyEnv: "TRENDLENS_UNSET_KEY", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestClient_Summarize(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, "AI chatter is rising on x.")
	})

	out, err := newTestClient(t, srv.URL).Summarize(context.Background(), "be objective", "ai?", "Platform: x")
	require.NoError(t, err)
	assert.Equal(t, "AI chatter is rising on x.", out)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be objective", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Query: ai?\n\nRelevant Social Media Posts:\nPlatform: x", got.Messages[1].Content)
}

func TestClient_SummarizeErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		})
		_, err := newTestClient(t, srv.URL).Summarize(context.Background(), "s", "q", "c")
		assert.Error(t, err)
	})
	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, _ *http.Request) { writeChoice(w, "") })
		_, err := newTestClient(t, srv.URL).Summarize(context.Background(), "s", "q", "c")
		assert.Error(t, err)
	})
}

func TestNewClient_RequiresKeyForDefaultEndpoint(t *testing.T) {
	t.Setenv("TRENDLENS_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TRENDLENS_EMPTY_KEY"})
	assert.Error(t, err)

	t.Setenv("TRENDLENS_EMPTY_KEY", "k")
	c, err := NewClient(Config{APIKeyEnv: "TRENDLENS_EMPTY_KEY"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, c.maxTokens)
	assert.Equal(t, DefaultModel, c.model)
}
