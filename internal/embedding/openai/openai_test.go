package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, handler func(w http.ResponseWriter, calls int32)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		handler(w, calls.Add(1))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeEmbedding(w http.ResponseWriter, vec []float32) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
	})
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"message":"upstream unhappy","type":"server_error"}}`))
}

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	t.Setenv("TRENDLENS_TEST_KEY", "test-key")
	c, err := NewClient(Config{
		BaseURL:    url + "/v1",
		APIKeyEnv:  "TRENDLENS_TEST_KEY",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	})
	require.NoError(t, err)
	return c
}

func TestClient_Embed(t *testing.T) {
	srv, calls := embeddingServer(t, func(w http.ResponseWriter, _ int32) {
		writeEmbedding(w, []float32{0.5, -0.25, 1})
	})
	c := newTestClient(t, srv.URL, 0)
	assert.Equal(t, 0, c.Dimension())

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25, 1}, vec)
	assert.Equal(t, 3, c.Dimension())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	srv, calls := embeddingServer(t, func(w http.ResponseWriter, n int32) {
		if n == 1 {
			writeError(w, http.StatusTooManyRequests)
			return
		}
		writeEmbedding(w, []float32{1, 0})
	})
	c := newTestClient(t, srv.URL, 2)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := embeddingServer(t, func(w http.ResponseWriter, _ int32) {
		writeError(w, http.StatusBadRequest)
	})
	c := newTestClient(t, srv.URL, 3)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_EmptyResponse(t *testing.T) {
	srv, _ := embeddingServer(t, func(w http.ResponseWriter, _ int32) {
		writeEmbedding(w, nil)
	})
	c := newTestClient(t, srv.URL, 0)
	_, err := c.Embed(context.Background(), "hello")
	assert.ErrorContains(t, err, "empty embedding")
}

func TestNewClient_RequiresKeyForOpenAI(t *testing.T) {
	t.Setenv("TRENDLENS_MISSING_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TRENDLENS_MISSING_KEY"})
	assert.ErrorContains(t, err, "TRENDLENS_MISSING_KEY")

	c, err := NewClient(Config{BaseURL: "http://localhost:11434/v1", APIKeyEnv: "TRENDLENS_MISSING_KEY", Dimensions: 768})
	require.NoError(t, err)
	assert.Equal(t, 768, c.Dimension())
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 3200*time.Millisecond, retryDelay(4))
	assert.Equal(t, 5*time.Second, retryDelay(5))
	assert.Equal(t, 5*time.Second, retryDelay(10))
	for _, attempt := range []int{35, 40, 63, 64, 1000} {
		assert.Equal(t, 5*time.Second, retryDelay(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, 200*time.Millisecond, retryDelay(-3))
}
