package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	client     *goopenai.Client
	model      string
	dimensions int
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries int
	dimension  atomic.Int64
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Dimensions        int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	HTTPClient        *http.Client
}

// NewClient creates a new embeddings client using the provided configuration.
// An API key is required only for the default OpenAI endpoint; local
// compatible servers such as Ollama accept anonymous requests.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" && cfg.BaseURL == DefaultBaseURL {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = string(goopenai.SmallEmbedding3)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	clientConfig := goopenai.DefaultConfig(key)
	clientConfig.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	c := &Client{
		client:     goopenai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
	}
	c.dimension.Store(int64(cfg.Dimensions))
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the configured dimensionality, or the length of the
// first vector received when none was configured.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	req := goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      goopenai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		vec, err := c.embedOnce(ctx, req)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) embedOnce(ctx context.Context, req goopenai.EmbeddingRequest) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding response")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	c.dimension.CompareAndSwap(0, int64(len(vec)))
	return vec, nil
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	const (
		base     = 200 * time.Millisecond
		maxDelay = 5 * time.Second
	)
	// 200ms << 5 already exceeds the cap; larger shifts would overflow.
	if attempt > 5 {
		return maxDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	return min(base<<attempt, maxDelay)
}
