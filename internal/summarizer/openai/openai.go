// Package openai implements domain.Summarizer over any OpenAI-compatible
// chat completion endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Defaults applied by NewClient.
const (
	DefaultModel     = goopenai.GPT3Dot5Turbo
	DefaultMaxTokens = 500
)

// Config configures the chat completion client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
}

// Client turns retrieved context into prose.
type Client struct {
	client      *goopenai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewClient creates a chat completion client. As with the embedder, the API
// key is only mandatory for the default OpenAI endpoint.
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
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientConfig := goopenai.DefaultConfig(key)
	clientConfig.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	return &Client{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// UserMessage formats the query and retrieved posts for the model.
func UserMessage(query, posts string) string {
	return fmt.Sprintf("Query: %s\n\nRelevant Social Media Posts:\n%s", query, posts)
}

// Summarize sends the system prompt and the query with its context and
// returns the first choice verbatim.
func (c *Client) Summarize(ctx context.Context, systemPrompt, query, posts string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: UserMessage(query, posts)},
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from chat completion")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("empty response from chat completion")
	}
	return content, nil
}
