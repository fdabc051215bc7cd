// Package embedding builds the configured text embedding capability.
package embedding

import (
	"fmt"
	"time"

	"trendlens/internal/config"
	"trendlens/internal/domain"
	"trendlens/internal/embedding/hashing"
	"trendlens/internal/embedding/openai"
)

// New assembles the embedder selected by cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Dimensions:        cfg.Dimension,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			MaxRetries:        cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
