package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"trendlens/internal/domain"
	"trendlens/internal/ingest"
	"trendlens/internal/keywords"
	"trendlens/internal/trend"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
// Dimension is the hashing vector length, or the requested output size for
// models that support shortening.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenAISummarizerConfig holds configuration for the chat-completion summarizer.
type OpenAISummarizerConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// SummarizerConfig selects the summarizer. "none" uses the built-in fallback.
type SummarizerConfig struct {
	Type   string                  `yaml:"type"`
	OpenAI *OpenAISummarizerConfig `yaml:"openai,omitempty"`
}

// StoreConfig configures the document store.
type StoreConfig struct {
	EmbedConcurrency int `yaml:"embed_concurrency"`
}

// TrendConfig configures the trend scorer.
type TrendConfig struct {
	WindowHours   float64       `yaml:"window_hours"`
	MinMentions   int           `yaml:"min_mentions"`
	Weights       trend.Weights `yaml:"weights"`
	MaxCandidates int           `yaml:"max_candidates"`
	MaxResults    int           `yaml:"max_results"`
	Stopwords     []string      `yaml:"stopwords"`
}

// Scorer converts the section into a scorer configuration.
func (c TrendConfig) Scorer() trend.Config {
	return trend.Config{
		WindowHours:   c.WindowHours,
		MinMentions:   c.MinMentions,
		Weights:       c.Weights,
		MaxCandidates: c.MaxCandidates,
		MaxResults:    c.MaxResults,
		Stopwords:     c.Stopwords,
	}
}

// ServiceConfig configures the query pipeline.
type ServiceConfig struct {
	ContextDocuments int `yaml:"context_documents"`
}

// IngestConfig configures record normalization and the pre-processing
// applied to incoming posts. Counters lists the top-level record keys read as
// engagement counters.
type IngestConfig struct {
	Counters     []string `yaml:"counters"`
	Blacklist    []string `yaml:"blacklist"`
	TagSentiment bool     `yaml:"tag_sentiment"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Store      StoreConfig      `yaml:"store"`
	Trend      TrendConfig      `yaml:"trend"`
	Service    ServiceConfig    `yaml:"service"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Fields absent from the file keep their default values.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/trendlens/config.yaml.
// If neither exists, it writes defaults to ~/.config/trendlens/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges and implementation names.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		return domain.InvalidArgument("unknown embedder %q", c.Embedder.Type)
	}
	switch c.Summarizer.Type {
	case "none", "openai":
	default:
		return domain.InvalidArgument("unknown summarizer %q", c.Summarizer.Type)
	}
	if c.Embedder.Dimension < 0 {
		return domain.InvalidArgument("embedder.dimension must be >= 0, got %d", c.Embedder.Dimension)
	}
	if c.Store.EmbedConcurrency < 1 {
		return domain.InvalidArgument("store.embed_concurrency must be >= 1, got %d", c.Store.EmbedConcurrency)
	}
	if c.Service.ContextDocuments < 0 {
		return domain.InvalidArgument("service.context_documents must be >= 0, got %d", c.Service.ContextDocuments)
	}
	if _, err := trend.NewScorer(c.Trend.Scorer(), nil); err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "trendlens", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	scorer := trend.DefaultConfig()
	stopwords := make([]string, len(keywords.DefaultStopwords))
	copy(stopwords, keywords.DefaultStopwords)
	return &AppConfig{
		Embedder:   EmbedderConfig{Type: "hashing", Dimension: 512},
		Summarizer: SummarizerConfig{Type: "none"},
		Store:      StoreConfig{EmbedConcurrency: 4},
		Trend: TrendConfig{
			WindowHours:   scorer.WindowHours,
			MinMentions:   scorer.MinMentions,
			Weights:       scorer.Weights,
			MaxCandidates: scorer.MaxCandidates,
			MaxResults:    scorer.MaxResults,
			Stopwords:     stopwords,
		},
		Service: ServiceConfig{ContextDocuments: 5},
		Ingest: IngestConfig{
			Counters:     append([]string(nil), ingest.DefaultCounters...),
			Blacklist:    []string{"badword1", "badword2", "spamlink"},
			TagSentiment: true,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if len(cfg.Ingest.Counters) == 0 {
		cfg.Ingest.Counters = append([]string(nil), ingest.DefaultCounters...)
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "none"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 3
		}
	}
	if cfg.Summarizer.Type == "openai" {
		if cfg.Summarizer.OpenAI == nil {
			cfg.Summarizer.OpenAI = &OpenAISummarizerConfig{}
		}
		if cfg.Summarizer.OpenAI.BaseURL == "" {
			cfg.Summarizer.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Summarizer.OpenAI.APIKeyEnv == "" {
			cfg.Summarizer.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Summarizer.OpenAI.Model == "" {
			cfg.Summarizer.OpenAI.Model = "gpt-3.5-turbo"
		}
		if cfg.Summarizer.OpenAI.TimeoutSecs == 0 {
			cfg.Summarizer.OpenAI.TimeoutSecs = 60
		}
		if cfg.Summarizer.OpenAI.MaxTokens == 0 {
			cfg.Summarizer.OpenAI.MaxTokens = 500
		}
	}
}
