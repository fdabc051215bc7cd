// Package summarizer provides the prose step of query analysis: the
// configured language-model capability and the deterministic fallback used
// when none is configured.
package summarizer

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"trendlens/internal/config"
	"trendlens/internal/domain"
	"trendlens/internal/summarizer/openai"
)

// SystemPrompt is the fixed instruction sent with every summarization call.
const SystemPrompt = `You are a social media trend analyst. Analyze the provided social media posts and provide insights about trends, viral content, cultural context and social movements. Be objective and provide evidence-based analysis.`

// FallbackContextRunes bounds the context excerpt in fallback responses.
const FallbackContextRunes = 500

// New assembles the summarizer selected by cfg.Type. A nil summarizer with a
// nil error means "none": callers use Fallback.
func New(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai summarizer config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai summarizer init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}

// Fallback renders a template response from the retrieved documents. The
// output depends only on its inputs.
func Fallback(query, context string, docs []domain.SearchResult) string {
	excerpt := context
	if utf8.RuneCountInString(excerpt) > FallbackContextRunes {
		excerpt = truncateRunes(excerpt, FallbackContextRunes) + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the analysis of recent social media posts related to %q:\n\n", query)
	fmt.Fprintf(&b, "Context Summary:\n%s\n\n", excerpt)
	b.WriteString("Key Insights:\n")
	fmt.Fprintf(&b, "- Found %d relevant posts discussing this topic\n", len(docs))
	fmt.Fprintf(&b, "- Posts span across platforms: %s\n\n", strings.Join(Platforms(docs), ", "))
	b.WriteString("Configure a summarizer for a more detailed analysis.")
	return b.String()
}

// Platforms returns the distinct platforms of docs in sorted order.
func Platforms(docs []domain.SearchResult) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		p := d.Document.Post.Platform
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
