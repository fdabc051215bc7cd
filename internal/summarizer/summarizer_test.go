package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/config"
	"trendlens/internal/domain"
)

func result(platform string) domain.SearchResult {
	return domain.SearchResult{Document: domain.Document{Post: domain.Post{Platform: platform}}}
}

func TestFallback(t *testing.T) {
	docs := []domain.SearchResult{result("y"), result("x"), result("y")}
	out := Fallback("ai", "Platform: x\nContent: hi", docs)

	assert.True(t, strings.HasPrefix(out, "Based on the analysis of recent social media posts related to \"ai\":\n\nContext Summary:\nPlatform: x\nContent: hi\n\n"))
	assert.Contains(t, out, "- Found 3 relevant posts discussing this topic\n")
	assert.Contains(t, out, "- Posts span across platforms: x, y\n")
	assert.Equal(t, out, Fallback("ai", "Platform: x\nContent: hi", []domain.SearchResult{result("x"), result("y"), result("y")}))
}

func TestFallback_TruncatesContextByRunes(t *testing.T) {
	long := strings.Repeat("é", FallbackContextRunes+10)
	out := Fallback("q", long, nil)
	assert.Contains(t, out, strings.Repeat("é", FallbackContextRunes)+"...\n")
	assert.NotContains(t, out, strings.Repeat("é", FallbackContextRunes+1))
	assert.Contains(t, out, "- Found 0 relevant posts")

	exact := strings.Repeat("a", FallbackContextRunes)
	assert.NotContains(t, Fallback("q", exact, nil), "...")
}

func TestPlatforms(t *testing.T) {
	assert.Equal(t, []string{"reddit", "twitter"}, Platforms([]domain.SearchResult{result("twitter"), result("reddit"), result("twitter")}))
	assert.Empty(t, Platforms(nil))
}

func TestFallback_PlatformsSorted(t *testing.T) {
	docs := []domain.SearchResult{result("twitter"), result("reddit"), result("mastodon"), result("bluesky"), result("reddit")}
	assert.Equal(t, []string{"bluesky", "mastodon", "reddit", "twitter"}, Platforms(docs))

	out := Fallback("ai", "ctx", docs)
	assert.Contains(t, out, "- Found 5 relevant posts discussing this topic\n")
	assert.Contains(t, out, "- Posts span across platforms: bluesky, mastodon, reddit, twitter\n")
	assert.Equal(t, out, Fallback("ai", "ctx", []domain.SearchResult{result("bluesky"), result("twitter"), result("mastodon"), result("reddit"), result("reddit")}))
}

func TestNew(t *testing.T) {
	s, err := New(config.SummarizerConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = New(config.SummarizerConfig{Type: "openai"})
	assert.Error(t, err)

	_, err = New(config.SummarizerConfig{Type: "markov"})
	assert.Error(t, err)

	s, err = New(config.SummarizerConfig{Type: "openai", OpenAI: &config.OpenAISummarizerConfig{BaseURL: "http://localhost:11434/v1", APIKeyEnv: "TRENDLENS_UNSET_KEY"}})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
