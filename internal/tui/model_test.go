package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain"
	"trendlens/internal/trend"
)

type fakePort struct {
	analysis *domain.Analysis
	err      error
	trends   []domain.Trend
	queries  []string
}

func (f *fakePort) AnalyzeQuery(_ context.Context, q string) (*domain.Analysis, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	a := *f.analysis
	a.Query = q
	return &a, nil
}

func (f *fakePort) CurrentTrends(...trend.Option) ([]domain.Trend, error) { return f.trends, nil }

func doc(id, text, platform string) domain.SearchResult {
	return domain.SearchResult{Document: domain.Document{Post: domain.Post{ID: id, Text: text, Platform: platform, Author: "ana"}}, Score: 0.5}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func typeQuery(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	for _, r := range q {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestModel_AnalyzeFlow(t *testing.T) {
	port := &fakePort{analysis: &domain.Analysis{
		Response: "AI is hot.",
		Source:   domain.SourceFallback,
		Documents: []domain.SearchResult{
			doc("1", "Robots rule. I love #AI tech.", "x"),
			doc("2", "Gardening tips", "y"),
		},
	}}
	m := sized(t, New(port, 0))
	assert.Contains(t, m.View(), "No results yet.")

	m, cmd := typeQuery(t, m, "ai")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Contains(t, m.status, "Analyzing")

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"ai"}, port.queries)
	assert.Contains(t, m.status, `Analysis for "ai" (fallback, 2 posts)`)
	assert.Contains(t, m.renderCurrentResult(), "AI is hot.")
	assert.Contains(t, m.renderCurrentResult(), "Post 1/2")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderCurrentResult(), "Gardening tips")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, next.(Model).cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestModel_AnalyzeError(t *testing.T) {
	port := &fakePort{err: errors.New("embedding failure: offline")}
	m := sized(t, New(port, 0))
	m, cmd := typeQuery(t, m, "ai")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Error: embedding failure: offline", m.status)
	assert.Nil(t, m.analysis)
}

func TestModel_EmptyQueryIgnored(t *testing.T) {
	port := &fakePort{}
	m := sized(t, New(port, 0))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, next.(Model).busy)
	assert.Equal(t, "Loaded. Type to analyze.", next.(Model).status)
	assert.Empty(t, port.queries)
}

func TestModel_Trends(t *testing.T) {
	port := &fakePort{trends: []domain.Trend{{Keyword: "#ai", Score: 209}, {Keyword: "robots", Score: 12.5}}}
	m := sized(t, New(port, 0))
	assert.Contains(t, m.View(), "No trending topics yet.")

	next, _ := m.Update(trendsMsg{trends: port.trends})
	m = next.(Model)
	assert.Contains(t, m.View(), "Trending: #ai (209.0)  robots (12.5)")
}

func TestRenderTrends_Limit(t *testing.T) {
	var trends []domain.Trend
	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		trends = append(trends, domain.Trend{Keyword: k, Score: 1})
	}
	out := renderTrends(trends)
	assert.Contains(t, out, "e (1.0)")
	assert.NotContains(t, out, "f (1.0)")
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Robots rule. I love #AI tech", "ai")
	assert.Contains(t, out, "Robots rule.")
	assert.Contains(t, out, "#AI tech")
	assert.True(t, strings.HasPrefix(out, "Robots rule. "))

	assert.Equal(t, "plain", highlightBestSentence("plain", ""))
	assert.Equal(t, "", highlightBestSentence("", "q"))
}
