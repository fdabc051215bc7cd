package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trendlens/internal/domain"
	"trendlens/internal/trend"
)

// Port is the TUI-facing subset of the service.
type Port interface {
	AnalyzeQuery(ctx context.Context, query string) (*domain.Analysis, error)
	CurrentTrends(opts ...trend.Option) ([]domain.Trend, error)
}

// headerTrends is the number of trends listed in the header.
const headerTrends = 5

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service  Port
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	trends   []domain.Trend
	analysis *domain.Analysis
	status   string
	cursor   int
	ready    bool
	busy     bool
}

type analysisMsg struct {
	analysis *domain.Analysis
	err      error
}

type trendsMsg struct {
	trends []domain.Trend
	err    error
}

// New creates a new TUI model instance. timeout bounds each analysis; zero
// means no limit.
func New(service Port, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a topic and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, timeout: timeout, input: ti, viewport: vp, status: "Loaded. Type to analyze."}
}

// Init starts the cursor blink and loads the current trends.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.loadTrends()) }

func (m Model) loadTrends() tea.Cmd {
	return func() tea.Msg {
		trends, err := m.service.CurrentTrends()
		return trendsMsg{trends: trends, err: err}
	}
}

func (m Model) analyze(q string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		a, err := m.service.AnalyzeQuery(ctx, q)
		return analysisMsg{analysis: a, err: err}
	}
}

// Update handles key, window and result events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // title + trends
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil
	case trendsMsg:
		if msg.err != nil {
			m.status = "Trends unavailable: " + msg.err.Error()
			return m, nil
		}
		m.trends = msg.trends
		return m, nil
	case analysisMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.analysis = nil
		} else {
			m.analysis = msg.analysis
			m.cursor = 0
			m.status = fmt.Sprintf("Analysis for %q (%s, %d posts)", msg.analysis.Query, msg.analysis.Source, len(msg.analysis.Documents))
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Analyzing %q...", q)
				return m, m.analyze(q)
			}
		case "down":
			if n := m.documents(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if n := m.documents(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "ctrl+r":
			return m, m.loadTrends()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) documents() int {
	if m.analysis == nil {
		return 0
	}
	return len(m.analysis.Documents)
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("trendlens")
	trends := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(renderTrends(m.trends))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + trends + "\n" + results + "\n" + input + "\n" + status
}

func renderTrends(trends []domain.Trend) string {
	if len(trends) == 0 {
		return "No trending topics yet."
	}
	parts := make([]string, 0, headerTrends)
	for i, t := range trends {
		if i == headerTrends {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%.1f)", t.Keyword, t.Score))
	}
	return "Trending: " + strings.Join(parts, "  ")
}

func (m Model) renderCurrentResult() string {
	if m.analysis == nil {
		return "No results yet."
	}
	var b strings.Builder
	b.WriteString(m.analysis.Response)
	if len(m.analysis.Documents) == 0 {
		return b.String()
	}
	r := m.analysis.Documents[m.cursor]
	p := r.Document.Post
	fmt.Fprintf(&b, "\n\nPost %d/%d  score=%.3f  %s @%s  engagement=%d\n\n",
		m.cursor+1, len(m.analysis.Documents), r.Score, p.Platform, p.Author, p.TotalEngagement())
	b.WriteString(highlightBestSentence(p.Text, m.analysis.Query))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`#?\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx && bestScore > 0 {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[strings.TrimPrefix(t, "#")] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		t = strings.TrimPrefix(t, "#")
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
