// Package trend ranks keywords surging within a recency window, weighting
// mention volume, aggregate engagement and spread velocity.
package trend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trendlens/internal/domain"
	"trendlens/internal/keywords"
)

// Weights is the linear combination applied to a keyword's signals.
type Weights struct {
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Volume     float64 `yaml:"volume" json:"volume"`
	Velocity   float64 `yaml:"velocity" json:"velocity"`
}

// DefaultWeights returns {engagement: 0.4, volume: 0.4, velocity: 0.2}.
func DefaultWeights() Weights {
	return Weights{Engagement: 0.4, Volume: 0.4, Velocity: 0.2}
}

// Config configures a Scorer.
type Config struct {
	WindowHours   float64
	MinMentions   int
	Weights       Weights
	MaxCandidates int
	MaxResults    int
	Stopwords     []string
}

// DefaultConfig returns the scorer defaults.
func DefaultConfig() Config {
	return Config{
		WindowHours:   24,
		MinMentions:   10,
		Weights:       DefaultWeights(),
		MaxCandidates: 50,
		MaxResults:    20,
		Stopwords:     keywords.DefaultStopwords,
	}
}

func (c Config) validate() error {
	switch {
	case c.WindowHours < 0:
		return domain.InvalidArgument("window_hours must be >= 0, got %v", c.WindowHours)
	case c.MinMentions < 0:
		return domain.InvalidArgument("min_mentions must be >= 0, got %d", c.MinMentions)
	case c.MaxCandidates < 0:
		return domain.InvalidArgument("max_candidates must be >= 0, got %d", c.MaxCandidates)
	case c.MaxResults < 0:
		return domain.InvalidArgument("max_results must be >= 0, got %d", c.MaxResults)
	case c.Weights.Engagement < 0 || c.Weights.Volume < 0 || c.Weights.Velocity < 0:
		return domain.InvalidArgument("weights must be >= 0, got %+v", c.Weights)
	}
	return nil
}

// Option overrides configuration for a single Detect call.
type Option func(*Config)

// WithWindow overrides the recency window in hours.
func WithWindow(hours float64) Option { return func(c *Config) { c.WindowHours = hours } }

// WithMinMentions overrides the inclusion floor.
func WithMinMentions(n int) Option { return func(c *Config) { c.MinMentions = n } }

// WithWeights overrides the scoring weights.
func WithWeights(w Weights) Option { return func(c *Config) { c.Weights = w } }

// Scorer computes trending keywords. It holds no state between calls and is
// safe for concurrent use.
type Scorer struct {
	cfg       Config
	extractor *keywords.Extractor
	now       func() time.Time
}

// NewScorer validates cfg and creates a Scorer. now may be nil.
func NewScorer(cfg Config, now func() time.Time) (*Scorer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Scorer{cfg: cfg, extractor: keywords.New(cfg.Stopwords), now: now}, nil
}

// Config returns the scorer's base configuration.
func (s *Scorer) Config() Config { return s.cfg }

// IsRecent reports whether t falls strictly after now minus the window.
func (s *Scorer) IsRecent(t time.Time) bool {
	return isRecent(t, s.now(), s.cfg.WindowHours)
}

func isRecent(t, now time.Time, windowHours float64) bool {
	cutoff := now.Add(-time.Duration(windowHours * float64(time.Hour)))
	return t.After(cutoff)
}

type candidate struct {
	trend domain.Trend
	first int
}

// Detect ranks the keywords of posts. A post without a timestamp aborts the
// whole call with ErrInvalidTimestamp.
func (s *Scorer) Detect(posts []domain.Post, opts ...Option) ([]domain.Trend, error) {
	cfg := s.cfg
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.CreatedAt.IsZero() {
			return nil, &domain.TimestampError{Err: fmt.Errorf("post %q has no created_at", p.ID)}
		}
	}

	now := s.now()
	counts := keywords.Counts(s.extractor.ExtractAll(posts))
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].N > counts[j].N })
	if len(counts) > cfg.MaxCandidates {
		counts = counts[:cfg.MaxCandidates]
	}

	lowered := make([]string, len(posts))
	recent := make([]bool, len(posts))
	for i, p := range posts {
		lowered[i] = strings.ToLower(p.Text)
		recent[i] = isRecent(p.CreatedAt, now, cfg.WindowHours)
	}

	var out []candidate
	for _, c := range counts {
		t, ok := score(c, posts, lowered, recent, cfg)
		if !ok || t.Score <= 0 {
			continue
		}
		out = append(out, candidate{trend: t, first: c.First})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.trend.Score != b.trend.Score {
			return a.trend.Score > b.trend.Score
		}
		if a.trend.Mentions != b.trend.Mentions {
			return a.trend.Mentions > b.trend.Mentions
		}
		return a.first < b.first
	})
	if len(out) > cfg.MaxResults {
		out = out[:cfg.MaxResults]
	}
	trends := make([]domain.Trend, len(out))
	for i, c := range out {
		trends[i] = c.trend
	}
	return trends, nil
}

// score evaluates one keyword over the recent posts mentioning it. ok is
// false when the keyword falls below the inclusion floor.
func score(c keywords.Count, posts []domain.Post, lowered []string, recent []bool, cfg Config) (domain.Trend, bool) {
	t := domain.Trend{Keyword: c.Keyword, TotalMentions: c.N}
	for i, p := range posts {
		if !recent[i] || !strings.Contains(lowered[i], c.Keyword) {
			continue
		}
		t.Mentions++
		t.Engagement += p.TotalEngagement()
		if t.FirstSeen.IsZero() || p.CreatedAt.Before(t.FirstSeen) {
			t.FirstSeen = p.CreatedAt
		}
		if p.CreatedAt.After(t.LastSeen) {
			t.LastSeen = p.CreatedAt
		}
	}
	if t.Mentions == 0 || t.Mentions < cfg.MinMentions {
		return domain.Trend{}, false
	}
	span := t.LastSeen.Sub(t.FirstSeen).Hours()
	if span < 1 {
		span = 1
	}
	t.Velocity = float64(t.Mentions) / span
	t.Score = cfg.Weights.Engagement*float64(t.Engagement) +
		cfg.Weights.Volume*float64(t.Mentions) +
		cfg.Weights.Velocity*t.Velocity
	return t, true
}
