package trend

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendlens/internal/domain"
)

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newScorer(t *testing.T, mutate func(*Config)) *Scorer {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewScorer(cfg, clock)
	require.NoError(t, err)
	return s
}

func post(id, text string, age time.Duration, engagement int64) domain.Post {
	return domain.Post{
		ID:         id,
		Text:       text,
		CreatedAt:  fixedNow.Add(-age),
		Engagement: map[string]int64{"favorite_count": engagement},
	}
}

func find(trends []domain.Trend, keyword string) (domain.Trend, bool) {
	for _, tr := range trends {
		if tr.Keyword == keyword {
			return tr, true
		}
	}
	return domain.Trend{}, false
}

func TestDetect_WorkedExample(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 10; c.WindowHours = 24 })
	var posts []domain.Post
	for i := 0; i < 15; i++ {
		eng := int64(33)
		if i == 14 {
			eng = 38
		}
		posts = append(posts, post(fmt.Sprint(i), "I love #AI tech", time.Duration(i)*time.Minute, eng))
	}

	trends, err := s.Detect(posts)
	require.NoError(t, err)
	ai, ok := find(trends, "#ai")
	require.True(t, ok)
	assert.Equal(t, 15, ai.Mentions)
	assert.Equal(t, int64(500), ai.Engagement)
	assert.InDelta(t, 15.0, ai.Velocity, 1e-9)
	assert.InDelta(t, 209.0, ai.Score, 1e-9)
}

func TestDetect_MentionFloor(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 10 })
	build := func(n int) []domain.Post {
		var posts []domain.Post
		for i := 0; i < n; i++ {
			posts = append(posts, post(fmt.Sprint(i), "#floor", time.Minute, 1))
		}
		return posts
	}

	trends, err := s.Detect(build(9))
	require.NoError(t, err)
	_, ok := find(trends, "#floor")
	assert.False(t, ok)

	trends, err = s.Detect(build(10))
	require.NoError(t, err)
	tr, ok := find(trends, "#floor")
	require.True(t, ok)
	assert.Greater(t, tr.Score, 0.0)
}

func TestDetect_RecencyBoundaryIsStrict(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 1 })
	window := 24 * time.Hour

	assert.False(t, s.IsRecent(fixedNow.Add(-window)))
	assert.True(t, s.IsRecent(fixedNow.Add(-window+time.Microsecond)))

	trends, err := s.Detect([]domain.Post{post("a", "#edge", window, 5)})
	require.NoError(t, err)
	assert.Empty(t, trends)

	trends, err = s.Detect([]domain.Post{post("a", "#edge", window-time.Microsecond, 5)})
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, "#edge", trends[0].Keyword)
}

func TestDetect_CountsUseAllPostsButScoreUsesRecent(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 2 })
	posts := []domain.Post{
		post("old1", "#retro", 72*time.Hour, 100),
		post("old2", "#retro", 72*time.Hour, 100),
		post("new1", "#retro", time.Hour, 1),
		post("new2", "#retro", 3*time.Hour, 1),
	}
	trends, err := s.Detect(posts)
	require.NoError(t, err)
	tr, ok := find(trends, "#retro")
	require.True(t, ok)
	assert.Equal(t, 4, tr.TotalMentions)
	assert.Equal(t, 2, tr.Mentions)
	assert.Equal(t, int64(2), tr.Engagement)
	// two mentions over a two hour spread
	assert.InDelta(t, 1.0, tr.Velocity, 1e-9)
	assert.InDelta(t, 0.4*2+0.4*2+0.2*1, tr.Score, 1e-9)
}

func TestDetect_SubstringMatchIsCaseInsensitive(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 1 })
	posts := []domain.Post{
		post("a", "golang", time.Minute, 0),
		post("b", "I write GOLANG daily", time.Minute, 0),
	}
	trends, err := s.Detect(posts)
	require.NoError(t, err)
	tr, ok := find(trends, "golang")
	require.True(t, ok)
	assert.Equal(t, 2, tr.Mentions)
}

func TestDetect_Ordering(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 1; c.Weights = Weights{Volume: 1} })
	posts := []domain.Post{
		post("1", "#beta #alpha", time.Minute, 0),
		post("2", "#alpha #gamma", time.Minute, 0),
		post("3", "#alpha", time.Minute, 0),
	}
	trends, err := s.Detect(posts)
	require.NoError(t, err)
	var got []string
	for _, tr := range trends {
		got = append(got, tr.Keyword)
	}
	// #alpha has most mentions; #beta and #gamma tie and keep first-encounter order
	assert.Equal(t, []string{"#alpha", "#beta", "#gamma"}, got)
}

func TestDetect_Limits(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 1 })
	var posts []domain.Post
	for i := 0; i < 60; i++ {
		posts = append(posts, post(fmt.Sprint(i), fmt.Sprintf("#tag%c%c", 'a'+i/26, 'a'+i%26), time.Minute, int64(i)))
	}
	trends, err := s.Detect(posts)
	require.NoError(t, err)
	assert.Len(t, trends, 20)
	for i := 1; i < len(trends); i++ {
		assert.GreaterOrEqual(t, trends[i-1].Score, trends[i].Score)
	}

	small := newScorer(t, func(c *Config) { c.MinMentions = 1; c.MaxCandidates = 3; c.MaxResults = 10 })
	trends, err = small.Detect(posts)
	require.NoError(t, err)
	assert.Len(t, trends, 3)
}

func TestDetect_ZeroScoreExcluded(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 0; c.Weights = Weights{Engagement: 1} })
	trends, err := s.Detect([]domain.Post{post("a", "#quiet", time.Minute, 0)})
	require.NoError(t, err)
	assert.Empty(t, trends)
}

func TestDetect_Errors(t *testing.T) {
	s := newScorer(t, nil)

	_, err := s.Detect([]domain.Post{{ID: "x", Text: "#nodate"}})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)

	_, err = s.Detect(nil, WithWindow(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.Detect(nil, WithMinMentions(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = NewScorer(Config{WindowHours: 1, Weights: Weights{Velocity: -1}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDetect_OptionsDoNotLeak(t *testing.T) {
	s := newScorer(t, func(c *Config) { c.MinMentions = 5 })
	posts := []domain.Post{post("a", "#once", time.Minute, 3)}

	trends, err := s.Detect(posts, WithMinMentions(1))
	require.NoError(t, err)
	assert.Len(t, trends, 1)

	trends, err = s.Detect(posts)
	require.NoError(t, err)
	assert.Empty(t, trends)
	assert.Equal(t, 5, s.Config().MinMentions)
}
