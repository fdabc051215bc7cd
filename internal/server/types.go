package server

import (
	"time"

	"trendlens/internal/domain"
	"trendlens/internal/ingest"
)

type errorResponse struct {
	Error string `json:"error"`
}

type addResponse struct {
	Indexed   int `json:"indexed"`
	Received  int `json:"received"`
	Documents int `json:"documents"`
}

type partialAddResponse struct {
	Indexed   int      `json:"indexed"`
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	Error     string   `json:"error"`
}

type result struct {
	ID         string           `json:"id"`
	Platform   string           `json:"platform"`
	Author     string           `json:"author"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	Engagement map[string]int64 `json:"engagement"`
	Sentiment  string           `json:"sentiment,omitempty"`
	Document   string           `json:"document"`
	Score      float64          `json:"similarity_score"`
}

func toResults(rs []domain.SearchResult) []result {
	out := make([]result, len(rs))
	for i, r := range rs {
		p := r.Document.Post
		out[i] = result{
			ID:         p.ID,
			Platform:   p.Platform,
			Author:     p.Author,
			Text:       p.Text,
			CreatedAt:  p.CreatedAt,
			Engagement: p.Engagement,
			Sentiment:  p.Sentiment,
			Document:   r.Document.Rendered,
			Score:      r.Score,
		}
	}
	return out
}

type searchResponse struct {
	Query   string   `json:"query"`
	Results []result `json:"results"`
}

type trendsRequest struct {
	Posts       []ingest.Record `json:"posts"`
	WindowHours *float64        `json:"window_hours"`
	MinMentions *int            `json:"min_mentions"`
}

type trendsResponse struct {
	Trends []domain.Trend `json:"trends"`
}

type analyzeRequest struct {
	Query string `json:"query"`
}

type analysisResponse struct {
	Query             string    `json:"query"`
	RelevantDocuments []result  `json:"relevant_documents"`
	GeneratedResponse string    `json:"generated_response"`
	Source            string    `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
}
