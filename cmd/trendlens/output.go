package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"trendlens/internal/domain"
)

type postView struct {
	ID         string           `json:"id"`
	Platform   string           `json:"platform"`
	Author     string           `json:"author"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	Engagement int64            `json:"engagement"`
	Counters   map[string]int64 `json:"counters,omitempty"`
	Sentiment  string           `json:"sentiment,omitempty"`
	Score      float64          `json:"similarity_score"`
}

func toViews(results []domain.SearchResult) []postView {
	out := make([]postView, len(results))
	for i, r := range results {
		p := r.Document.Post
		out[i] = postView{
			ID:         p.ID,
			Platform:   p.Platform,
			Author:     p.Author,
			Text:       p.Text,
			CreatedAt:  p.CreatedAt,
			Engagement: p.TotalEngagement(),
			Counters:   p.Engagement,
			Sentiment:  p.Sentiment,
			Score:      r.Score,
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTrends(w io.Writer, trends []domain.Trend, asJSON bool) error {
	if asJSON {
		if trends == nil {
			trends = []domain.Trend{}
		}
		return writeJSON(w, map[string]any{"trends": trends})
	}
	if len(trends) == 0 {
		_, err := fmt.Fprintln(w, "No trending keywords.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tSCORE\tMENTIONS\tENGAGEMENT\tVELOCITY")
	for _, t := range trends {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%d\t%.2f\n", t.Keyword, t.Score, t.Mentions, t.Engagement, t.Velocity)
	}
	return tw.Flush()
}

func printResults(w io.Writer, query string, results []domain.SearchResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, map[string]any{"query": query, "results": toViews(results)})
	}
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No matching posts.")
		return err
	}
	for i, r := range results {
		p := r.Document.Post
		if _, err := fmt.Fprintf(w, "%d. [%.3f] %s @%s (engagement %d)\n   %s\n",
			i+1, r.Score, p.Platform, p.Author, p.TotalEngagement(), p.Text); err != nil {
			return err
		}
	}
	return nil
}

func printAnalysis(w io.Writer, a *domain.Analysis, asJSON bool) error {
	if asJSON {
		return writeJSON(w, map[string]any{
			"query":              a.Query,
			"relevant_documents": toViews(a.Documents),
			"generated_response": a.Response,
			"source":             a.Source,
			"timestamp":          a.Timestamp,
		})
	}
	_, err := fmt.Fprintf(w, "%s\n\n(source: %s, %d posts)\n", a.Response, a.Source, len(a.Documents))
	return err
}
