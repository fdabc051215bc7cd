package domain

import (
	"context"
	"time"
)

// Post is a single social post as accepted by the core. It is immutable once
// ingested; the ingestion boundary fills defaults before it gets here.
type Post struct {
	ID         string
	Text       string
	Author     string
	Platform   string
	CreatedAt  time.Time
	Engagement map[string]int64
	Sentiment  string
	Keyword    string
}

// TotalEngagement sums every engagement counter present on the post.
func (p Post) TotalEngagement() int64 {
	var total int64
	for _, v := range p.Engagement {
		total += v
	}
	return total
}

// Document is an indexed post together with its embedding.
type Document struct {
	Seq       int
	Rendered  string
	Embedding []float64
	Post      Post
}

// SearchResult represents a matching document with its cosine similarity.
type SearchResult struct {
	Document Document
	Score    float64
}

// Trend is a keyword ranked by the trend scorer for one detection call.
type Trend struct {
	Keyword       string    `json:"keyword"`
	Mentions      int       `json:"mentions"`
	TotalMentions int       `json:"total_mentions"`
	Engagement    int64     `json:"engagement"`
	Velocity      float64   `json:"velocity"`
	Score         float64   `json:"trend_score"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// Analysis is the answer of the retrieval-augmented query pipeline.
type Analysis struct {
	Query     string
	Documents []SearchResult
	Response  string
	Source    string
	Timestamp time.Time
}

// Analysis sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Embedder converts free text into a numeric vector representation.
// Dimension returns 0 while the dimensionality is not yet known.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore keeps documents with their vectors and supports similarity search.
type VectorStore interface {
	Append(doc Document) (Document, error)
	Search(vector []float64, topK int) ([]SearchResult, error)
	Dimension() int
	Len() int
	Documents() []Document
}

// Summarizer turns retrieved context into prose for a query.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, query, posts string) (string, error)
}
