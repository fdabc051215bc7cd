// Package service composes the document store, the trend scorer and the
// summarizer into the operations exposed to the CLI, the HTTP server and the TUI.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"trendlens/internal/docstore"
	"trendlens/internal/domain"
	"trendlens/internal/ingest"
	"trendlens/internal/logging"
	"trendlens/internal/metrics"
	"trendlens/internal/summarizer"
	"trendlens/internal/trend"
)

// DefaultContextDocuments is the number of documents retrieved per analysis.
const DefaultContextDocuments = 5

// Service answers trend, search and analysis queries over ingested posts.
// It is safe for concurrent use.
type Service struct {
	docs        *docstore.Store
	scorer      *trend.Scorer
	summarizer  domain.Summarizer
	pipeline    ingest.Pipeline
	contextDocs int
	now         func() time.Time
	log         logging.Logger
	metrics     *metrics.Metrics

	mu    sync.RWMutex
	posts []domain.Post
}

// Option configures a Service.
type Option func(*Service)

// WithSummarizer sets the language-model capability. Without one, analyses
// use the deterministic fallback.
func WithSummarizer(s domain.Summarizer) Option { return func(svc *Service) { svc.summarizer = s } }

// WithPipeline sets the pre-processing applied by Ingest.
func WithPipeline(p ingest.Pipeline) Option { return func(svc *Service) { svc.pipeline = p } }

// WithContextDocuments sets how many documents an analysis retrieves.
func WithContextDocuments(k int) Option {
	return func(svc *Service) {
		if k >= 0 {
			svc.contextDocs = k
		}
	}
}

// WithClock sets the time source used to stamp analyses.
func WithClock(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(svc *Service) { svc.log = l } }

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(svc *Service) { svc.metrics = m } }

// New creates a Service.
func New(docs *docstore.Store, scorer *trend.Scorer, opts ...Option) *Service {
	svc := &Service{docs: docs, scorer: scorer, contextDocs: DefaultContextDocuments, now: time.Now}
	for _, o := range opts {
		o(svc)
	}
	svc.log = logging.OrDiscard(svc.log).WithField("component", "service")
	return svc
}

// Ingest pre-processes posts, indexes them and adds them to the trend working
// set. It returns the number of posts indexed. On a partial failure the
// indexed prefix is still added to the working set and the *domain.AddError
// is returned.
func (s *Service) Ingest(ctx context.Context, posts []domain.Post) (int, error) {
	accepted := s.pipeline.Apply(posts)
	err := s.docs.Add(ctx, accepted)

	indexed := accepted
	if err != nil {
		var addErr *domain.AddError
		if !errors.As(err, &addErr) {
			return 0, err
		}
		indexed = accepted[:len(addErr.Succeeded)]
	}

	s.mu.Lock()
	s.posts = append(s.posts, indexed...)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"received": len(posts),
		"filtered": len(posts) - len(accepted),
		"count":    len(indexed),
	}).Info("posts ingested")
	return len(indexed), err
}

// Search returns the k documents most similar to text.
func (s *Service) Search(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	return s.docs.Query(ctx, text, k)
}

// DetectTrends ranks the keywords of an explicit corpus.
func (s *Service) DetectTrends(posts []domain.Post, opts ...trend.Option) ([]domain.Trend, error) {
	trends, err := s.scorer.Detect(posts, opts...)
	if err != nil {
		s.metrics.TrendDetection("error")
		s.log.WithError(err).Debug("trend detection failed")
		return nil, err
	}
	s.metrics.TrendDetection("ok")
	s.log.WithFields(logrus.Fields{"posts": len(posts), "count": len(trends)}).Debug("trends detected")
	return trends, nil
}

// CurrentTrends ranks the keywords of every ingested post.
func (s *Service) CurrentTrends(opts ...trend.Option) ([]domain.Trend, error) {
	return s.DetectTrends(s.Posts(), opts...)
}

// Posts returns a snapshot of the trend working set.
func (s *Service) Posts() []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Documents returns the number of indexed documents.
func (s *Service) Documents() int { return s.docs.Len() }

// AnalyzeQuery retrieves the documents closest to query and turns them into
// a response, through the summarizer when one is configured.
func (s *Service) AnalyzeQuery(ctx context.Context, query string) (*domain.Analysis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.InvalidArgument("query is required")
	}
	docs, err := s.docs.Query(ctx, query, s.contextDocs)
	if err != nil {
		s.metrics.Analysis("error")
		return nil, err
	}
	rendered := make([]string, len(docs))
	for i, d := range docs {
		rendered[i] = d.Document.Rendered
	}
	excerpt := strings.Join(rendered, "\n\n")

	a := &domain.Analysis{Query: query, Documents: docs}
	if s.summarizer != nil {
		resp, err := s.summarizer.Summarize(ctx, summarizer.SystemPrompt, query, excerpt)
		if err != nil {
			s.metrics.Analysis("error")
			s.log.WithError(err).Warn("summarization failed")
			return nil, &domain.SummarizationError{Err: err}
		}
		a.Response = resp
		a.Source = domain.SourceLLM
	} else {
		a.Response = summarizer.Fallback(query, excerpt, docs)
		a.Source = domain.SourceFallback
	}
	a.Timestamp = s.now()
	s.metrics.Analysis(a.Source)
	s.log.WithFields(logrus.Fields{"k": s.contextDocs, "documents": len(docs), "source": a.Source}).Debug("query analyzed")
	return a, nil
}
