// Package docstore indexes posts as embedded documents and answers
// nearest-neighbour queries over them.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trendlens/internal/domain"
	"trendlens/internal/logging"
	"trendlens/internal/metrics"
)

// DefaultConcurrency bounds parallel embedding calls during Add.
const DefaultConcurrency = 4

// Store renders posts, embeds them once and keeps the vectors in a
// domain.VectorStore.
type Store struct {
	embedder    domain.Embedder
	vectors     domain.VectorStore
	concurrency int
	log         logging.Logger
	metrics     *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency sets the number of embedding calls in flight during Add.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(s *Store) { s.log = l } }

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Store) { s.metrics = m } }

// New creates a Store over the given embedder and vector store.
func New(embedder domain.Embedder, vectors domain.VectorStore, opts ...Option) *Store {
	s := &Store{embedder: embedder, vectors: vectors, concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(s)
	}
	s.log = logging.OrDiscard(s.log).WithField("component", "docstore")
	return s
}

// Render builds the text that is embedded for a post.
func Render(p domain.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\n", p.Platform)
	fmt.Fprintf(&b, "Author: %s\n", p.Author)
	fmt.Fprintf(&b, "Content: %s\n", p.Text)
	fmt.Fprintf(&b, "Engagement: %d", p.TotalEngagement())
	return b.String()
}

// Add embeds and stores posts. Embedding runs concurrently; documents are
// committed in input order up to the first failure, so on error the store
// holds exactly the ids listed in AddError.Succeeded.
func (s *Store) Add(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	start := time.Now()
	rendered := make([]string, len(posts))
	vecs := make([][]float64, len(posts))
	for i, p := range posts {
		rendered[i] = Render(p)
	}

	// A failure must not cancel embeds of earlier posts, which still commit;
	// later posts are skipped once a failure is known.
	errs := make([]error, len(posts))
	var firstFailed atomic.Int64
	firstFailed.Store(int64(len(posts)))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range posts {
		i := i
		g.Go(func() error {
			if int64(i) > firstFailed.Load() {
				return nil
			}
			vec, err := s.embed(ctx, rendered[i])
			if err != nil {
				errs[i] = fmt.Errorf("post %s: %w", posts[i].ID, err)
				storeMin(&firstFailed, int64(i))
				return errs[i]
			}
			vecs[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	var (
		succeeded []string
		commitErr error
		failedAt  = len(posts)
	)
	for i, p := range posts {
		if errs[i] != nil || vecs[i] == nil {
			failedAt = i
			commitErr = errs[i]
			break
		}
		if _, err := s.vectors.Append(domain.Document{Rendered: rendered[i], Embedding: vecs[i], Post: p}); err != nil {
			failedAt = i
			commitErr = fmt.Errorf("post %s: %w", p.ID, err)
			break
		}
		succeeded = append(succeeded, p.ID)
	}
	s.metrics.PostsIngested(len(succeeded))
	s.metrics.SetDocuments(s.vectors.Len())

	if commitErr == nil {
		s.log.WithFields(logrus.Fields{"count": len(posts), "duration": time.Since(start)}).Debug("documents added")
		return nil
	}
	failed := make([]string, 0, len(posts)-failedAt)
	for _, p := range posts[failedAt:] {
		failed = append(failed, p.ID)
	}
	s.metrics.EmbeddingFailure()
	s.log.WithError(commitErr).WithFields(logrus.Fields{"succeeded": len(succeeded), "failed": len(failed)}).Warn("add stopped")
	return &domain.AddError{Succeeded: succeeded, Failed: failed, Err: commitErr}
}

// Query returns the k documents most similar to text, best first.
func (s *Store) Query(ctx context.Context, text string, k int) ([]domain.SearchResult, error) {
	if k < 0 {
		return nil, domain.InvalidArgument("k must be >= 0, got %d", k)
	}
	if k == 0 || s.vectors.Len() == 0 {
		return []domain.SearchResult{}, nil
	}
	start := time.Now()
	vec, err := s.embed(ctx, text)
	if err != nil {
		s.metrics.EmbeddingFailure()
		return nil, fmt.Errorf("query: %w", err)
	}
	results, err := s.vectors.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	s.metrics.ObserveSearch(time.Since(start))
	s.log.WithFields(logrus.Fields{"k": k, "results": len(results), "duration": time.Since(start)}).Debug("query")
	return results, nil
}

// embed calls the embedder and rejects unusable vectors. Every error it
// returns matches ErrEmbeddingFailure.
func (s *Store) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingFailure, s.embedder.Name(), err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty vector", domain.ErrEmbeddingFailure, s.embedder.Name())
	}
	if want := s.vectors.Dimension(); want != 0 && len(vec) != want {
		return nil, errors.Join(domain.ErrEmbeddingFailure, &domain.DimensionMismatchError{Want: want, Got: len(vec)})
	}
	return vec, nil
}

// storeMin lowers v to n when n is smaller.
func storeMin(v *atomic.Int64, n int64) {
	for cur := v.Load(); n < cur; cur = v.Load() {
		if v.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Len returns the number of stored documents.
func (s *Store) Len() int { return s.vectors.Len() }

// Dimension returns the store's vector length, 0 while empty and unconfigured.
func (s *Store) Dimension() int { return s.vectors.Dimension() }

// Documents returns a snapshot of all documents in insertion order.
func (s *Store) Documents() []domain.Document { return s.vectors.Documents() }
