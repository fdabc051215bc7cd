package memory

import (
	"container/heap"
	"sync"

	"trendlens/internal/domain"
)

// Storage is an in-memory vector store using brute-force cosine similarity.
// Documents keep their insertion sequence, which breaks score ties.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	docs      []domain.Document
}

// NewStorage creates an empty store. A dimension of 0 lets the first
// appended vector fix the dimensionality.
func NewStorage(dimension int) *Storage {
	if dimension < 0 {
		dimension = 0
	}
	return &Storage{dimension: dimension}
}

// Append stores a document and returns it with its sequence number set.
// The document is visible to readers only once fully stored.
func (s *Storage) Append(doc domain.Document) (domain.Document, error) {
	if len(doc.Embedding) == 0 {
		return domain.Document{}, &domain.DimensionMismatchError{Want: s.Dimension(), Got: 0}
	}
	vec := make([]float64, len(doc.Embedding))
	copy(vec, doc.Embedding)
	doc.Embedding = vec

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(vec)
	}
	if len(vec) != s.dimension {
		return domain.Document{}, &domain.DimensionMismatchError{Want: s.dimension, Got: len(vec)}
	}
	doc.Seq = len(s.docs)
	s.docs = append(s.docs, doc)
	return doc, nil
}

// Search returns the topK documents by descending cosine similarity.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, domain.InvalidArgument("topK must be >= 0, got %d", topK)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK == 0 || len(s.docs) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Want: s.dimension, Got: len(vector)}
	}

	h := make(resultHeap, 0, min(topK, len(s.docs)))
	for i := range s.docs {
		r := domain.SearchResult{Document: s.docs[i], Score: domain.Cosine(vector, s.docs[i].Embedding)}
		if h.Len() < topK {
			heap.Push(&h, r)
			continue
		}
		if better(r, h[0]) {
			h[0] = r
			heap.Fix(&h, 0)
		}
	}
	results := make([]domain.SearchResult, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(&h).(domain.SearchResult)
	}
	return results, nil
}

// Dimension returns the fixed vector length, or 0 before the first append.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Len returns the number of stored documents.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns a snapshot of the stored documents in insertion order.
func (s *Storage) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// better orders by score, then earlier insertion.
func better(a, b domain.SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Document.Seq < b.Document.Seq
}

// resultHeap keeps the worst retained result at the root.
type resultHeap []domain.SearchResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(domain.SearchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
