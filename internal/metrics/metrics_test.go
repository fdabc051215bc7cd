package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.PostsIngested(3)
	m.PostsIngested(0)
	m.EmbeddingFailure()
	m.SetDocuments(7)
	m.ObserveSearch(10 * time.Millisecond)
	m.TrendDetection("ok")
	m.TrendDetection("ok")
	m.Analysis("fallback")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.postsIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.embeddingFailures))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.documents))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trendDetections.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("fallback")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.searchDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PostsIngested(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trendlens_posts_ingested_total 2")
	assert.Contains(t, rec.Body.String(), "trendlens_documents 0")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PostsIngested(1)
		m.EmbeddingFailure()
		m.SetDocuments(1)
		m.ObserveSearch(time.Second)
		m.TrendDetection("error")
		m.Analysis("llm")
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
