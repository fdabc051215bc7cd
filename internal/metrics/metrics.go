// Package metrics owns the Prometheus collectors. Every method is safe on a
// nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trendlens"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	postsIngested     prometheus.Counter
	embeddingFailures prometheus.Counter
	documents         prometheus.Gauge
	searchDuration    prometheus.Histogram
	trendDetections   *prometheus.CounterVec
	analyses          *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		postsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_ingested_total",
			Help:      "Posts committed to the document store",
		}),
		embeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Embedding calls that failed or returned an unusable vector",
		}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents currently held in the vector store",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity queries including the query embedding",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}),
		trendDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trend_detections_total",
			Help:      "Trend detection calls",
		}, []string{"status"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyzed queries by response source",
		}, []string{"source"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.postsIngested,
		m.embeddingFailures,
		m.documents,
		m.searchDuration,
		m.trendDetections,
		m.analyses,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PostsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.postsIngested.Add(float64(n))
}

func (m *Metrics) EmbeddingFailure() {
	if m == nil {
		return
	}
	m.embeddingFailures.Inc()
}

func (m *Metrics) SetDocuments(n int) {
	if m == nil {
		return
	}
	m.documents.Set(float64(n))
}

func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

// TrendDetection counts a detection call; status is "ok" or "error".
func (m *Metrics) TrendDetection(status string) {
	if m == nil {
		return
	}
	m.trendDetections.WithLabelValues(status).Inc()
}

// Analysis counts an analyzed query by source ("llm", "fallback" or "error").
func (m *Metrics) Analysis(source string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(source).Inc()
}
