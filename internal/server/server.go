// Package server exposes the service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"trendlens/internal/domain"
	"trendlens/internal/ingest"
	"trendlens/internal/logging"
	"trendlens/internal/metrics"
	"trendlens/internal/service"
	"trendlens/internal/trend"
)

// DefaultSearchK is used when a search request carries no k.
const DefaultSearchK = 5

// Server routes HTTP requests to a service.Service.
type Server struct {
	svc        *service.Service
	echo       *echo.Echo
	log        logging.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	ingestOpts []ingest.Option
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(s *Server) { s.log = l } }

// WithMetrics sets the collectors served on /metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithClock sets the time assigned to posts that carry no created_at.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithCounters sets the top-level record keys read as engagement counters.
func WithCounters(names []string) Option {
	return func(s *Server) { s.ingestOpts = append(s.ingestOpts, ingest.WithCounters(names)) }
}

// New creates a Server and registers its routes.
func New(svc *service.Service, opts ...Option) *Server {
	s := &Server{svc: svc, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.log = logging.OrDiscard(s.log).WithField("component", "server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.WithFields(logrus.Fields{
				"method":   v.Method,
				"uri":      v.URI,
				"status":   v.Status,
				"duration": v.Latency,
			}).Debug("request")
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	api := e.Group("/api/v1")
	api.POST("/posts", s.ingestPosts)
	api.GET("/search", s.search)
	api.GET("/trends", s.currentTrends)
	api.POST("/trends", s.detectTrends)
	api.POST("/analyze", s.analyze)

	s.echo = e
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "documents": s.svc.Documents()})
}

func (s *Server) ingestPosts(c echo.Context) error {
	recs, err := ingest.Decode(c.Request().Body, ingest.FormatJSON)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	posts, err := ingest.Posts(recs, s.now(), s.ingestOpts...)
	if err != nil {
		return err
	}
	n, err := s.svc.Ingest(c.Request().Context(), posts)
	if err != nil {
		var addErr *domain.AddError
		if errors.As(err, &addErr) {
			return c.JSON(http.StatusMultiStatus, partialAddResponse{
				Indexed:   n,
				Succeeded: nonNil(addErr.Succeeded),
				Failed:    nonNil(addErr.Failed),
				Error:     addErr.Err.Error(),
			})
		}
		return err
	}
	return c.JSON(http.StatusOK, addResponse{Indexed: n, Received: len(posts), Documents: s.svc.Documents()})
}

func (s *Server) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return domain.InvalidArgument("q is required")
	}
	k := DefaultSearchK
	if raw := c.QueryParam("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.InvalidArgument("k must be an integer, got %q", raw)
		}
		k = v
	}
	results, err := s.svc.Search(c.Request().Context(), q, k)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResponse{Query: q, Results: toResults(results)})
}

func (s *Server) currentTrends(c echo.Context) error {
	var opts []trend.Option
	if raw := c.QueryParam("window_hours"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.InvalidArgument("window_hours must be a number, got %q", raw)
		}
		opts = append(opts, trend.WithWindow(v))
	}
	if raw := c.QueryParam("min_mentions"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.InvalidArgument("min_mentions must be an integer, got %q", raw)
		}
		opts = append(opts, trend.WithMinMentions(v))
	}
	trends, err := s.svc.CurrentTrends(opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trendsResponse{Trends: nonNil(trends)})
}

func (s *Server) detectTrends(c echo.Context) error {
	var req trendsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	posts, err := ingest.Posts(req.Posts, s.now(), s.ingestOpts...)
	if err != nil {
		return err
	}
	var opts []trend.Option
	if req.WindowHours != nil {
		opts = append(opts, trend.WithWindow(*req.WindowHours))
	}
	if req.MinMentions != nil {
		opts = append(opts, trend.WithMinMentions(*req.MinMentions))
	}
	trends, err := s.svc.DetectTrends(posts, opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trendsResponse{Trends: nonNil(trends)})
}

func (s *Server) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	a, err := s.svc.AnalyzeQuery(c.Request().Context(), req.Query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysisResponse{
		Query:             a.Query,
		RelevantDocuments: toResults(a.Documents),
		GeneratedResponse: a.Response,
		Source:            a.Source,
		Timestamp:         a.Timestamp,
	})
}

// StatusCode maps an error onto an HTTP status.
func StatusCode(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrEmbeddingFailure), errors.Is(err, domain.ErrSummarizationFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := StatusCode(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	entry := s.log.WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request rejected")
	}
	if err := c.JSON(code, errorResponse{Error: msg}); err != nil {
		s.log.WithError(err).Error("write error response")
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
