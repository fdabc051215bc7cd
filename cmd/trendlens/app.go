package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"trendlens/internal/config"
	"trendlens/internal/docstore"
	"trendlens/internal/domain"
	"trendlens/internal/embedding"
	"trendlens/internal/ingest"
	"trendlens/internal/logging"
	"trendlens/internal/metrics"
	"trendlens/internal/service"
	"trendlens/internal/summarizer"
	"trendlens/internal/trend"
	"trendlens/internal/vectorstore/memory"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	json       bool
}

// app is the assembled set of components shared by every subcommand.
type app struct {
	cfg     *config.AppConfig
	log     *logrus.Logger
	closer  io.Closer
	metrics *metrics.Metrics
	svc     *service.Service
}

func loadConfig(opts *rootOptions) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

// newApp wires config, logging, metrics, the document store, the trend scorer
// and the summarizer into a service. quiet discards logs unless a log file is
// configured, for surfaces that own the terminal.
func newApp(opts *rootOptions, quiet bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	var (
		log    *logrus.Logger
		closer io.Closer
	)
	if quiet && cfg.Log.File == "" {
		log = logging.Discard()
	} else {
		log, closer, err = logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, log: log, closer: closer, metrics: metrics.New()}
	if err := a.assemble(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) assemble() error {
	emb, err := embedding.New(a.cfg.Embedder)
	if err != nil {
		return err
	}
	docs := docstore.New(emb, memory.NewStorage(0),
		docstore.WithConcurrency(a.cfg.Store.EmbedConcurrency),
		docstore.WithLogger(a.log),
		docstore.WithMetrics(a.metrics),
	)
	scorer, err := trend.NewScorer(a.cfg.Trend.Scorer(), nil)
	if err != nil {
		return err
	}
	sum, err := summarizer.New(a.cfg.Summarizer)
	if err != nil {
		return err
	}
	a.svc = service.New(docs, scorer,
		service.WithSummarizer(sum),
		service.WithPipeline(ingest.NewPipeline(a.cfg.Ingest.Blacklist, a.cfg.Ingest.TagSentiment)),
		service.WithContextDocuments(a.cfg.Service.ContextDocuments),
		service.WithLogger(a.log),
		service.WithMetrics(a.metrics),
	)
	a.log.WithFields(logrus.Fields{
		"embedder":   emb.Name(),
		"summarizer": a.cfg.Summarizer.Type,
	}).Debug("components assembled")
	return nil
}

// load reads post files and indexes them. A partial indexing failure is
// logged and tolerated; the indexed prefix stays queryable.
func (a *app) load(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	posts, err := ingest.LoadFiles(paths, time.Now(), ingest.WithCounters(a.cfg.Ingest.Counters))
	if err != nil {
		return err
	}
	n, err := a.svc.Ingest(ctx, posts)
	if err != nil {
		var addErr *domain.AddError
		if !errors.As(err, &addErr) || n == 0 {
			return fmt.Errorf("ingest failed: %w", err)
		}
		a.log.WithError(err).WithField("failed", len(addErr.Failed)).Warn("some posts were not indexed")
	}
	return nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
