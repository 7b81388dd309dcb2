// Package app wires the catalog, progress store, bookmark organizer and
// engines into one learner-scoped instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/practicum/internal/bookmark"
	"github.com/felixgeelhaar/practicum/internal/cache"
	"github.com/felixgeelhaar/practicum/internal/catalog"
	"github.com/felixgeelhaar/practicum/internal/config"
	"github.com/felixgeelhaar/practicum/internal/domain"
	"github.com/felixgeelhaar/practicum/internal/events"
	"github.com/felixgeelhaar/practicum/internal/metrics"
	"github.com/felixgeelhaar/practicum/internal/progress"
	"github.com/felixgeelhaar/practicum/internal/recommend"
	"github.com/felixgeelhaar/practicum/internal/search"
	"github.com/felixgeelhaar/practicum/internal/storage"
)

// App holds one learner's services
type App struct {
	Config     *config.LocalConfig
	Registry   *catalog.Registry
	Catalog    *catalog.Cached
	Content    *catalog.Content
	Progress   *progress.Store
	Bookmarks  *bookmark.Organizer
	Recommend  *recommend.Engine
	Search     *search.Engine
	Dispatcher *domain.EventDispatcher

	logger       *slog.Logger
	closeStorage func() error
	conn         *events.Connection
	publisher    *events.Publisher
	metricsSrv   *http.Server
}

// Option configures New
type Option func(*options)

type options struct {
	kv     storage.KV
	clock  func() time.Time
	logger *slog.Logger
}

// WithStorage bypasses the configured backend
func WithStorage(kv storage.KV) Option {
	return func(o *options) { o.kv = kv }
}

// WithClock injects the time source for every component
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds every component from cfg. Paths in cfg must be resolved.
func New(ctx context.Context, cfg *config.LocalConfig, opts ...Option) (*App, error) {
	o := options{clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:       cfg,
		Dispatcher:   domain.NewEventDispatcher(),
		logger:       o.logger,
		closeStorage: func() error { return nil },
	}

	kv := o.kv
	if kv == nil {
		var err error
		kv, a.closeStorage, err = OpenStorage(ctx, cfg.Storage, cfg.UserID)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	a.Dispatcher.SubscribeAll(func(e domain.Event) {
		metrics.RecordEvent(e.EventType())
	})

	if cfg.Events.Enabled {
		if err := a.startEvents(ctx); err != nil {
			// progress tracking works without the broker
			o.logger.Warn("event publishing disabled", "error", err)
		}
	}

	// registry -> retry/breaker -> memo
	a.Registry = catalog.NewRegistry(catalog.NewLoader(cfg.Catalog.Path))
	resilient := catalog.NewResilient(a.Registry, catalog.ResilientConfig{
		RetryAttempts:   cfg.Catalog.RetryAttempts,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		Logger:          o.logger,
	})
	cacheOpts := []cache.Option{cache.WithTTL(cfg.Catalog.CacheTTL), cache.WithClock(o.clock)}
	a.Catalog = catalog.NewCached(resilient, cacheOpts...)
	a.Content = catalog.NewContent(a.Catalog, cacheOpts...)

	a.Progress = progress.NewStore(ctx, kv,
		progress.WithClock(o.clock),
		progress.WithLogger(o.logger),
		progress.WithDispatcher(a.Dispatcher),
		progress.WithFlushInterval(cfg.Progress.FlushInterval),
	)
	a.Bookmarks = bookmark.NewOrganizer(ctx, kv, a.Progress,
		bookmark.WithClock(o.clock),
		bookmark.WithLogger(o.logger),
	)

	a.Recommend = recommend.NewEngine(a.Catalog, a.Progress,
		recommend.WithClock(o.clock),
		recommend.WithLogger(o.logger),
		recommend.WithCache(cache.New[[]domain.Recommendation]("recommendations", cacheOpts...)),
	)
	a.Search = search.NewEngine(a.Catalog, a.Progress,
		search.WithLogger(o.logger),
		search.WithCache(cache.New[[]domain.SearchResult]("search", cacheOpts...)),
	)

	return a, nil
}

func (a *App) startEvents(ctx context.Context) error {
	conn, err := events.Dial(a.Config.Events.AMQPURL, a.Config.Events.Queue, a.logger)
	if err != nil {
		return err
	}
	a.conn = conn
	a.publisher = events.NewPublisher(conn, events.PublisherConfig{
		UserID: a.Config.UserID,
		Logger: a.logger,
	})
	a.publisher.Attach(a.Dispatcher)
	a.publisher.Start(context.WithoutCancel(ctx))
	return nil
}

// DefaultSettings returns recommendation settings from the config
func (a *App) DefaultSettings() recommend.Settings {
	s := recommend.DefaultSettings()
	if a.Config.Recommend.MaxRecommendations > 0 {
		s.MaxRecommendations = a.Config.Recommend.MaxRecommendations
	}
	s.IncludeCompleted = a.Config.Recommend.IncludeCompleted
	return s
}

// Exercise resolves id against the catalog
func (a *App) Exercise(ctx context.Context, id string) (domain.ExerciseMeta, error) {
	items, err := a.Catalog.ListExercises(ctx, catalog.ScopeAll)
	if err != nil {
		return domain.ExerciseMeta{}, fmt.Errorf("list exercises: %w", err)
	}
	meta, ok := catalog.Find(items, id)
	if !ok {
		return domain.ExerciseMeta{}, fmt.Errorf("%w: %s", domain.ErrExerciseNotFound, id)
	}
	return meta, nil
}

// ReloadCatalog rereads the catalog from disk and drops memoized results
func (a *App) ReloadCatalog() error {
	if err := a.Registry.Reload(); err != nil {
		return err
	}
	a.Catalog.Invalidate()
	a.Content.ClearCache()
	return nil
}

// Run flushes progress periodically and serves /metrics when enabled.
// It returns when ctx is done.
func (a *App) Run(ctx context.Context) {
	if a.Config.Metrics.Enabled {
		a.startMetrics()
	}
	a.Progress.Run(ctx)
}

func (a *App) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	a.metricsSrv = &http.Server{
		Addr:              a.Config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("serving metrics", "addr", a.Config.Metrics.Addr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Close ends any open session, flushes progress and releases the backend
// and broker connection.
func (a *App) Close(ctx context.Context) error {
	a.Progress.Close(ctx)

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to stop metrics server", "error", err)
		}
	}
	if a.publisher != nil {
		a.publisher.Stop(ctx)
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Warn("failed to close broker connection", "error", err)
		}
	}
	return a.closeStorage()
}
