package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"golang.org/x/sync/errgroup"

	"LeakScanner/internal/config"
	"LeakScanner/internal/dedup"
	"LeakScanner/internal/domain"
	"LeakScanner/internal/guard"
	"LeakScanner/internal/infrastructure/artifacts"
	"LeakScanner/internal/infrastructure/breach"
	"LeakScanner/internal/infrastructure/dashboard"
	"LeakScanner/internal/infrastructure/eventlog"
	"LeakScanner/internal/infrastructure/fetch"
	firestoresink "LeakScanner/internal/infrastructure/firestore"
	"LeakScanner/internal/infrastructure/forum"
	"LeakScanner/internal/infrastructure/gist"
	"LeakScanner/internal/infrastructure/paste"
	pubsubsink "LeakScanner/internal/infrastructure/pubsub"
	"LeakScanner/internal/infrastructure/scheduler"
	"LeakScanner/internal/infrastructure/secrets"
	"LeakScanner/internal/infrastructure/storage"
	"LeakScanner/internal/infrastructure/telegram"
	"LeakScanner/internal/logging"
	"LeakScanner/internal/metrics"
	"LeakScanner/internal/ports"
	"LeakScanner/internal/scanner"
	"LeakScanner/internal/signals"
	"LeakScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *scanner.Registry
	pipeline *usecase.Pipeline
	listings map[domain.SourceKind]*usecase.ListingIngest
	guard    *guard.Guard
	metrics  *metrics.Metrics
	sinks    *eventlog.Fanout
	closers  []func() error
}

// New resolves secret references, opens storage and sinks and registers
// every enabled source.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{
		cfg:      cfg,
		logger:   baseLogger.With("component", "app"),
		registry: scanner.NewRegistry(),
		listings: map[domain.SourceKind]*usecase.ListingIngest{},
	}

	if err := a.build(ctx, baseLogger); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context, baseLogger *slog.Logger) error {
	if secrets.References(&a.cfg) {
		resolver, err := secrets.NewResolver(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		a.closers = append(a.closers, resolver.Close)
		if err := resolver.ResolveConfig(ctx, &a.cfg); err != nil {
			return err
		}
	}
	cfg := a.cfg

	provider, err := guard.NewHostProvider(cfg.Guard.DiskPath, cfg.Guard.CPUWindow)
	if err != nil {
		return fmt.Errorf("%w: host metrics: %w", domain.ErrConfiguration, err)
	}
	a.guard = guard.New(cfg.Guard, provider, baseLogger.With("component", "guard"))
	a.metrics = metrics.New(a.guard.Active)

	var db *storage.DB
	if cfg.Storage.DSN != "" {
		if strings.EqualFold(cfg.Storage.Driver, "sqlite") || cfg.Storage.Driver == "" {
			if err := ensureDir(cfg.Storage.DSN); err != nil {
				return err
			}
		}
		db, err = storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
	}

	a.sinks, err = a.buildSinks(ctx, db, baseLogger)
	if err != nil {
		return err
	}

	var artifactStore ports.ArtifactStore
	if cfg.Artifacts.Dir != "" {
		artifactStore = artifacts.NewStore(cfg.Artifacts.Dir)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Guard:      a.guard,
		Sink:       a.sinks,
		Artifacts:  artifactStore,
		Extractor:  signals.NewExtractor(cfg.Watchlist),
		Thresholds: cfg.Thresholds,
		Delays:     cfg.Delays,
		Metrics:    a.metrics,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	if err := a.registerSources(ctx, db, baseLogger); err != nil {
		return err
	}

	a.logger.Info("application ready",
		"sources", a.registry.Kinds(),
		"sinks", a.sinks.Len(),
		"storage", cfg.Storage.Driver,
	)
	return nil
}

func (a *Application) buildSinks(ctx context.Context, db *storage.DB, baseLogger *slog.Logger) (*eventlog.Fanout, error) {
	cfg := a.cfg.Sinks
	var sinks []eventlog.Named

	if cfg.EventLog != "" {
		events, err := eventlog.Open(cfg.EventLog)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, events.Close)
		sinks = append(sinks, eventlog.Named{Name: "eventlog", Sink: events})
	}

	if cfg.SQL && db != nil {
		sinks = append(sinks, eventlog.Named{Name: "sql", Sink: storage.NewEventStore(db)})
	}

	if cfg.Dashboard.URL != "" {
		sinks = append(sinks, eventlog.Named{Name: "dashboard", Sink: dashboard.NewClient(cfg.Dashboard.URL, cfg.Dashboard.APIKey)})
	}

	if cfg.PubSub.Project != "" && cfg.PubSub.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.Project)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		publisher := pubsubsink.NewPublisher(client, cfg.PubSub.Topic, baseLogger.With("component", "sink.pubsub"))
		a.closers = append(a.closers, func() error {
			publisher.Stop()
			return client.Close()
		})
		sinks = append(sinks, eventlog.Named{Name: "pubsub", Sink: publisher})
	}

	if cfg.Firestore.Project != "" {
		client, err := firestore.NewClient(ctx, cfg.Firestore.Project)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		sinks = append(sinks, eventlog.Named{Name: "firestore", Sink: firestoresink.NewStore(client, cfg.Firestore.Collection)})
	}

	if cfg.Notify.BotToken != "" && cfg.Notify.ChatID != "" {
		minSeverity := domain.SeverityUnscored
		if cfg.Notify.MinSeverity != "" {
			minSeverity = domain.Severity(cfg.Notify.MinSeverity)
		}
		notifier := telegram.NewNotifier(a.cfg.Sources.Telegram.APIURL, cfg.Notify.BotToken, cfg.Notify.ChatID, minSeverity,
			baseLogger.With("component", "sink.telegram"))
		sinks = append(sinks, eventlog.Named{Name: "telegram", Sink: notifier})
	}

	if len(sinks) == 0 {
		a.logger.Warn("no event sinks configured; events are only logged")
	}
	return eventlog.NewFanout(sinks...), nil
}

func (a *Application) registerSources(ctx context.Context, db *storage.DB, baseLogger *slog.Logger) error {
	cfg := a.cfg
	direct := fetch.New(fetch.NewClient(nil), cfg.Fetch, baseLogger.With("component", "fetch"))

	if cfg.Sources.Paste.Enabled {
		a.registry.Register(paste.New(cfg.Sources.Paste.BaseURL, direct, baseLogger.With("component", "source.paste")))
	}

	if cfg.Sources.Gist.Enabled {
		adapter, err := gist.New(ctx, cfg.Sources.Gist.Token, cfg.Sources.Gist.APIURL, direct, baseLogger.With("component", "source.gist"))
		if err != nil {
			return err
		}
		a.registry.Register(adapter)
	}

	if cfg.Sources.Forum.Enabled {
		transport, err := forum.NewProxyTransport(cfg.Sources.Forum.Proxy)
		if err != nil {
			return err
		}
		logger := baseLogger.With("component", "source.forum")
		proxied := fetch.New(fetch.NewClient(transport), cfg.Fetch, logger)
		a.registry.Register(forum.New(forum.Options{
			Boards:    cfg.Sources.Forum.Boards,
			Keywords:  cfg.Sources.Forum.Keywords,
			UserAgent: cfg.Fetch.UserAgent,
		}, transport, proxied, logger))
	}

	if cfg.Sources.Telegram.Enabled {
		tg := cfg.Sources.Telegram
		a.registry.Register(telegram.NewSubscriber(telegram.Options{
			APIURL:            tg.APIURL,
			BotToken:          tg.BotToken,
			Chats:             tg.Chats,
			AllowedExtensions: tg.AllowedExtensions,
			MaxSizeBytes:      tg.MaxSizeBytes,
			PollTimeout:       tg.PollTimeout,
		}, &http.Client{}, direct, baseLogger.With("component", "source.telegram")))
	}

	if cfg.Sources.Breach.Enabled {
		bc := cfg.Sources.Breach
		logger := baseLogger.With("component", "source.breach")

		var render breach.Renderer
		if bc.Render {
			render = breach.ChromeRenderer(cfg.Fetch.UserAgent, cfg.Fetch.FullTimeout)
		}
		source := breach.New(bc.URL, direct, render, logger)
		a.registry.RegisterListing(source)

		archive, err := dedup.OpenArchive(bc.ArchivePath, logger)
		if err != nil {
			return err
		}
		var keys ports.DedupStore = archive
		if db != nil {
			keys = storage.NewDedupStore(db)
		}
		a.listings[source.Kind()] = usecase.NewListingIngest(usecase.ListingDeps{
			Source:  source,
			Dedup:   keys,
			Archive: archive,
			Sink:    a.sinks,
			Metrics: a.metrics,
			Logger:  baseLogger.With("component", "listing"),
		})
	}

	return nil
}

// Run schedules every enabled source and serves metrics until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	sched := usecase.NewScheduler(
		usecase.NewClassifier(a.pipeline, 16, a.logger.With("component", "classifier")),
		a.logger.With("component", "scheduler"),
	)

	for _, kind := range a.registry.Kinds() {
		if adapter, err := a.registry.Resolve(kind); err == nil {
			if _, push := adapter.(ports.Subscriber); push {
				continue
			}
			sched.AddBatch(a.pipeline, adapter, scheduler.NewTicker(a.interval(kind)), a.limit(kind))
			continue
		}
		if ingest, ok := a.listings[kind]; ok {
			sched.AddListing(ingest, scheduler.NewTicker(a.interval(kind)), a.limit(kind))
		}
	}
	for _, sub := range a.registry.Subscribers() {
		sched.AddSubscriber(sub)
	}

	periodic, standing := sched.Tasks()
	if periodic+standing == 0 {
		return fmt.Errorf("%w: no sources enabled", domain.ErrConfiguration)
	}
	a.logger.Info("scheduler starting", "periodic", periodic, "subscriptions", standing)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })
	if addr := a.cfg.Metrics.Listen; addr != "" {
		g.Go(func() error { return a.metrics.Serve(ctx, addr, a.logger) })
	}
	return g.Wait()
}

// RunOnce performs a single pass over one source.
func (a *Application) RunOnce(ctx context.Context, kind domain.SourceKind) (usecase.BatchReport, error) {
	if ingest, ok := a.listings[kind]; ok {
		return ingest.Run(ctx, a.limit(kind)), nil
	}
	adapter, err := a.registry.Resolve(kind)
	if err != nil {
		return usecase.BatchReport{}, err
	}
	return a.pipeline.RunBatch(ctx, adapter, a.limit(kind)), nil
}

// Sources lists the registered source kinds.
func (a *Application) Sources() []domain.SourceKind {
	return a.registry.Kinds()
}

// Close releases clients and files in reverse order of creation.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) interval(kind domain.SourceKind) time.Duration {
	s := a.cfg.Sources
	switch kind {
	case domain.SourcePaste:
		return s.Paste.Interval
	case domain.SourceGist:
		return s.Gist.Interval
	case domain.SourceForum:
		return s.Forum.Interval
	case domain.SourceBreach:
		return s.Breach.Interval
	}
	return 0
}

func (a *Application) limit(kind domain.SourceKind) int {
	s := a.cfg.Sources
	switch kind {
	case domain.SourcePaste:
		return s.Paste.Limit
	case domain.SourceGist:
		return s.Gist.Limit
	case domain.SourceForum:
		return s.Forum.Limit
	case domain.SourceBreach:
		return s.Breach.Limit
	}
	return 0
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return nil
}
