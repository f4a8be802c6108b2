// Package app initializes and holds long-lived harvester services, acting as a dependency
// injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/api"
	"github.com/JakeFAU/hoops-harvester/internal/clock/system"
	"github.com/JakeFAU/hoops-harvester/internal/config"
	"github.com/JakeFAU/hoops-harvester/internal/document"
	"github.com/JakeFAU/hoops-harvester/internal/fetcher/archive"
	collyfetcher "github.com/JakeFAU/hoops-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/hoops-harvester/internal/fetcher/retry"
	"github.com/JakeFAU/hoops-harvester/internal/fetcher/throttle"
	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/hash/sha256"
	"github.com/JakeFAU/hoops-harvester/internal/id/uuid"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
	"github.com/JakeFAU/hoops-harvester/internal/profile"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
	"github.com/JakeFAU/hoops-harvester/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/hoops-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/hoops-harvester/internal/resume"
	"github.com/JakeFAU/hoops-harvester/internal/roster"
	"github.com/JakeFAU/hoops-harvester/internal/storage/gcs"
	"github.com/JakeFAU/hoops-harvester/internal/storage/local"
	"github.com/JakeFAU/hoops-harvester/internal/storage/memory"
	"github.com/JakeFAU/hoops-harvester/internal/storage/postgres"
	"github.com/JakeFAU/hoops-harvester/internal/store"
	"github.com/JakeFAU/hoops-harvester/internal/syncer"
	"github.com/JakeFAU/hoops-harvester/internal/telemetry"
)

// Option overrides a collaborator New would otherwise build from configuration.
type Option func(*options)

type options struct {
	transport  harvest.Fetcher
	blobs      harvest.BlobStore
	publisher  harvest.Publisher
	registerer prometheus.Registerer
	clock      harvest.Clock
	ids        harvest.IDGenerator
}

// WithTransport replaces the colly fetcher at the bottom of the fetch chain.
func WithTransport(f harvest.Fetcher) Option {
	return func(o *options) { o.transport = f }
}

// WithBlobStore replaces the archive blob store.
func WithBlobStore(b harvest.BlobStore) Option {
	return func(o *options) { o.blobs = b }
}

// WithPublisher replaces the Pub/Sub publisher used for progress notifications.
func WithPublisher(p harvest.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithRegisterer registers progress collectors with reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock replaces the system clock.
func WithClock(c harvest.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces the UUIDv7 run id generator.
func WithIDGenerator(ids harvest.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// App holds the shared, long-lived services for one harvester process.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       harvest.Store
	runs        store.RunRepository
	tracker     *progress.Tracker
	hub         *progress.Hub
	coordinator *syncer.Coordinator
	server      *api.Server
	closers     []func() error
}

// New builds every service from cfg. It fails fast if a backing service cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = system.New()
	}
	if o.ids == nil {
		o.ids = uuid.New()
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.ServiceName)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})
	logger.Info("initializing harvester services",
		zap.String("source", cfg.Source.BaseURL),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("archive", cfg.Archive.Enabled),
	)

	fetcher, err := a.buildFetcher(ctx, o)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}

	checks, err := a.buildStores(ctx, o)
	if err != nil {
		_ = a.closeAll()
		return nil, err
	}

	if err := a.buildProgress(ctx, o); err != nil {
		_ = a.closeAll()
		return nil, err
	}

	parser := document.NewParser()
	a.coordinator = syncer.New(
		roster.NewIndexer(fetcher, parser, cfg.Source.BaseURL, logger),
		profile.NewScraper(fetcher, parser, cfg.Source.BaseURL, logger),
		resume.NewResolver(a.store, cfg.MissPolicy(), logger),
		a.store,
		a.hub,
		o.clock,
		o.ids,
		syncer.Config{MaxInFlight: cfg.Sync.MaxInFlight},
		logger,
	)
	a.server = api.NewServer(api.NewRunHandler(a.runs, a.tracker, logger), checks, logger)

	logger.Info("harvester services initialized")
	return a, nil
}

// buildFetcher assembles transport, throttle, retry and the optional archive in that order.
func (a *App) buildFetcher(ctx context.Context, o options) (harvest.Fetcher, error) {
	transport := o.transport
	if transport == nil {
		transport = collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.Source.UserAgent,
			RespectRobots: a.cfg.Source.RespectRobots,
			Timeout:       a.cfg.RequestTimeout(),
		})
	}
	var chain harvest.Fetcher = throttle.New(transport, throttle.Config{
		RequestsPerSecond: a.cfg.Throttle.RequestsPerSecond,
		Burst:             a.cfg.Throttle.Burst,
	})
	chain = retry.New(chain, retry.Policy{
		MaxRetries: a.cfg.HTTP.MaxRetries,
		BaseDelay:  time.Duration(a.cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(a.cfg.HTTP.BackoffMaxMs) * time.Millisecond,
	}, a.logger)

	if !a.cfg.Archive.Enabled {
		return chain, nil
	}
	blobs := o.blobs
	if blobs == nil {
		var err error
		blobs, err = a.openBlobStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	return archive.New(chain, blobs, sha256.New(), archive.Config{Prefix: a.cfg.Archive.Prefix}, a.logger), nil
}

func (a *App) openBlobStore(ctx context.Context) (harvest.BlobStore, error) {
	switch a.cfg.Archive.Driver {
	case config.DriverGCS:
		blobs, err := gcs.Dial(ctx, gcs.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("open gcs archive: %w", err)
		}
		a.closers = append(a.closers, blobs.Close)
		a.logger.Info("archiving pages to gcs", zap.String("bucket", a.cfg.Archive.GCSBucket))
		return blobs, nil
	case config.DriverLocal:
		blobs, err := local.New(local.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("open local archive: %w", err)
		}
		a.logger.Info("archiving pages to disk", zap.String("dir", a.cfg.Archive.BaseDir))
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown archive driver: %s", a.cfg.Archive.Driver)
	}
}

func (a *App) buildStores(ctx context.Context, o options) ([]api.Check, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		a.logger.Info("connecting to postgres")
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      a.cfg.DB.DSN,
			MaxConns: a.cfg.DB.MaxConns,
			MinConns: a.cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		st, err := postgres.NewStore(pool, o.clock)
		if err != nil {
			return nil, err
		}
		runs, err := postgres.NewRunStore(pool)
		if err != nil {
			return nil, err
		}
		a.store, a.runs = st, runs
		return []api.Check{{Name: "postgres", Fn: pool.Ping}}, nil
	case config.DriverMemory:
		a.logger.Info("using in-memory store; nothing survives the process")
		a.store, a.runs = memory.NewStore(o.clock), memory.NewRunStore()
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", a.cfg.Storage.Driver)
	}
}

func (a *App) buildProgress(ctx context.Context, o options) error {
	a.tracker = progress.NewTracker()
	promSink, err := sinks.NewPrometheusSink(o.registerer)
	if err != nil {
		return err
	}
	sinkList := []progress.Sink{
		a.tracker,
		sinks.NewLogSink(a.logger),
		promSink,
		sinks.NewStoreSink(a.runs, a.logger),
	}

	pub := o.publisher
	if pub == nil && a.cfg.PubSub.TopicName != "" {
		a.logger.Info("publishing progress to pubsub", zap.String("topic", a.cfg.PubSub.TopicName))
		ps, err := pubsubpublisher.New(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("failed to initialize publisher: %w", err)
		}
		a.closers = append(a.closers, ps.Close)
		pub = ps
	}
	if pub != nil {
		sinkList = append(sinkList, sinks.NewPublisherSink(pub, sinks.PublisherSinkConfig{
			Topic: a.cfg.PubSub.TopicName,
		}, a.logger))
	}

	a.hub = progress.NewHub(progress.Config{Logger: a.logger}, sinkList...)
	return nil
}

// Sync runs one sync to completion.
func (a *App) Sync(ctx context.Context, rc syncer.RunConfig) (syncer.Summary, error) {
	return a.coordinator.Run(ctx, rc)
}

// Serve runs the status server until ctx is canceled. It returns immediately when no
// listen address is configured.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Status.ListenAddr == "" {
		return nil
	}
	a.logger.Info("status server listening", zap.String("addr", a.cfg.Status.ListenAddr))
	return a.server.ListenAndServe(ctx, a.cfg.Status.ListenAddr)
}

// Handler exposes the status routes.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Store returns the player and stats store.
func (a *App) Store() harvest.Store {
	return a.store
}

// Runs returns the run history repository.
func (a *App) Runs() store.RunRepository {
	return a.runs
}

// Tracker returns the live run status.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close drains pending progress events, then releases backing services in reverse order.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("shutting down harvester services")
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close progress hub: %w", err))
		}
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
