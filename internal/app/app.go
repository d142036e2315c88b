// Package app assembles the service from configuration: stores, fetchers,
// extraction, workers, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/api"
	"github.com/eventlens/crawler/internal/clock/system"
	"github.com/eventlens/crawler/internal/config"
	"github.com/eventlens/crawler/internal/dispatcher"
	"github.com/eventlens/crawler/internal/extraction"
	"github.com/eventlens/crawler/internal/extraction/gemini"
	"github.com/eventlens/crawler/internal/fetcher"
	collyfetcher "github.com/eventlens/crawler/internal/fetcher/colly"
	"github.com/eventlens/crawler/internal/fetcher/detector"
	"github.com/eventlens/crawler/internal/fetcher/headless"
	"github.com/eventlens/crawler/internal/fetcher/ratelimit"
	"github.com/eventlens/crawler/internal/fetcher/robots"
	"github.com/eventlens/crawler/internal/id/uuid"
	"github.com/eventlens/crawler/internal/ingest"
	pubsubpublisher "github.com/eventlens/crawler/internal/publisher/pubsub"
	queuememory "github.com/eventlens/crawler/internal/queue/memory"
	"github.com/eventlens/crawler/internal/review"
	"github.com/eventlens/crawler/internal/storage/gcs"
	"github.com/eventlens/crawler/internal/storage/local"
	storagememory "github.com/eventlens/crawler/internal/storage/memory"
	storememory "github.com/eventlens/crawler/internal/store/memory"
	"github.com/eventlens/crawler/internal/store/postgres"
	"github.com/eventlens/crawler/internal/worker"
)

// App holds the assembled long-lived services.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	server   *http.Server
	dispatch *dispatcher.Dispatcher
	headless *headless.Fetcher
	closers  []func()
}

// New builds the full service graph from config. It fails fast when a
// configured backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	websites, structures, jobs, events, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}

	blobStore, err := a.buildBlobStore(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	queue := queuememory.NewQueue(cfg.Crawler.QueueDepth)
	clock := system.New()
	idGen := uuid.New()

	fetch, err := a.buildFetcher()
	if err != nil {
		return nil, err
	}

	extractor, err := a.buildExtractor()
	if err != nil {
		return nil, err
	}

	workers := make([]*worker.Worker, 0, cfg.Crawler.Workers)
	for i := 0; i < cfg.Crawler.Workers; i++ {
		workers = append(workers, worker.New(
			queue, websites, structures, jobs, events,
			fetch, extractor, blobStore, idGen, clock,
			worker.Config{
				RawContentMaxChars: cfg.Crawler.RawContentMaxChars,
				ContentType:        cfg.Storage.ContentType,
				BlobPrefix:         cfg.Storage.Prefix,
			},
			logger.Named("worker"),
		))
	}
	a.dispatch = dispatcher.New(queue, workers)

	reviewOpts := []review.Option{}
	if publisher != nil {
		reviewOpts = append(reviewOpts, review.WithPublisher(publisher, cfg.PubSub.Topic))
	}
	reviews := review.New(events, clock, logger.Named("review"), reviewOpts...)

	apiServer := api.NewServer(
		websites, structures, jobs, events, reviews, a.dispatch,
		idGen, clock,
		api.Config{
			RequestTimeout: cfg.RequestTimeout(),
			AuthEnabled:    cfg.Auth.Enabled,
			APIKey:         cfg.Auth.APIKey,
		},
		logger.Named("api"),
	)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the workers and the HTTP server, then blocks until the context
// finishes and everything has shut down.
func (a *App) Run(ctx context.Context) error {
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.dispatch.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", zap.Error(err))
	}
	<-dispatchDone
	a.close()
	return nil
}

func (a *App) close() {
	if a.headless != nil {
		a.headless.Close()
	}
	for _, fn := range a.closers {
		fn()
	}
	// Best-effort flush; stderr sync fails on some platforms.
	_ = a.logger.Sync()
}

func (a *App) buildStores(ctx context.Context) (ingest.WebsiteStore, ingest.StructureStore, ingest.JobStore, ingest.EventStore, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("using in-memory stores")
		return storememory.NewWebsiteStore(), storememory.NewStructureStore(),
			storememory.NewJobStore(), storememory.NewEventStore(), nil
	}
	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
		MinConns: a.cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.logger.Info("connected to postgres")
	return postgres.NewWebsiteStore(pool), postgres.NewStructureStore(pool),
		postgres.NewJobStore(pool), postgres.NewEventStore(pool), nil
}

func (a *App) buildBlobStore(ctx context.Context) (ingest.BlobStore, error) {
	switch a.cfg.Storage.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.logger.Info("archiving raw content to gcs", zap.String("bucket", a.cfg.Storage.Bucket))
		return gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.Bucket})
	case "local":
		a.logger.Info("archiving raw content locally", zap.String("dir", a.cfg.Storage.BaseDir))
		return local.New(local.Config{BaseDir: a.cfg.Storage.BaseDir})
	default:
		return storagememory.NewBlobStore(), nil
	}
}

func (a *App) buildPublisher(ctx context.Context) (ingest.Publisher, error) {
	if a.cfg.PubSub.Topic == "" {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	pub, err := pubsubpublisher.New(client)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	a.logger.Info("publishing approvals to pubsub", zap.String("topic", a.cfg.PubSub.Topic))
	return pub, nil
}

func (a *App) buildFetcher() (ingest.Fetcher, error) {
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Crawler.UserAgent,
	})
	rendered, err := headless.New(headless.Config{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.Crawler.UserAgent,
		NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
		StabilizeWait:     time.Duration(a.cfg.Headless.StabilizeWaitMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create headless fetcher: %w", err)
	}
	a.headless = rendered

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   a.cfg.Crawler.DefaultRPS,
		DefaultBurst: a.cfg.Crawler.DefaultBurst,
	})
	router := fetcher.NewRouter(static, rendered,
		fetcher.WithLimiter(limiter),
		fetcher.WithPromoter(detector.NewHeuristic(0)),
		fetcher.WithGate(robots.New(a.cfg.Crawler.RespectRobots, a.cfg.Crawler.UserAgent, a.logger.Named("robots"))),
	)
	return fetcher.NewRetryController(
		router,
		a.logger.Named("fetch"),
		fetcher.WithMaxRetries(a.cfg.Crawler.MaxRetries),
	), nil
}

func (a *App) buildExtractor() (worker.Extractor, error) {
	client, err := gemini.New(gemini.Config{
		APIKey:  a.cfg.Extraction.APIKey,
		Model:   a.cfg.Extraction.Model,
		Timeout: time.Duration(a.cfg.Extraction.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create extraction client: %w", err)
	}
	return extraction.NewAdapter(client, a.cfg.Extraction.MaxContentChars, a.logger.Named("extract")), nil
}
