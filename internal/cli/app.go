package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanrevenue/internal/amqp"
	"fanrevenue/internal/backend"
	"fanrevenue/internal/bucket"
	"fanrevenue/internal/cache"
	"fanrevenue/internal/config"
	"fanrevenue/internal/core"
	applog "fanrevenue/internal/log"
	"fanrevenue/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired service and the resources it owns.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Service *services.BucketService
	Primary *backend.BackendResult

	events *amqp.Client
	caches *cache.Manager
}

// Bootstrap wires the primary repository, the snapshot cache, the optional
// event publisher and the bucket service from cfg.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	primary, err := InitPrimary(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Primary: primary,
		caches:  cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger),
	}

	var opts []bucket.Option
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("initialize AMQP client: %w", err)
		}
		app.events = client
		opts = append(opts, bucket.WithObserver(
			amqp.NewNotifier(client, logger.WithComponent(applog.ComponentAMQP).Logger)))
		logger.Info("Bucket events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Bucket events disabled - no AMQP_URL provided")
	}

	snapshots := cache.NewSnapshots(cfg.SnapshotCacheSize, cfg.SnapshotCacheTTL)
	app.caches.Register(snapshots)
	app.caches.StartCleanup(cacheCleanupInterval)

	app.Service = services.NewBucketService(
		bucket.NewStore(opts...),
		primary.Repository,
		snapshots,
		core.NewNormalizer(core.NewDateParser(loc)),
		services.RetryConfig{MaxRetries: cfg.PersistMaxRetries, Backoff: cfg.PersistRetryBackoff},
		logger.WithComponent(applog.ComponentService).Logger,
	)
	return app, nil
}

// Ready pings the primary repository when it supports it.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Primary.Repository.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close stops cache cleanup and releases the broker and repository.
func (a *App) Close() error {
	a.caches.Stop()
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	errs = append(errs, a.Primary.Close())
	return errors.Join(errs...)
}
