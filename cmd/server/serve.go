package main

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/bertybuttface/sponsorblock-mirror/internal/db"
	"github.com/bertybuttface/sponsorblock-mirror/internal/handler"
	"github.com/bertybuttface/sponsorblock-mirror/internal/metrics"
	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
	"github.com/bertybuttface/sponsorblock-mirror/internal/repository"
	"github.com/bertybuttface/sponsorblock-mirror/internal/router"
	"github.com/bertybuttface/sponsorblock-mirror/internal/service"
)

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP API and the reload worker until the context is
// cancelled.
func serve(c *cli.Context) error {
	cfg := configFrom(c)
	ctx := c.Context
	logger := middleware.Logger

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector(reg, cfg.MetricsNamespace, pool)

	cache := service.NewCacheService(cfg.RedisURL, cfg.OriginCacheTTL, logger)
	defer cache.Close()

	origin := service.NewOriginService(service.OriginConfig{
		BaseURL:       cfg.OriginURL,
		Timeout:       cfg.OriginTimeout,
		RatePerSecond: cfg.OriginRate,
		Burst:         cfg.OriginBurst,
	}, cache, m, logger)

	segmentRepo := repository.NewSegmentRepo(pool)
	segments := service.NewSegmentService(segmentRepo, origin, m)

	worker := service.NewReloadWorker(repository.NewSnapshotRepo(pool), service.NewRefreshState(), cache, m, logger,
		service.ReloadWorkerConfig{
			Path:       cfg.CSVPath,
			Interval:   cfg.CheckInterval,
			MinRecheck: cfg.FileCheckInterval,
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		ServerHeader: serviceName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	router.Setup(app, &router.Handlers{
		Segment: handler.NewSegmentHandler(segments),
		Health:  handler.NewHealthHandler(pool, cache.Client()),
		Status:  handler.NewStatusHandler(segmentRepo, worker),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		Metrics:     m,
		Gatherer:    reg,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.BindAddress()).
			Str("env", cfg.Environment).
			Str("version", Version).
			Msg("listening")
		listenErr <- app.Listen(cfg.BindAddress(), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		err = app.ShutdownWithTimeout(shutdownTimeout)
	}

	// The worker stops on ctx; on a listener failure it must be told.
	if ctx.Err() == nil {
		worker.Stop()
	}
	wg.Wait()

	return err
}
