package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bertybuttface/sponsorblock-mirror/internal/config"
	"github.com/bertybuttface/sponsorblock-mirror/internal/db"
	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
	"github.com/bertybuttface/sponsorblock-mirror/internal/repository"
	"github.com/bertybuttface/sponsorblock-mirror/internal/service"
)

const serviceName = "sponsorblock-mirror"

// newCLIApp creates the CLI application. Running it without a command
// serves.
func newCLIApp() *cli.App {
	return &cli.App{
		Name:    serviceName,
		Usage:   "Read-through SponsorBlock mirror",
		Version: Version,
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			middleware.InitLogger(cfg.LogLevel, serviceName)
			c.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and keep the mirror fresh",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Action: migrateCmd,
			},
			{
				Name:   "reload",
				Usage:  "Import the snapshot file once, regardless of its age, and exit",
				Action: reloadCmd,
			},
		},
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func migrateCmd(c *cli.Context) error {
	cfg := configFrom(c)
	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	middleware.Logger.Info().Msg("schema up to date")
	return nil
}

func reloadCmd(c *cli.Context) error {
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

	cache := service.NewCacheService(cfg.RedisURL, cfg.OriginCacheTTL, logger)
	defer cache.Close()

	// A fresh state has never applied anything, so the file is imported
	// whatever its mtime.
	worker := service.NewReloadWorker(repository.NewSnapshotRepo(pool), service.NewRefreshState(), cache, nil, logger,
		service.ReloadWorkerConfig{Path: cfg.CSVPath})

	outcome, err := worker.RunOnce(ctx)
	if err != nil {
		return err
	}
	if outcome != service.OutcomeImported {
		return fmt.Errorf("snapshot not imported: %s", outcome)
	}
	return nil
}
