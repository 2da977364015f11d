package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/dispatch"
	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/internal/scanner"
	"github.com/dispatchly/ghostload/internal/source"
	"github.com/dispatchly/ghostload/internal/storage"
	"github.com/dispatchly/ghostload/pkg/cache"
	"github.com/dispatchly/ghostload/pkg/config"
	"github.com/dispatchly/ghostload/pkg/healthprobe"
	"github.com/dispatchly/ghostload/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	components := []string{"http", "scanner"}
	if cfg.SourceMode == "ws" {
		components = append(components, "feed")
	}
	healthChecker := healthprobe.New(components...)

	appCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	registry := opportunity.NewRegistry(&opportunity.RegistryConfig{
		CostPerMile: cfg.TotalCostPerMile,
		Logger:      logger,
	})

	adapter, feed := setupSource(cfg, logger)
	fleetClient := fleet.NewClient(cfg.FleetBaseURL, cfg.FleetTimeout, logger)

	analyzer := insertion.NewAnalyzer(insertion.Params{
		DetourSlackMiles:      cfg.DetourSlackMiles,
		DeadheadCapMiles:      cfg.DeadheadCapMiles,
		AvgSpeedMPH:           cfg.AvgSpeedMPH,
		FuelCostPerMile:       cfg.FuelCostPerMile,
		TotalCostPerMile:      cfg.TotalCostPerMile,
		RequireEquipmentMatch: cfg.RequireEquipmentMatch,
	}, logger)

	optimizer := matching.New(matching.Config{
		MinFeasibility:  cfg.MatchMinFeasibility,
		TopK:            cfg.MatchTopK,
		Workers:         cfg.MatchWorkers,
		SnapshotTimeout: cfg.FleetTimeout,
		Logger:          logger,
	}, registry, fleetClient, analyzer, matching.NewHeuristicAcceptance(time.Now().UnixNano()))

	workflow := assignment.New(&assignment.Config{
		Registry:   registry,
		Candidates: optimizer,
		Store:      store,
		Logger:     logger,
	})
	optimizer.SetGuard(workflow)

	dispatcher := dispatch.New(&dispatch.Config{
		Logger: logger,
		Events: workflow.Events(),
	})

	scan := scanner.New(&scanner.Config{
		Adapter:       adapter,
		Registry:      registry,
		Matcher:       optimizer,
		Store:         store,
		ScanInterval:  cfg.ScanInterval,
		SweepInterval: cfg.RetentionSweep,
		Retention:     cfg.RetentionWindow,
		SourceTimeout: cfg.SourceTimeout,
		Logger:        logger,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Registry:      registry,
		Optimizer:     optimizer,
		Workflow:      workflow,
		Cache:         appCache,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		registry:      registry,
		feed:          feed,
		scanner:       scan,
		optimizer:     optimizer,
		workflow:      workflow,
		dispatcher:    dispatcher,
		storage:       store,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.New(cache.Options{
		MaxEntries: 1024,
		Logger:     logger,
	})
}

// setupSource picks the load-board adapter. The second return value is
// non-nil only for the streaming feed, which needs an explicit start/stop.
func setupSource(cfg *config.Config, logger *zap.Logger) (source.Adapter, *source.Feed) {
	if cfg.SourceMode == "ws" {
		feed := source.NewFeed(&source.FeedConfig{
			URL:         cfg.SourceWSURL,
			BatchLimit:  cfg.SourceBatchLimit,
			BufferSize:  cfg.SourceBatchLimit * 4,
			DialTimeout: cfg.SourceTimeout,
			Logger:      logger,
		})
		return feed, feed
	}

	return source.NewClient(cfg.SourceBaseURL, cfg.SourceBatchLimit, cfg.SourceTimeout, logger), nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}
