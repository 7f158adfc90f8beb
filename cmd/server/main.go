// Package main runs the bond math service:
// - HTTP API: engine evaluations, bond class registry, auction price feed
// - Snapshot job (scheduled): per-class rate split and liquidity health
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"debond-math/internal/api"
	"debond-math/internal/config"
	"debond-math/internal/engine"
	"debond-math/internal/logging"
	"debond-math/internal/observability"
	"debond-math/internal/snapshot"
	"debond-math/internal/storage"
	chstore "debond-math/internal/storage/clickhouse"
	"debond-math/internal/storage/memory"
	"debond-math/internal/storage/migrations"
	pgstore "debond-math/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	evaluationStore   storage.EvaluationStore
	bondClassStore    storage.BondClassStore
	rateSnapshotStore storage.RateSnapshotStore
}

func main() {
	configPath := flag.String("config", os.Getenv("DEBOND_CONFIG"), "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	observability.Init(cfg.Metrics.Namespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create stores")
	}
	defer cleanup()

	eng := engine.New(engine.Options{
		Journal: stores.evaluationStore,
		Logger:  logger.With().Str("component", "engine").Logger(),
	})

	var scheduler *snapshot.Scheduler
	if cfg.Snapshot.Enabled {
		job := snapshot.NewJob(snapshot.Options{
			Classes:   stores.bondClassStore,
			Snapshots: stores.rateSnapshotStore,
			Logger:    logger.With().Str("component", "snapshot").Logger(),
		})
		scheduler = snapshot.NewScheduler(ctx, job, logger.With().Str("component", "scheduler").Logger())
		if err := scheduler.Register(cfg.Snapshot.Cron); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule snapshots")
		}
		scheduler.Start()
	}

	server := api.New(api.Options{
		Engine:              eng,
		Classes:             stores.bondClassStore,
		Snapshots:           stores.rateSnapshotStore,
		Scheduler:           scheduler,
		Evaluations:         stores.evaluationStore,
		Metrics:             observability.Handler(),
		Logger:              logger.With().Str("component", "http").Logger(),
		RequestTimeout:      cfg.Server.RequestTimeout,
		RateLimit:           cfg.Server.RateLimit,
		RateBurst:           cfg.Server.RateBurst,
		FeedMinInterval:     cfg.Feed.MinInterval,
		FeedDefaultInterval: cfg.Feed.DefaultInterval,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.ListenAndServe(ctx, cfg.Server.Addr)
	if scheduler != nil {
		scheduler.Stop()
	}
	done <- err

	if err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// createStores creates all required stores. Evaluations and bond classes
// live in PostgreSQL when configured; rate snapshots go to ClickHouse when a
// DSN is given and stay in memory otherwise.
func createStores(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*allStores, func(), error) {
	stores := &allStores{
		evaluationStore:   memory.NewEvaluationStore(),
		bondClassStore:    memory.NewBondClassStore(),
		rateSnapshotStore: memory.NewRateSnapshotStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Backend == config.BackendPostgres {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		stores.evaluationStore = pgstore.NewEvaluationStore(pool)
		stores.bondClassStore = pgstore.NewBondClassStore(pool)
		logger.Info().Msg("using postgres for evaluations and bond classes")
	}

	if cfg.ClickhouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })

		stores.rateSnapshotStore = chstore.NewRateSnapshotStore(conn)
		logger.Info().Msg("using clickhouse for rate snapshots")
	}

	return stores, cleanup, nil
}
