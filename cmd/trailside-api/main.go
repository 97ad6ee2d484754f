package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/larsfl/trailside/internal/api"
	"github.com/larsfl/trailside/internal/config"
	"github.com/larsfl/trailside/internal/core"
	"github.com/larsfl/trailside/internal/db"
	"github.com/larsfl/trailside/internal/logging"
	"github.com/larsfl/trailside/internal/metrics"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	metrics.RegisterPgxPoolMetrics(pool)

	// The verifier store is Redis when configured so callbacks can land on
	// any instance; single-instance deployments fall back to process memory.
	var verifiers core.VerifierStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid redis URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		verifiers = core.NewRedisVerifierStore(client, cfg.VerifierTTL)
		logger.Info().Msg("using redis verifier store")
	} else {
		verifiers = core.NewMemoryVerifierStore(cfg.VerifierTTL)
		logger.Info().Msg("using in-memory verifier store")
	}

	provider := core.NewHTTPFitnessProvider(cfg.Fitness)
	services := core.NewServices(pool, provider, verifiers, logger)

	srv := api.NewServer(logger, pool, services, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting trailside API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
