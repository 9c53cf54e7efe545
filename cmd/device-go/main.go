package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dummy_device/device-go/internal/config"
	"dummy_device/device-go/internal/db"
	"dummy_device/device-go/internal/device"
	"dummy_device/device-go/internal/httpapi"
	"dummy_device/device-go/internal/metrics"
	"dummy_device/device-go/migrations"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLogger := httpapi.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := httpapi.NewLogger(cfg.Logging.Level)
	logger.Info().Msg("initializing device server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug().Str("database_url", cfg.RedactedDatabaseURL()).Int32("max_conns", cfg.Database.MaxConns).Msg("connecting to database")
	pool, err := db.Open(ctx, cfg.Database.URL, db.Options{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if cfg.Database.RunMigrations {
		applied, err := pool.Migrate(ctx, migrations.FS)
		if err != nil {
			logger.Fatal().Err(err).Msg("database migrations failed")
		}
		logger.Info().Strs("applied", applied).Msg("database migrations completed")
	}

	m := metrics.New()
	store := device.NewPostgresStore(logger, pool, m)

	// The service must not serve traffic with a partially seeded store.
	if cfg.Database.SeedDefaults {
		n, err := store.EnsureDefaults(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize default devices")
		}
		logger.Info().Int("inserted", n).Msg("default devices checked")
	}

	h := httpapi.NewHandler(logger, store, pool, httpapi.Options{
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	addr := cfg.ListenAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("device-go listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
