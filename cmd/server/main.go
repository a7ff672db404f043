/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tariff engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (CONFIG_PATH file and/or environment)
  2. Build the zap logger for the configured env and level
  3. Open the tariff store (SQLite or PostgreSQL) and migrate it
  4. Seed an empty store with STORAGE_SEED_PRESET, when set
  5. Create API handler and router
  6. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go. Common variables:
    HTTP_ADDRESS            Listen address (default :8080)
    STORAGE_DRIVER          sqlite | postgres
    STORAGE_SQLITE_PATH     SQLite file, ":memory:" for in-memory
    STORAGE_POSTGRES_DSN    PostgreSQL connection string
    STORAGE_SEED_PRESET     carro | moto | sem-extra
    LOG_LEVEL               debug | info | warn | error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with an in-memory demo table
  STORAGE_SQLITE_PATH=":memory:" STORAGE_SEED_PRESET=carro ./server

  # Run against PostgreSQL
  STORAGE_DRIVER=postgres STORAGE_POSTGRES_DSN=postgres://... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Storage
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/tariff-engine/api"
	"github.com/warp/tariff-engine/config"
	"github.com/warp/tariff-engine/store/postgres"
	"github.com/warp/tariff-engine/store/sqlite"
	"github.com/warp/tariff-engine/tariff"
)

type store interface {
	api.Store
	Close() error
}

func main() {
	cfg := config.MustLoad()

	logger, err := newLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("server")

	log.Debug("configuration loaded", zap.String("config", cfg.String()))

	// Initialize store
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to initialize store", zap.String("driver", cfg.Driver), zap.Error(err))
	}
	defer st.Close()

	// Initialize handler
	handler := api.NewHandler(st, cfg.EngineOptions(), logger)
	handler.FetchTimeout = cfg.FetchTimeout

	if cfg.SeedPreset != "" {
		if err := seed(context.Background(), handler, cfg.SeedPreset); err != nil {
			log.Fatal("failed to seed store", zap.String("preset", cfg.SeedPreset), zap.Error(err))
		}
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting",
			zap.String("address", cfg.Address),
			zap.String("env", cfg.Env),
			zap.String("driver", cfg.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(env, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if env == "local" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		lite, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return lite, nil
	}
}

// seed loads preset into the store unless it already holds rates.
func seed(ctx context.Context, h *api.Handler, preset string) error {
	rates, err := h.Store.ListRates(ctx, tariff.RateFilter{})
	if err != nil {
		return err
	}
	if len(rates) > 0 {
		return nil
	}
	return h.LoadPreset(ctx, preset)
}
