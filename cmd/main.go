// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/config"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/database"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/handler"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/logging"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository/memory"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/service"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// ── 1. Configuration, logging, tracing ───────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// ── 2. Open the backing store ────────────────────────────────────────
	classes, roadmaps, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	bookingSvc := service.NewBookingService(classes)
	roadmapSvc := service.NewRoadmapService(roadmaps)
	h := handler.New(bookingSvc, roadmapSvc)

	// ── 4. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(h, logger, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT, SIGTERM or a listener failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStores builds the class and roadmap stores for the configured driver.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.ClassStore, repository.RoadmapStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		store := memory.New()
		return store, store, func() {}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return store, store, func() { _ = store.Close() }, nil

	default:
		pool, err := database.NewPool(ctx, cfg.DB, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		return postgres.NewClassRepository(pool), postgres.NewRoadmapRepository(pool), pool.Close, nil
	}
}
