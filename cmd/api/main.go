package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/calvales/co2scope/internal/adapters/http"
	"github.com/calvales/co2scope/internal/adapters/netcdf"
	"github.com/calvales/co2scope/internal/core/usecases"
	"github.com/calvales/co2scope/internal/pkg/config"
	"github.com/calvales/co2scope/internal/pkg/logging"
	"github.com/calvales/co2scope/internal/pkg/telemetry"
	"github.com/calvales/co2scope/internal/scheduler"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load("co2scope-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Granule collection
	store := netcdf.NewStore(cfg.Data.Dir, cfg.Data.Pattern)
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("data directory: %v", err)
	}

	// Use cases
	selectorSvc := usecases.NewSelectorService(store, usecases.SelectorConfig{
		GridVisibleZoom: cfg.Selector.GridVisibleZoom,
		DensePointsZoom: cfg.Selector.DensePointsZoom,
		SparseStride:    cfg.Selector.SparseStride,
		XCO2Min:         cfg.Selector.XCO2Min,
		XCO2Max:         cfg.Selector.XCO2Max,
	})
	catalogSvc := usecases.NewCatalogService(store, clockwork.NewRealClock())

	// Catalog refresh scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(catalogSvc, time.Duration(cfg.Scheduler.RefreshMinutes)*time.Minute)

		// Warm the catalog at boot so readiness has numbers right away
		go func() {
			warmCtx, warmCancel := context.WithTimeout(ctx, 2*time.Minute)
			defer warmCancel()
			sched.RunOnce(warmCtx)
		}()

		if err := sched.Start(); err != nil {
			slog.Warn("catalog scheduler failed to start", "error", err)
		}
	}

	deps := &http.Dependencies{
		Selector: selectorSvc,
		Catalog:  catalogSvc,
		Granules: store,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CO2Scope API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.Origins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "data_dir", cfg.Data.Dir)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	if sched != nil {
		sched.Stop()
	}

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
