// Package main is the entry point for the epistola controller.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"epistola/internal/config"
	"epistola/internal/contentstore"
	"epistola/internal/controller"
	"epistola/internal/logger"
	"epistola/internal/observability"
	"epistola/internal/store/postgres"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	if *migrateFlag {
		slogger.Info("running database migrations")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		slogger.Info("migrations completed")
	}

	content, err := contentstore.NewFilesystem(cfg.ContentStoreDir)
	if err != nil {
		log.Fatalf("Failed to open content store: %v", err)
	}

	// Tracing
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.Init(ctx, "epistola-controller", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slogger.Warn("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			slogger.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	// Observable gauge that queries the DB only when scraped.
	meter := otel.Meter("epistola-controller")
	_, err = meter.Int64ObservableGauge("epistola.requests.pending",
		metric.WithDescription("Current number of pending generation requests"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := store.CountPending(ctx)
			if err != nil {
				slogger.Warn("failed to count pending requests", "error", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		slogger.Warn("failed to register pending gauge", "error", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		slogger.Info("metrics listening", "port", cfg.MetricsPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.MetricsPort), mux); err != nil {
			slogger.Error("metrics server error", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, store, content, slogger)

	go func() {
		slogger.Info("controller starting", "addr", addr)
		if err := srv.Run(ctx); err != nil {
			slogger.Info("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down controller")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	slogger.Info("server exited properly")
}
