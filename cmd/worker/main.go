// Package main is the entry point for the epistola worker.
// The worker claims pending generation requests, renders them and stores
// the resulting documents.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"epistola/internal/config"
	"epistola/internal/contentstore"
	"epistola/internal/expr"
	"epistola/internal/generation"
	"epistola/internal/logger"
	"epistola/internal/observability"
	"epistola/internal/render"
	"epistola/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	content, err := contentstore.NewFilesystem(cfg.ContentStoreDir)
	if err != nil {
		log.Fatalf("Failed to open content store: %v", err)
	}

	// Tracing
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.Init(ctx, "epistola-worker", cfg.OTELEndpoint)
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

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		slogger.Info("worker metrics listening", "port", cfg.MetricsPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.MetricsPort), mux); err != nil {
			slogger.Error("metrics server error", "error", err)
		}
	}()

	dispatcher := expr.NewDispatcher()
	dispatcher.Register(expr.LangScript, expr.NewScriptEvaluator(cfg.ScriptTimeout))

	poller := generation.NewPoller(store, content, render.New(dispatcher), generation.PollerConfig{
		InstanceID:   cfg.WorkerInstanceID,
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		MaxBackoff:   cfg.WorkerMaxBackoff,
	}, slogger)

	slogger.Info("worker started", "concurrency", cfg.WorkerConcurrency)
	go poller.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slogger.Info("shutting down worker")
	cancel()

	select {
	case <-poller.Done():
	case <-time.After(2 * time.Minute):
		slogger.Warn("timed out waiting for in-flight renders")
	}
}
