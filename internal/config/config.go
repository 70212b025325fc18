// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// Side port serving /metrics
	MetricsPort int

	// Root directory for the filesystem content store
	ContentStoreDir string

	// Worker-specific configuration
	WorkerInstanceID   string
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerMaxBackoff   time.Duration

	// Wall-clock limit for the script expression backend
	ScriptTimeout time.Duration

	// OTLP trace collector endpoint (empty disables tracing)
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbUrl := os.Getenv("DATABASE_URL")
	if dbUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port, err := intEnv("PORT", 6161)
	if err != nil {
		return nil, err
	}

	metricsPort, err := intEnv("METRICS_PORT", 9091)
	if err != nil {
		return nil, err
	}

	contentDir := os.Getenv("CONTENT_STORE_DIR")
	if contentDir == "" {
		contentDir = "./data"
	}

	concurrency, err := intEnv("WORKER_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	pollInterval, err := durationEnv("WORKER_POLL_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, err
	}

	maxBackoff, err := durationEnv("WORKER_MAX_BACKOFF", 30*time.Second)
	if err != nil {
		return nil, err
	}

	scriptTimeout, err := durationEnv("SCRIPT_TIMEOUT", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}

	instanceID := os.Getenv("WORKER_INSTANCE_ID")
	if instanceID == "" {
		instanceID, _ = os.Hostname()
	}

	return &Config{
		DatabaseURL:        dbUrl,
		HTTPPort:           port,
		MetricsPort:        metricsPort,
		ContentStoreDir:    contentDir,
		WorkerInstanceID:   instanceID,
		WorkerConcurrency:  concurrency,
		WorkerPollInterval: pollInterval,
		WorkerMaxBackoff:   maxBackoff,
		ScriptTimeout:      scriptTimeout,
		OTELEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
