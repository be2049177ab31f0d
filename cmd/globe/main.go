package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/emissions-globe-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/emissions-globe-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/emissions-globe-service/internal/adapter/kafka"
	"github.com/couchcryptid/emissions-globe-service/internal/adapter/owid"
	"github.com/couchcryptid/emissions-globe-service/internal/config"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
	"github.com/couchcryptid/emissions-globe-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cache.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open artifact cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("artifact cache opened", "backend", cfg.CacheBackend)

	source := owid.NewCachedSource(owid.NewClient(cfg, metrics, logger), store, metrics, logger)

	// Snapshot publication is feature-flagged via KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publication enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot publication disabled")
	}

	p := pipeline.New(source, store, publisher, clockwork.NewRealClock(), logger, metrics)

	// The table is built before the server starts listening.
	if _, err := p.Build(ctx); err != nil {
		logger.Error("failed to build region table", "error", err)
		closeAll(logger, closeStore, writer)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeAll(logger, closeStore, writer)

	logger.Info("shutdown complete")
}

func closeAll(logger *slog.Logger, closeStore func() error, writer *kafkaadapter.Writer) {
	if err := closeStore(); err != nil {
		logger.Error("artifact cache close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}
