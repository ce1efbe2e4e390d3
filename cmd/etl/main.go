package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	anthropicadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/anthropic"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/postgres"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/waqi"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := waqi.NewClient(waqi.Options{
		Token:      cfg.WAQIToken,
		BaseURL:    cfg.WAQIBaseURL,
		Timeout:    cfg.WAQITimeout,
		RateLimit:  cfg.WAQIRateLimit,
		MaxRetries: cfg.WAQIMaxRetries,
	}, metrics, logger)

	// Remote alert phrasing is feature-flagged via ENRICHMENT_ENABLED / ANTHROPIC_API_KEY.
	var enricher domain.TextEnricher
	if cfg.EnrichmentEnabled {
		enricher = anthropicadapter.NewEnricher(anthropicadapter.Options{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.EnrichmentMaxTokens,
			Timeout:   cfg.EnrichmentTimeout,
		})
		logger.Info("remote enrichment enabled", "model", cfg.AnthropicModel, "threshold", cfg.EnrichmentThreshold)
	} else {
		logger.Info("remote enrichment disabled, using local alerts")
	}

	synth := pipeline.NewSynthesizer(enricher, pipeline.SynthesizerOptions{
		Scope:               cfg.Scope.Label,
		AlertThreshold:      cfg.AlertThreshold,
		EnrichmentThreshold: cfg.EnrichmentThreshold,
	}, logger, metrics)

	store := filestore.New(cfg.OutputDir, cfg.FilePrefix)

	var sinks []pipeline.Sink
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka alert publication enabled", "topic", cfg.KafkaAlertTopic)
	}
	if cfg.PostgresEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres pool init failed, history disabled", "error", err)
		} else {
			defer pool.Close()
			pg := postgres.NewStore(pool, logger)
			if err := pg.EnsureSchema(ctx); err != nil {
				logger.Error("postgres schema init failed, history disabled", "error", err)
			} else {
				sinks = append(sinks, pg)
				logger.Info("postgres reading history enabled")
			}
		}
	}

	p := pipeline.New(provider, synth, store, sinks, pipeline.Options{
		Bounds:     cfg.Bounds,
		Scope:      cfg.Scope,
		CityMarker: cfg.CityMarker,
	}, logger, metrics)

	if !cfg.LoopMode() {
		res, err := p.RunOnce(ctx)
		if err != nil {
			logger.Error("run failed", "error", err)
			return 1
		}
		logger.Info("artifacts written", "paths", res.Paths)
		return 0
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := p.Run(ctx, cfg.RunInterval); err != nil {
		logger.Error("pipeline error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
