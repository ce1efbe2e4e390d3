package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// SynthesizerOptions carries the two inclusion thresholds. Selection uses
// AlertThreshold; the remote instructions and decode use EnrichmentThreshold.
type SynthesizerOptions struct {
	Scope               string
	AlertThreshold      float64
	EnrichmentThreshold float64
}

// Synthesizer turns readings into alerts, preferring the remote enricher and
// falling back to the local tables for the whole batch on any failure.
type Synthesizer struct {
	enricher domain.TextEnricher
	opts     SynthesizerOptions
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSynthesizer creates a Synthesizer. A nil enricher always uses the
// local fallback.
func NewSynthesizer(enricher domain.TextEnricher, opts SynthesizerOptions, logger *slog.Logger, metrics *observability.Metrics) *Synthesizer {
	return &Synthesizer{enricher: enricher, opts: opts, logger: logger, metrics: metrics}
}

// Synthesize selects, ranks and phrases alerts for readings. The returned
// alerts are sorted by AQI descending.
func (s *Synthesizer) Synthesize(ctx context.Context, stamp domain.RunStamp, readings []domain.Reading) ([]domain.Alert, domain.Strategy) {
	ranked := domain.SelectAlertable(readings, s.opts.AlertThreshold)
	if len(ranked) == 0 {
		return []domain.Alert{}, domain.StrategyNone
	}

	if s.enricher != nil {
		alerts, err := s.remote(ctx, stamp, ranked)
		if err == nil {
			domain.SortAlerts(alerts)
			return alerts, domain.StrategyRemote
		}
		s.logger.Warn("remote enrichment failed, using local alerts",
			"error", err,
			"candidates", len(ranked),
		)
		s.metrics.EnrichmentFallbacks.Inc()
	}

	alerts := domain.FallbackAlerts(ranked)
	domain.SortAlerts(alerts)
	return alerts, domain.StrategyFallback
}

func (s *Synthesizer) remote(ctx context.Context, stamp domain.RunStamp, ranked []domain.Reading) ([]domain.Alert, error) {
	input, err := domain.AlertInput(stamp, s.opts.Scope, ranked)
	if err != nil {
		return nil, err
	}
	text, err := s.enricher.Enrich(ctx, domain.AlertInstructions(s.opts.Scope, s.opts.EnrichmentThreshold), input)
	if err != nil {
		return nil, err
	}
	return domain.DecodeRemoteAlerts(text, ranked, s.opts.EnrichmentThreshold)
}
