// Package pipeline runs the discovery-to-artifact flow once or on an interval.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// ArtifactWriter persists the per-run JSON artifacts.
type ArtifactWriter interface {
	WriteReadings(stamp domain.RunStamp, batch domain.ReadingBatch) (string, error)
	WriteAlerts(stamp domain.RunStamp, batch domain.AlertBatch) (string, error)
	WriteStats(stamp domain.RunStamp, report domain.StatsReport) (string, error)
}

// Sink receives a finished run. Failures are logged and never fail the run.
type Sink interface {
	Name() string
	Store(ctx context.Context, out domain.RunOutput) error
}

// Options configures what a run covers.
type Options struct {
	Bounds     domain.BoundingBox
	Scope      domain.Scope
	CityMarker string
}

// Result summarizes one completed run.
type Result struct {
	Stamp    domain.RunStamp
	Stations int
	Readings int
	Alerts   int
	Strategy domain.Strategy
	Paths    []string
}

// Pipeline orchestrates discovery, collection, alerting and persistence.
type Pipeline struct {
	provider    domain.Provider
	synthesizer *Synthesizer
	writer      ArtifactWriter
	sinks       []Sink
	opts        Options
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Pipeline. Sinks run in order after the artifacts are written.
func New(p domain.Provider, s *Synthesizer, w ArtifactWriter, sinks []Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		provider:    p,
		synthesizer: s,
		writer:      w,
		sinks:       sinks,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// RunOnce executes a single run. Only an empty or unavailable station
// directory, cancellation and artifact write failures are returned as errors.
// A cancelled run writes nothing, so an earlier snapshot for the same hour
// stays intact.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	start := time.Now()
	stamp := domain.NewRunStamp()

	refs, err := domain.FetchStations(ctx, p.provider, p.opts.Bounds)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(outcomeFor(err)).Inc()
		return Result{Stamp: stamp}, err
	}
	p.metrics.StationsDiscovered.Set(float64(len(refs)))
	p.logger.Info("stations discovered", "count", len(refs), "bounds", p.opts.Bounds.String())

	readings := p.collect(ctx, refs)
	if err := p.checkAborted(ctx); err != nil {
		return Result{Stamp: stamp}, err
	}

	alerts, strategy := p.synthesizer.Synthesize(ctx, stamp, readings)
	if err := p.checkAborted(ctx); err != nil {
		return Result{Stamp: stamp}, err
	}

	out := domain.RunOutput{
		Stamp:    stamp,
		Readings: domain.NewReadingBatch(stamp, p.opts.Scope, len(refs), readings),
		Alerts:   domain.NewAlertBatch(stamp, p.opts.Scope, strategy, alerts),
	}

	paths, err := p.writeArtifacts(out, readings)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("failed").Inc()
		return Result{Stamp: stamp}, err
	}

	p.metrics.ReadingsTotal.Add(float64(len(readings)))
	p.metrics.AlertsTotal.WithLabelValues(string(strategy)).Add(float64(len(alerts)))

	p.store(ctx, out)

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logSummary(out, readings)
	return Result{
		Stamp:    stamp,
		Stations: len(refs),
		Readings: len(readings),
		Alerts:   len(alerts),
		Strategy: strategy,
		Paths:    paths,
	}, nil
}

// Run executes a run immediately and then every interval until ctx is
// cancelled. Failed runs are logged and the next tick is awaited.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "interval", interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// collect fetches and normalizes each station in discovery order. A station
// that cannot be fetched is omitted.
func (p *Pipeline) collect(ctx context.Context, refs []domain.StationRef) []domain.Reading {
	readings := make([]domain.Reading, 0, len(refs))
	for _, ref := range refs {
		feed, ok := domain.FetchReading(ctx, p.provider, ref, p.logger)
		if !ok {
			p.metrics.StationFetches.WithLabelValues("failed").Inc()
			continue
		}
		r, ok := domain.Normalize(feed, ref, p.opts.CityMarker)
		if !ok {
			p.metrics.StationFetches.WithLabelValues("dropped").Inc()
			continue
		}
		p.metrics.StationFetches.WithLabelValues("ok").Inc()
		readings = append(readings, r)
	}
	return readings
}

func (p *Pipeline) writeArtifacts(out domain.RunOutput, readings []domain.Reading) ([]string, error) {
	readingsPath, err := p.writer.WriteReadings(out.Stamp, out.Readings)
	if err != nil {
		return nil, fmt.Errorf("write readings: %w", err)
	}
	alertsPath, err := p.writer.WriteAlerts(out.Stamp, out.Alerts)
	if err != nil {
		return nil, fmt.Errorf("write alerts: %w", err)
	}
	paths := []string{readingsPath, alertsPath}

	if len(readings) > 0 {
		statsPath, err := p.writer.WriteStats(out.Stamp, domain.BuildStats(readings))
		if err != nil {
			return nil, fmt.Errorf("write stats: %w", err)
		}
		paths = append(paths, statsPath)
	}
	return paths, nil
}

func (p *Pipeline) store(ctx context.Context, out domain.RunOutput) {
	for _, s := range p.sinks {
		if err := s.Store(ctx, out); err != nil {
			p.logger.Warn("sink failed", "sink", s.Name(), "error", err)
			p.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
		}
	}
}

func (p *Pipeline) logSummary(out domain.RunOutput, readings []domain.Reading) {
	summary := domain.BuildStats(readings).Summary
	attrs := []any{
		"query_timestamp", out.Readings.QueryTimestamp,
		"stations", out.Readings.TotalStations,
		"readings", out.Readings.TotalDataPoints,
		"cities", summary.CitiesCovered,
		"alerts", out.Alerts.TotalAlerts,
		"strategy", out.Alerts.Strategy,
	}
	if summary.AQI != nil {
		attrs = append(attrs, "aqi_mean", summary.AQI.Mean, "aqi_max", summary.AQI.Max)
	}
	if len(summary.TopStations) > 0 {
		attrs = append(attrs, "top_station", summary.TopStations[0].StationName)
	}
	p.logger.Info("run complete", attrs...)
}

// checkAborted reports a cancelled context as an aborted run.
func (p *Pipeline) checkAborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		p.metrics.RunsTotal.WithLabelValues("aborted").Inc()
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

func outcomeFor(err error) string {
	if errors.Is(err, domain.ErrEmptyResult) {
		return "empty"
	}
	return "failed"
}
