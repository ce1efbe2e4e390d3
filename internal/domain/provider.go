package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// Provider is the air-quality data source.
type Provider interface {
	// StationsInBounds returns the raw station directory for box.
	StationsInBounds(ctx context.Context, box BoundingBox) ([]StationCandidate, error)

	// Feed returns the latest measurement payload for one station.
	Feed(ctx context.Context, stationID string) (*FeedData, error)
}

// FetchStations queries the directory, keeps the stations inside box and
// drops duplicate ids. Provider failures are reported as
// ErrUpstreamUnavailable; an empty filtered list as ErrEmptyResult.
func FetchStations(ctx context.Context, p Provider, box BoundingBox) ([]StationRef, error) {
	candidates, err := p.StationsInBounds(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("%w: station directory: %w", ErrUpstreamUnavailable, err)
	}
	refs := DedupeStations(FilterInBounds(candidates, box))
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no stations inside %s", ErrEmptyResult, box)
	}
	return refs, nil
}

// FetchReading retrieves the feed for ref. Any failure degrades to (nil,
// false) after logging so the caller can continue with the next station.
func FetchReading(ctx context.Context, p Provider, ref StationRef, logger *slog.Logger) (*FeedData, bool) {
	feed, err := p.Feed(ctx, ref.ID)
	if err != nil {
		logger.Warn("station fetch failed",
			"station_id", ref.ID,
			"station_name", ref.Name,
			"error", err,
		)
		return nil, false
	}
	if feed == nil {
		logger.Warn("station feed empty", "station_id", ref.ID, "station_name", ref.Name)
		return nil, false
	}
	return feed, true
}
