// Package waqi implements domain.Provider against the World Air Quality
// Index JSON API.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"golang.org/x/time/rate"
)

const (
	endpointBounds = "bounds"
	endpointFeed   = "feed"

	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Options configures a Client.
type Options struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	MaxRetries int     // extra attempts after the first
}

// Client implements domain.Provider. All requests share one rate limiter.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a WAQI client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   opts.Token,
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		maxRetries: opts.MaxRetries,
		backoff:    initialBackoff,
		metrics:    metrics,
		logger:     logger,
	}
}

// StationsInBounds lists the stations the provider reports inside box.
func (c *Client) StationsInBounds(ctx context.Context, box domain.BoundingBox) ([]domain.StationCandidate, error) {
	params := url.Values{
		"latlng": {box.String()},
		"token":  {c.token},
	}
	data, err := c.get(ctx, c.baseURL+"/v2/map/bounds?"+params.Encode(), endpointBounds)
	if err != nil {
		return nil, err
	}

	var entries []boundsEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode station directory: %w", err)
	}

	out := make([]domain.StationCandidate, 0, len(entries))
	for _, e := range entries {
		id := stationID(e.UID)
		if id == "" {
			c.logger.Debug("skipping station without uid", "name", e.Station.Name)
			continue
		}
		out = append(out, domain.StationCandidate{
			ID:   id,
			Name: e.Station.Name,
			Lat:  e.Lat,
			Lon:  e.Lon,
		})
	}
	return out, nil
}

// Feed returns the latest measurement payload for one station.
func (c *Client) Feed(ctx context.Context, stationID string) (*domain.FeedData, error) {
	params := url.Values{"token": {c.token}}
	u := fmt.Sprintf("%s/feed/@%s/?%s", c.baseURL, url.PathEscape(stationID), params.Encode())

	data, err := c.get(ctx, u, endpointFeed)
	if err != nil {
		return nil, err
	}

	var feed domain.FeedData
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decode feed for station %s: %w", stationID, err)
	}
	return &feed, nil
}

// get performs a rate-limited GET with bounded retry and returns the
// envelope's data field.
func (c *Client) get(ctx context.Context, fullURL, endpoint string) (json.RawMessage, error) {
	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying provider request",
				"endpoint", endpoint,
				"attempt", attempt+1,
				"error", lastErr,
			)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
		}

		data, err := c.do(ctx, fullURL, endpoint)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, fullURL, endpoint string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("%s request: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("waqi API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &retryableError{err: err}
		}
		return nil, err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("waqi API status %q: %s", env.Status, env.message())
	}
	return env.Data, nil
}

// retryableError marks transport failures and throttling/server responses.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
