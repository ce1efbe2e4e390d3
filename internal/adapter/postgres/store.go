// Package postgres keeps an hourly reading history in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS air_quality;

CREATE TABLE IF NOT EXISTS air_quality.stations (
	station_id   TEXT PRIMARY KEY,
	station_name TEXT NOT NULL,
	city         TEXT NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS air_quality.readings (
	station_id   TEXT NOT NULL REFERENCES air_quality.stations (station_id),
	query_hour   TIMESTAMPTZ NOT NULL,
	queried_at   TIMESTAMPTZ NOT NULL,
	observed_at  TEXT NOT NULL,
	aqi          DOUBLE PRECISION,
	pm25         DOUBLE PRECISION,
	pm10         DOUBLE PRECISION,
	temperature  DOUBLE PRECISION,
	humidity     DOUBLE PRECISION,
	category     TEXT NOT NULL,
	PRIMARY KEY (station_id, query_hour)
);`

const upsertStationSQL = `
INSERT INTO air_quality.stations (station_id, station_name, city, latitude, longitude, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (station_id) DO UPDATE SET
	station_name = EXCLUDED.station_name,
	city         = EXCLUDED.city,
	latitude     = EXCLUDED.latitude,
	longitude    = EXCLUDED.longitude,
	updated_at   = EXCLUDED.updated_at`

const upsertReadingSQL = `
INSERT INTO air_quality.readings
	(station_id, query_hour, queried_at, observed_at, aqi, pm25, pm10, temperature, humidity, category)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (station_id, query_hour) DO UPDATE SET
	queried_at  = EXCLUDED.queried_at,
	observed_at = EXCLUDED.observed_at,
	aqi         = EXCLUDED.aqi,
	pm25        = EXCLUDED.pm25,
	pm10        = EXCLUDED.pm10,
	temperature = EXCLUDED.temperature,
	humidity    = EXCLUDED.humidity,
	category    = EXCLUDED.category`

// Store upserts the readings of each run. It implements pipeline.Sink.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore wraps db.
func NewStore(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// EnsureSchema creates the schema and tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Store writes every reading of the run in one transaction. Rows are keyed
// by station and query hour, so a rerun within the same hour overwrites.
func (s *Store) Store(ctx context.Context, out domain.RunOutput) error {
	readings := out.Readings.Data
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hour := out.Stamp.Hour()
	for _, r := range readings {
		if _, err := tx.Exec(ctx, upsertStationSQL,
			r.StationID, r.StationName, r.City, r.Latitude, r.Longitude, out.Stamp.QueryTime,
		); err != nil {
			return fmt.Errorf("postgres: upsert station %s: %w", r.StationID, err)
		}
		if _, err := tx.Exec(ctx, upsertReadingSQL,
			r.StationID, hour, out.Stamp.QueryTime, r.Timestamp,
			nullable(r.AQI), nullable(r.PM25), nullable(r.PM10), nullable(r.Temperature), nullable(r.Humidity),
			domain.CategoryFor(r.AQI).String(),
		); err != nil {
			return fmt.Errorf("postgres: upsert reading %s: %w", r.StationID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.Debug("readings stored", "count", len(readings), "query_hour", hour)
	return nil
}

// nullable maps an absent measurement to SQL NULL.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
