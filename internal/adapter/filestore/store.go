// Package filestore persists run artifacts as JSON files under a root
// directory and finds the latest artifact of each kind.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// ErrNotFound is returned when no artifact of the requested kind exists.
var ErrNotFound = errors.New("artifact not found")

// Kind identifies an artifact family.
type Kind struct {
	Dir  string
	Name string
}

var (
	KindReadings = Kind{Dir: "hourly", Name: "aqi_data"}
	KindAlerts   = Kind{Dir: "alerts", Name: "alerts"}
	KindStats    = Kind{Dir: "hourly", Name: "aqi_stats"}
)

// Store writes and reads artifacts named {prefix}_{kind}_{stamp}.json.
type Store struct {
	root   string
	prefix string
}

// New creates a Store rooted at root.
func New(root, prefix string) *Store {
	return &Store{root: root, prefix: prefix}
}

// Path returns the artifact path for kind at stamp.
func (s *Store) Path(kind Kind, stamp domain.RunStamp) string {
	return filepath.Join(s.root, kind.Dir, fmt.Sprintf("%s_%s_%s.json", s.prefix, kind.Name, stamp.FileStamp()))
}

// WriteReadings persists the snapshot batch.
func (s *Store) WriteReadings(stamp domain.RunStamp, batch domain.ReadingBatch) (string, error) {
	return s.write(s.Path(KindReadings, stamp), batch)
}

// WriteAlerts persists the alert batch.
func (s *Store) WriteAlerts(stamp domain.RunStamp, batch domain.AlertBatch) (string, error) {
	return s.write(s.Path(KindAlerts, stamp), batch)
}

// WriteStats persists the per-city statistics report.
func (s *Store) WriteStats(stamp domain.RunStamp, report domain.StatsReport) (string, error) {
	return s.write(s.Path(KindStats, stamp), report)
}

// LatestReadings loads the most recent snapshot batch.
func (s *Store) LatestReadings() (domain.ReadingBatch, string, error) {
	var batch domain.ReadingBatch
	path, err := s.readLatest(KindReadings, &batch)
	return batch, path, err
}

// LatestAlerts loads the most recent alert batch.
func (s *Store) LatestAlerts() (domain.AlertBatch, string, error) {
	var batch domain.AlertBatch
	path, err := s.readLatest(KindAlerts, &batch)
	return batch, path, err
}

// LatestPath returns the newest artifact of kind. File stamps sort
// chronologically, so the lexicographic maximum is the latest.
func (s *Store) LatestPath(kind Kind) (string, error) {
	pattern := filepath.Join(s.root, kind.Dir, fmt.Sprintf("%s_%s_*.json", s.prefix, kind.Name))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, pattern)
	}
	return slices.Max(matches), nil
}

func (s *Store) readLatest(kind Kind, v any) (string, error) {
	path, err := s.LatestPath(kind)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return path, nil
}

// write encodes v into a temp file next to path and renames it into place.
func (s *Store) write(path string, v any) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename into %s: %w", path, err)
	}
	return path, nil
}
