package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for run stamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

const (
	queryTimestampLayout = "2006-01-02 15:04:05"
	fileStampLayout      = "2006-01-02_1504"
)

// RunStamp pins the instant a pipeline run queried the provider.
type RunStamp struct {
	QueryTime time.Time
}

// NewRunStamp captures the current time from the package clock.
func NewRunStamp() RunStamp {
	return RunStamp{QueryTime: clock.Now()}
}

// Hour returns the query time rounded down to the start of its hour.
func (s RunStamp) Hour() time.Time {
	t := s.QueryTime
	// time.Truncate works on absolute time and would misplace zones with
	// half-hour offsets, so rebuild the instant in its own location.
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// QueryTimestamp formats the exact query instant, e.g. "2024-03-21 13:42:07".
func (s RunStamp) QueryTimestamp() string {
	return s.QueryTime.Format(queryTimestampLayout)
}

// FileStamp formats the top-of-hour stamp used in artifact names, e.g. "2024-03-21_1300".
func (s RunStamp) FileStamp() string {
	return s.Hour().Format(fileStampLayout)
}
