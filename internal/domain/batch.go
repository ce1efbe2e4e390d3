package domain

import "slices"

// Scope labels the area a run covers.
type Scope struct {
	Label string
	Type  string // "city" or "country"
}

// Strategy records how an alert batch was produced.
type Strategy string

const (
	StrategyRemote   Strategy = "remote"
	StrategyFallback Strategy = "fallback"
	// StrategyNone marks a batch with no alertable readings.
	StrategyNone Strategy = "none"
)

// ReadingBatch is the snapshot artifact of one run.
type ReadingBatch struct {
	QueryTimestamp  string    `json:"query_timestamp"`
	Scope           string    `json:"scope"`
	ScopeType       string    `json:"scope_type"`
	TotalStations   int       `json:"total_stations"`
	TotalDataPoints int       `json:"total_data_points"`
	Data            []Reading `json:"data"`
}

// AlertBatch is the alert artifact of one run.
type AlertBatch struct {
	Timestamp   string   `json:"timestamp"`
	Scope       string   `json:"scope"`
	ScopeType   string   `json:"scope_type"`
	TotalAlerts int      `json:"total_alerts"`
	Strategy    Strategy `json:"strategy"`
	Alerts      []Alert  `json:"alerts"`
}

// NewReadingBatch copies readings into a batch ranked by AQI.
func NewReadingBatch(stamp RunStamp, scope Scope, totalStations int, readings []Reading) ReadingBatch {
	data := slices.Clone(readings)
	if data == nil {
		data = []Reading{}
	}
	RankReadings(data)
	return ReadingBatch{
		QueryTimestamp:  stamp.QueryTimestamp(),
		Scope:           scope.Label,
		ScopeType:       scope.Type,
		TotalStations:   totalStations,
		TotalDataPoints: len(data),
		Data:            data,
	}
}

// NewAlertBatch copies alerts into a batch sorted by AQI.
func NewAlertBatch(stamp RunStamp, scope Scope, strategy Strategy, alerts []Alert) AlertBatch {
	items := slices.Clone(alerts)
	if items == nil {
		items = []Alert{}
	}
	SortAlerts(items)
	return AlertBatch{
		Timestamp:   stamp.QueryTimestamp(),
		Scope:       scope.Label,
		ScopeType:   scope.Type,
		TotalAlerts: len(items),
		Strategy:    strategy,
		Alerts:      items,
	}
}

// RunOutput is everything one run produced, handed to optional sinks after
// the artifacts are written.
type RunOutput struct {
	Stamp    RunStamp
	Readings ReadingBatch
	Alerts   AlertBatch
}
