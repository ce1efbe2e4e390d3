package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// TextEnricher phrases alerts through a remote text-generation service.
type TextEnricher interface {
	Enrich(ctx context.Context, instructions, input string) (string, error)
}

type remoteEnvelope struct {
	Alerts *[]remoteAlert `json:"alerts"`
}

type remoteAlert struct {
	StationID          string              `json:"station_id"`
	StationName        string              `json:"station_name"`
	AQILevel           string              `json:"aqi_level"`
	AlertType          string              `json:"alert_type"`
	HealthImplications string              `json:"health_implications"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
	PM25Type           MetricType          `json:"pm25_type"`
	PM10Type           MetricType          `json:"pm10_type"`
	TemperatureType    MetricType          `json:"temperature_type"`
	HumidityType       MetricType          `json:"humidity_type"`
}

var (
	particulateTypes = []MetricType{MetricNormal, MetricAboveThreshold, MetricCritical}
	ambientTypes     = []MetricType{MetricNormal, MetricHigh, MetricLow}
)

// DecodeRemoteAlerts validates the enricher's response against the ranked
// readings it was given. Measurements come from the matching reading, text
// fields from the response. Alerts for readings below threshold are dropped.
// Any structural problem is reported as ErrRemoteSchema.
func DecodeRemoteAlerts(text string, ranked []Reading, threshold float64) ([]Alert, error) {
	var env remoteEnvelope
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteSchema, err)
	}
	if env.Alerts == nil {
		return nil, fmt.Errorf("%w: missing alerts array", ErrRemoteSchema)
	}

	byID := make(map[string]Reading, len(ranked))
	byName := make(map[string]Reading, len(ranked))
	for _, r := range ranked {
		if _, ok := byID[r.StationID]; !ok && r.StationID != "" {
			byID[r.StationID] = r
		}
		if _, ok := byName[r.StationName]; !ok {
			byName[r.StationName] = r
		}
	}

	seen := make(map[string]struct{}, len(*env.Alerts))
	out := make([]Alert, 0, len(*env.Alerts))
	for i, ra := range *env.Alerts {
		// An echoed station_id takes precedence over the name.
		var (
			r  Reading
			ok bool
		)
		if id := strings.TrimSpace(ra.StationID); id != "" {
			r, ok = byID[id]
		} else {
			r, ok = byName[ra.StationName]
		}
		if !ok {
			return nil, fmt.Errorf("%w: alert %d names unknown station %q (id %q)", ErrRemoteSchema, i, ra.StationName, ra.StationID)
		}
		key := r.StationID
		if key == "" {
			key = r.StationName
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate alert for station %q", ErrRemoteSchema, ra.StationName)
		}
		seen[key] = struct{}{}

		a, err := ra.toAlert(r)
		if err != nil {
			return nil, fmt.Errorf("%w: alert %d (%s): %w", ErrRemoteSchema, i, ra.StationName, err)
		}
		if a.AQI < threshold || r.AQI == nil {
			continue
		}
		out = append(out, a)
	}
	SortAlerts(out)
	return out, nil
}

func (ra remoteAlert) toAlert(r Reading) (Alert, error) {
	category, ok := ParseSeverityCategory(ra.AQILevel)
	if !ok || category == CategoryUnknown {
		return Alert{}, fmt.Errorf("aqi_level %q is not a known category", ra.AQILevel)
	}
	if strings.TrimSpace(ra.AlertType) == "" {
		return Alert{}, fmt.Errorf("alert_type is empty")
	}
	if strings.TrimSpace(ra.HealthImplications) == "" {
		return Alert{}, fmt.Errorf("health_implications is empty")
	}
	if len(ra.RecommendedActions) == 0 {
		return Alert{}, fmt.Errorf("recommended_actions is empty")
	}
	for j, act := range ra.RecommendedActions {
		if strings.TrimSpace(act.Action) == "" {
			return Alert{}, fmt.Errorf("recommended action %d is empty", j)
		}
		if !act.Priority.Valid() {
			return Alert{}, fmt.Errorf("recommended action %d has priority %q", j, act.Priority)
		}
	}
	checks := []struct {
		field   string
		value   MetricType
		allowed []MetricType
	}{
		{"pm25_type", ra.PM25Type, particulateTypes},
		{"pm10_type", ra.PM10Type, particulateTypes},
		{"temperature_type", ra.TemperatureType, ambientTypes},
		{"humidity_type", ra.HumidityType, ambientTypes},
	}
	for _, c := range checks {
		if !slices.Contains(c.allowed, c.value) {
			return Alert{}, fmt.Errorf("%s %q is not allowed", c.field, c.value)
		}
	}

	a := alertFromReading(r)
	a.PM25Type = ra.PM25Type
	a.PM10Type = ra.PM10Type
	a.TemperatureType = ra.TemperatureType
	a.HumidityType = ra.HumidityType
	a.AQILevel = category
	a.AlertType = strings.TrimSpace(ra.AlertType)
	a.HealthImplications = strings.TrimSpace(ra.HealthImplications)
	a.RecommendedActions = ra.RecommendedActions
	return a, nil
}

// extractJSONObject tolerates a fenced code block or leading prose around
// the JSON object.
func extractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
