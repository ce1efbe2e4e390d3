package domain

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Priority tags a recommended action.
type Priority string

const (
	PriorityImmediate  Priority = "Immediate"
	PriorityPreventive Priority = "Preventive"
	PriorityLongTerm   Priority = "Long-Term"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityImmediate, PriorityPreventive, PriorityLongTerm:
		return true
	}
	return false
}

// MetricType is the per-measurement classification attached to an alert.
type MetricType string

const (
	MetricNormal         MetricType = "Normal"
	MetricAboveThreshold MetricType = "Above Threshold"
	MetricCritical       MetricType = "Critical"
	MetricHigh           MetricType = "High"
	MetricLow            MetricType = "Low"
)

// Fallback thresholds for particulate classification (µg/m³).
const (
	pm25Threshold = 50
	pm10Threshold = 100
)

// RecommendedAction is one line of advice in an alert.
type RecommendedAction struct {
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
}

// Alert is the user-facing record for a reading that cleared the threshold.
type Alert struct {
	StationName        string              `json:"station_name"`
	StationID          string              `json:"station_id"`
	City               string              `json:"city"`
	Latitude           float64             `json:"latitude"`
	Longitude          float64             `json:"longitude"`
	Timestamp          string              `json:"timestamp"`
	AQI                float64             `json:"aqi"`
	PM25               *float64            `json:"pm25_level"`
	PM25Type           MetricType          `json:"pm25_type"`
	PM10               *float64            `json:"pm10_level"`
	PM10Type           MetricType          `json:"pm10_type"`
	Temperature        *float64            `json:"temperature_level"`
	TemperatureType    MetricType          `json:"temperature_type"`
	Humidity           *float64            `json:"humidity_level"`
	HumidityType       MetricType          `json:"humidity_type"`
	AQILevel           SeverityCategory    `json:"aqi_level"`
	AlertType          string              `json:"alert_type"`
	HealthImplications string              `json:"health_implications"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
}

var healthImplications = map[SeverityCategory]string{
	CategoryModerate:              "Air quality is acceptable; however, some pollutants may affect very sensitive individuals.",
	CategoryUnhealthyForSensitive: "Members of sensitive groups may experience health effects. General public is less likely to be affected.",
	CategoryUnhealthy:             "Everyone may begin to experience health effects; members of sensitive groups may experience more serious health effects.",
	CategoryVeryUnhealthy:         "Health alert: The risk of health effects is increased for everyone.",
	CategoryHazardous:             "Health warning of emergency conditions: everyone is more likely to be affected.",
}

const defaultHealthImplication = "Air quality is generally good."

// HealthImplications returns the fixed advisory text for a category.
func HealthImplications(c SeverityCategory) string {
	if text, ok := healthImplications[c]; ok {
		return text
	}
	return defaultHealthImplication
}

// RecommendedActions returns the fixed action list for a category. The
// slice is freshly allocated on each call.
func RecommendedActions(c SeverityCategory) []RecommendedAction {
	base := []RecommendedAction{
		{Action: "😷 Wear masks when outdoors", Priority: PriorityImmediate},
		{Action: "🪟 Keep windows closed during peak pollution", Priority: PriorityPreventive},
	}
	switch c {
	case CategoryUnhealthy, CategoryVeryUnhealthy, CategoryHazardous:
		return []RecommendedAction{
			{Action: "🚫 Avoid outdoor activities", Priority: PriorityImmediate},
			{Action: "🏠 Stay indoors with air purifiers", Priority: PriorityImmediate},
			{Action: "😷 Wear N95 masks if outdoors", Priority: PriorityImmediate},
			{Action: "⚕️ Monitor health symptoms", Priority: PriorityImmediate},
		}
	case CategoryUnhealthyForSensitive:
		return append([]RecommendedAction{
			{Action: "🌳 Sensitive groups should limit outdoor exposure", Priority: PriorityImmediate},
			{Action: "🌬️ Use air purifiers indoors", Priority: PriorityPreventive},
		}, base...)
	default:
		return base
	}
}

// AlertTypeFor renders the alert label, e.g. "Air Quality Danger".
func AlertTypeFor(level AlertLevel) string {
	// A Caser is stateful, so one is built per call.
	return "Air Quality " + cases.Title(language.English).String(string(level))
}

// FallbackAlert builds an alert for r from the fixed local tables. r must
// carry an AQI value.
func FallbackAlert(r Reading) Alert {
	category, level := Classify(r.AQI)
	a := alertFromReading(r)
	a.PM25Type = particulateType(r.PM25, pm25Threshold)
	a.PM10Type = particulateType(r.PM10, pm10Threshold)
	a.TemperatureType = MetricNormal
	a.HumidityType = MetricNormal
	a.AQILevel = category
	a.AlertType = AlertTypeFor(level)
	a.HealthImplications = HealthImplications(category)
	a.RecommendedActions = RecommendedActions(category)
	return a
}

// FallbackAlerts applies FallbackAlert to every reading with an AQI value.
func FallbackAlerts(readings []Reading) []Alert {
	out := make([]Alert, 0, len(readings))
	for _, r := range readings {
		if !r.HasAQI() {
			continue
		}
		out = append(out, FallbackAlert(r))
	}
	return out
}

func alertFromReading(r Reading) Alert {
	a := Alert{
		StationName: r.StationName,
		StationID:   r.StationID,
		City:        r.City,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Timestamp:   r.Timestamp,
		PM25:        r.PM25,
		PM10:        r.PM10,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
	}
	if r.AQI != nil {
		a.AQI = *r.AQI
	}
	return a
}

// particulateType treats an absent measurement as Normal.
func particulateType(v *float64, threshold float64) MetricType {
	if v != nil && *v > threshold {
		return MetricAboveThreshold
	}
	return MetricNormal
}

// SelectAlertable keeps readings whose AQI is present and at or above
// threshold, ranked by RankReadings. The input is not modified.
func SelectAlertable(readings []Reading, threshold float64) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.AQI != nil && *r.AQI >= threshold {
			out = append(out, r)
		}
	}
	RankReadings(out)
	return out
}

// RankReadings sorts in place by AQI descending with absent values last;
// ties break on station name ascending.
func RankReadings(readings []Reading) {
	slices.SortStableFunc(readings, func(a, b Reading) int {
		return compareRank(a.AQI, b.AQI, a.StationName, b.StationName)
	})
}

// SortAlerts sorts in place by AQI descending, ties on station name.
func SortAlerts(alerts []Alert) {
	slices.SortStableFunc(alerts, func(a, b Alert) int {
		if c := cmp.Compare(b.AQI, a.AQI); c != 0 {
			return c
		}
		return cmp.Compare(a.StationName, b.StationName)
	})
}

func compareRank(a, b *float64, nameA, nameB string) int {
	switch {
	case a == nil && b == nil:
		return cmp.Compare(nameA, nameB)
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if c := cmp.Compare(*b, *a); c != 0 {
		return c
	}
	return cmp.Compare(nameA, nameB)
}
