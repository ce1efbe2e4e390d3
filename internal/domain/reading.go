package domain

import (
	"encoding/json"
	"strings"
)

// Reading is the canonical per-station measurement of one run. Absent
// measurements are nil and serialize as JSON null.
type Reading struct {
	StationName string   `json:"station_name"`
	StationID   string   `json:"station_id"`
	City        string   `json:"city"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Timestamp   string   `json:"timestamp"`
	AQI         *float64 `json:"aqi"`
	PM25        *float64 `json:"pm25"`
	PM10        *float64 `json:"pm10"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// HasAQI reports whether the headline index is present.
func (r Reading) HasAQI() bool { return r.AQI != nil }

// Normalize shapes a decoded feed into a Reading for ref. It reports false
// when there is no feed to shape.
func Normalize(feed *FeedData, ref StationRef, marker string) (Reading, bool) {
	if feed == nil {
		return Reading{}, false
	}
	return Reading{
		StationName: ref.Name,
		StationID:   ref.ID,
		City:        DeriveCity(ref.Name, marker),
		Latitude:    ref.Latitude,
		Longitude:   ref.Longitude,
		Timestamp:   feed.timestamp(),
		AQI:         ParseAQI(feed.AQI),
		PM25:        feed.measurement(measurePM25),
		PM10:        feed.measurement(measurePM10),
		Temperature: feed.measurement(measureTemperature),
		Humidity:    feed.measurement(measureHumidity),
	}, true
}

// DeriveCity takes the part of a station name before the first comma and
// removes the marker token from it, e.g. "Bangkok (Central), Thailand" with
// marker "Bangkok" yields "(Central)".
func DeriveCity(stationName, marker string) string {
	city, _, _ := strings.Cut(stationName, ",")
	city = strings.TrimSpace(city)
	if marker != "" && strings.Contains(city, marker) {
		city = strings.TrimSpace(strings.ReplaceAll(city, marker, ""))
	}
	return city
}

// ParseAQI coerces the provider's headline index into a finite non-negative
// value. The "-" placeholder, empty or non-numeric strings, non-finite and
// negative values are all absent.
func ParseAQI(raw json.RawMessage) *float64 {
	v := ptrNumber(raw)
	if v == nil || *v < 0 {
		return nil
	}
	return v
}
