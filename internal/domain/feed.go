package domain

import "encoding/json"

// FeedData is the "data" object of a per-station feed response. Every field
// the pipeline reads is optional; numeric leaves stay raw so that the
// provider's "-" placeholder survives decoding.
type FeedData struct {
	AQI  json.RawMessage            `json:"aqi"`
	Time *FeedTime                  `json:"time"`
	IAQI map[string]FeedMeasurement `json:"iaqi"`
}

// FeedTime carries the provider-reported observation time.
type FeedTime struct {
	S string `json:"s"`
}

// FeedMeasurement is a single individual-index entry such as iaqi.pm25.
type FeedMeasurement struct {
	V json.RawMessage `json:"v"`
}

// Measurement keys used by the provider's iaqi object.
const (
	measurePM25        = "pm25"
	measurePM10        = "pm10"
	measureTemperature = "t"
	measureHumidity    = "h"
)

func (f *FeedData) measurement(key string) *float64 {
	if f == nil || f.IAQI == nil {
		return nil
	}
	m, ok := f.IAQI[key]
	if !ok {
		return nil
	}
	return ptrNumber(m.V)
}

func (f *FeedData) timestamp() string {
	if f == nil || f.Time == nil {
		return ""
	}
	return f.Time.S
}

func ptrNumber(raw json.RawMessage) *float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &v
}
