package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarker = "Bangkok"

func TestDeriveCity(t *testing.T) {
	tests := []struct {
		name    string
		station string
		marker  string
		want    string
	}{
		{"marker stripped", "Bangkok (Central), Thailand", testMarker, "(Central)"},
		{"marker absent", "Chiang Mai, North", testMarker, "Chiang Mai"},
		{"no comma", "Bang Na Bangkok", testMarker, "Bang Na"},
		{"marker only", "Bangkok, Thailand", testMarker, ""},
		{"whitespace", "  Huai Khwang , Bangkok", testMarker, "Huai Khwang"},
		{"empty marker", "Bangkok (Central), Thailand", "", "Bangkok (Central)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCity(tt.station, tt.marker))
		})
	}
}

func TestParseAQI(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"integer", `152`, ptr(152)},
		{"float", `87.5`, ptr(87.5)},
		{"numeric string", `" 64 "`, ptr(64)},
		{"placeholder", `"-"`, nil},
		{"empty string", `""`, nil},
		{"non-numeric string", `"n/a"`, nil},
		{"NaN string", `"NaN"`, nil},
		{"infinite string", `"Inf"`, nil},
		{"negative", `-3`, nil},
		{"null", `null`, nil},
		{"missing", ``, nil},
		{"boolean", `true`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAQI(json.RawMessage(tt.raw))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNormalize(t *testing.T) {
	ref := StationRef{ID: "5773", Name: "Bangkok (Central), Thailand", Latitude: 13.75, Longitude: 100.5}

	t.Run("full payload", func(t *testing.T) {
		var feed FeedData
		require.NoError(t, json.Unmarshal([]byte(`{
			"aqi": 158,
			"time": {"s": "2024-03-21 13:00:00"},
			"iaqi": {"pm25": {"v": 158}, "pm10": {"v": 62}, "t": {"v": 33.5}, "h": {"v": 48}}
		}`), &feed))

		r, ok := Normalize(&feed, ref, testMarker)

		require.True(t, ok)
		assert.Equal(t, "Bangkok (Central), Thailand", r.StationName)
		assert.Equal(t, "5773", r.StationID)
		assert.Equal(t, "(Central)", r.City)
		assert.Equal(t, 13.75, r.Latitude)
		assert.Equal(t, 100.5, r.Longitude)
		assert.Equal(t, "2024-03-21 13:00:00", r.Timestamp)
		assert.Equal(t, 158.0, *r.AQI)
		assert.Equal(t, 158.0, *r.PM25)
		assert.Equal(t, 62.0, *r.PM10)
		assert.Equal(t, 33.5, *r.Temperature)
		assert.Equal(t, 48.0, *r.Humidity)
	})

	t.Run("sparse payload", func(t *testing.T) {
		var feed FeedData
		require.NoError(t, json.Unmarshal([]byte(`{"aqi": "-", "iaqi": {"pm25": {}}}`), &feed))

		r, ok := Normalize(&feed, ref, testMarker)

		require.True(t, ok)
		assert.Nil(t, r.AQI)
		assert.Nil(t, r.PM25)
		assert.Nil(t, r.PM10)
		assert.Nil(t, r.Temperature)
		assert.Nil(t, r.Humidity)
		assert.Empty(t, r.Timestamp)
	})

	t.Run("no payload", func(t *testing.T) {
		_, ok := Normalize(nil, ref, testMarker)
		assert.False(t, ok)
	})
}

func TestReadingJSONKeepsAbsentAsNull(t *testing.T) {
	r := Reading{StationName: "a", StationID: "1", AQI: ptr(0), PM25: nil}

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Contains(t, decoded, "pm25")
	assert.Nil(t, decoded["pm25"])
	assert.Equal(t, 0.0, decoded["aqi"])

	var back Reading
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r, back)
}
