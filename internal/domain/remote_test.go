package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedFixture() []Reading {
	a := reading("Din Daeng", ptr(180))
	a.PM25 = ptr(160)
	b := reading("Bang Na", ptr(120))
	c := reading("Lat Phrao", ptr(60))
	return []Reading{a, b, c}
}

const validRemoteAlert = `{
	"station_name": "Din Daeng",
	"aqi": 999,
	"pm25_level": 1,
	"pm25_type": "Critical",
	"pm10_type": "Normal",
	"temperature_type": "High",
	"humidity_type": "Normal",
	"aqi_level": "Unhealthy",
	"alert_type": "Air Quality Alert",
	"health_implications": "Everyone may feel effects.",
	"recommended_actions": [{"action": "😷 Wear masks", "priority": "Immediate"}]
}`

func TestDecodeRemoteAlerts(t *testing.T) {
	t.Run("valid response takes measurements from readings", func(t *testing.T) {
		alerts, err := DecodeRemoteAlerts(`{"alerts": [`+validRemoteAlert+`]}`, rankedFixture(), 100)

		require.NoError(t, err)
		require.Len(t, alerts, 1)
		a := alerts[0]
		assert.Equal(t, 180.0, a.AQI)
		assert.Equal(t, 160.0, *a.PM25)
		assert.Equal(t, "id-Din Daeng", a.StationID)
		assert.Equal(t, CategoryUnhealthy, a.AQILevel)
		assert.Equal(t, MetricCritical, a.PM25Type)
		assert.Equal(t, MetricHigh, a.TemperatureType)
		assert.Equal(t, "Air Quality Alert", a.AlertType)
	})

	t.Run("fenced block", func(t *testing.T) {
		text := "Here you go:\n```json\n{\"alerts\": [" + validRemoteAlert + "]}\n```"
		alerts, err := DecodeRemoteAlerts(text, rankedFixture(), 100)
		require.NoError(t, err)
		assert.Len(t, alerts, 1)
	})

	t.Run("empty alerts array is valid", func(t *testing.T) {
		alerts, err := DecodeRemoteAlerts(`{"alerts": []}`, rankedFixture(), 100)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("below threshold dropped", func(t *testing.T) {
		low := strings.Replace(validRemoteAlert, "Din Daeng", "Lat Phrao", 1)
		alerts, err := DecodeRemoteAlerts(`{"alerts": [`+validRemoteAlert+`,`+low+`]}`, rankedFixture(), 100)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "Din Daeng", alerts[0].StationName)
	})

	t.Run("sorted by aqi", func(t *testing.T) {
		second := strings.Replace(validRemoteAlert, "Din Daeng", "Bang Na", 1)
		alerts, err := DecodeRemoteAlerts(`{"alerts": [`+second+`,`+validRemoteAlert+`]}`, rankedFixture(), 50)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, "Din Daeng", alerts[0].StationName)
		assert.Equal(t, "Bang Na", alerts[1].StationName)
	})

	invalid := []struct {
		name string
		text string
	}{
		{"not json", "I cannot help with that."},
		{"missing alerts", `{"data": []}`},
		{"unknown station", `{"alerts": [` + strings.Replace(validRemoteAlert, "Din Daeng", "Nowhere", 1) + `]}`},
		{"duplicate station", `{"alerts": [` + validRemoteAlert + `,` + validRemoteAlert + `]}`},
		{"unknown level", `{"alerts": [` + strings.Replace(validRemoteAlert, `"Unhealthy"`, `"Bad"`, 1) + `]}`},
		{"empty alert type", `{"alerts": [` + strings.Replace(validRemoteAlert, "Air Quality Alert", " ", 1) + `]}`},
		{"empty implications", `{"alerts": [` + strings.Replace(validRemoteAlert, "Everyone may feel effects.", "", 1) + `]}`},
		{"no actions", `{"alerts": [` + strings.Replace(validRemoteAlert, `[{"action": "😷 Wear masks", "priority": "Immediate"}]`, `[]`, 1) + `]}`},
		{"bad priority", `{"alerts": [` + strings.Replace(validRemoteAlert, `"Immediate"`, `"Urgent"`, 1) + `]}`},
		{"bad pm type", `{"alerts": [` + strings.Replace(validRemoteAlert, `"Critical"`, `"High"`, 1) + `]}`},
		{"bad ambient type", `{"alerts": [` + strings.Replace(validRemoteAlert, `"temperature_type": "High"`, `"temperature_type": "Critical"`, 1) + `]}`},
		{"alerts not array", `{"alerts": {}}`},
		{"unknown station id", `{"alerts": [` + strings.Replace(validRemoteAlert, `"station_name"`, `"station_id": "id-Nowhere", "station_name"`, 1) + `]}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRemoteAlerts(tt.text, rankedFixture(), 100)
			require.ErrorIs(t, err, ErrRemoteSchema)
		})
	}
}

func TestDecodeRemoteAlerts_SharedStationName(t *testing.T) {
	north := reading("Din Daeng", ptr(180))
	north.StationID = "5773"
	south := reading("Din Daeng", ptr(130))
	south.StationID = "5774"
	ranked := []Reading{north, south}

	withID := func(id string) string {
		return strings.Replace(validRemoteAlert, `"station_name"`, `"station_id": "`+id+`", "station_name"`, 1)
	}

	t.Run("ids tell the stations apart", func(t *testing.T) {
		alerts, err := DecodeRemoteAlerts(`{"alerts": [`+withID("5774")+`,`+withID("5773")+`]}`, ranked, 100)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, "5773", alerts[0].StationID)
		assert.Equal(t, 180.0, alerts[0].AQI)
		assert.Equal(t, "5774", alerts[1].StationID)
		assert.Equal(t, 130.0, alerts[1].AQI)
	})

	t.Run("same id twice is a duplicate", func(t *testing.T) {
		_, err := DecodeRemoteAlerts(`{"alerts": [`+withID("5773")+`,`+withID("5773")+`]}`, ranked, 100)
		require.ErrorIs(t, err, ErrRemoteSchema)
	})

	t.Run("without ids the name matches the first station", func(t *testing.T) {
		alerts, err := DecodeRemoteAlerts(`{"alerts": [`+validRemoteAlert+`]}`, ranked, 100)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "5773", alerts[0].StationID)
	})
}

func TestAlertInstructions(t *testing.T) {
	text := AlertInstructions("Bangkok", 100)
	assert.Contains(t, text, "Only include stations with AQI >= 100.")
	assert.Contains(t, text, "monitoring assistant for Bangkok")
	assert.Contains(t, text, `"station_id" and "station_name" must be copied exactly`)
	assert.NotContains(t, text, "{{")
}

func TestAlertInput(t *testing.T) {
	stamp := RunStamp{QueryTime: fixedQueryTime}
	text, err := AlertInput(stamp, "Bangkok", rankedFixture())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Generate air quality alerts from this data:\n"))
	assert.Contains(t, text, `"total_stations": 3`)
	assert.Contains(t, text, `"query_timestamp": "2024-03-21 13:42:07"`)
}
