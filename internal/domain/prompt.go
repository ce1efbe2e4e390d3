package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const alertInstructionsTemplate = `You are an air quality monitoring assistant for {{SCOPE}}. Analyze the station readings supplied by the user and generate alerts. Respond with a single valid JSON object and nothing else.

1. AQI level categories (use these exact names for "aqi_level"):
   - Good (0-50)
   - Moderate (51-100)
   - Unhealthy for Sensitive Groups (101-150): alert_type "Air Quality Advisory"
   - Unhealthy (151-200): alert_type "Air Quality Alert"
   - Very Unhealthy (201-300): alert_type "Air Quality Warning"
   - Hazardous (>300): alert_type "Air Quality Warning"
   For Good and Moderate stations use alert_type "Air Quality Notice".

2. Metric context:
   - "pm25_type" and "pm10_type": one of "Normal", "Above Threshold", "Critical"
   - "temperature_type" and "humidity_type": one of "Normal", "High", "Low"

3. Health implications: one or two sentences describing the health impact for the station's level.

4. Recommended actions: a non-empty array of {"action": string, "priority": string} where priority is one of "Immediate", "Preventive", "Long-Term". Prefix each action with a fitting emoji.
   - Advisory: sensitive individuals limit outdoor activity, keep windows closed, monitor symptoms (Preventive)
   - Alert: everyone reduces outdoor activity and wears masks (Immediate), air purifiers and closed windows (Preventive)
   - Warning: avoid outdoor activity, stay indoors with purifiers, N95 masks, seek medical help for breathing difficulty (all Immediate)

Output format:
{"alerts": [{"station_id": string, "station_name": string, "city": string, "latitude": number, "longitude": number, "timestamp": string, "aqi": number, "pm25_level": number|null, "pm25_type": string, "pm10_level": number|null, "pm10_type": string, "temperature_level": number|null, "temperature_type": string, "humidity_level": number|null, "humidity_type": string, "aqi_level": string, "alert_type": string, "health_implications": string, "recommended_actions": [{"action": string, "priority": string}]}]}

Rules:
1. Only include stations with AQI >= {{THRESHOLD}}.
2. "station_id" and "station_name" must be copied exactly from the input.
3. Numeric values are numbers, not strings. Keep null for missing measurements.
4. Include every field for each alert.
5. Sort alerts by AQI descending.`

// AlertInstructions renders the fixed instruction text for the enricher.
func AlertInstructions(scope string, threshold float64) string {
	return strings.NewReplacer(
		"{{SCOPE}}", scope,
		"{{THRESHOLD}}", strconv.FormatFloat(threshold, 'f', -1, 64),
	).Replace(alertInstructionsTemplate)
}

type alertInput struct {
	QueryTimestamp string    `json:"query_timestamp"`
	Scope          string    `json:"scope"`
	TotalStations  int       `json:"total_stations"`
	Data           []Reading `json:"data"`
}

// AlertInput renders the ranked readings as the enricher's user message.
func AlertInput(stamp RunStamp, scope string, ranked []Reading) (string, error) {
	payload, err := json.MarshalIndent(alertInput{
		QueryTimestamp: stamp.QueryTimestamp(),
		Scope:          scope,
		TotalStations:  len(ranked),
		Data:           ranked,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal alert input: %w", err)
	}
	return "Generate air quality alerts from this data:\n" + string(payload), nil
}
