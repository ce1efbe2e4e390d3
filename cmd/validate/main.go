// Command validate checks the latest run artifacts for internal consistency:
// totals, ordering, alert integrity, null handling and cross-references
// between the reading snapshot and the alert batch.
//
// Usage:
//
//	go run ./cmd/validate -output-dir output -prefix bangkok -threshold 50
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/filestore"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "output", "directory the pipeline writes artifacts to")
	prefix := flag.String("prefix", "", "artifact file prefix, e.g. bangkok")
	threshold := flag.Float64("threshold", 50, "minimum AQI an alert may carry")
	flag.Parse()

	if *prefix == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*outputDir, *prefix, *threshold); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir, prefix string, threshold float64) int {
	store := filestore.New(outputDir, prefix)

	fmt.Println("=== Air Quality Artifact Validation ===")
	fmt.Println()

	readings, readingsPath, err := store.LatestReadings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load readings: %v\n", err)
		return 1
	}
	alerts, alertsPath, err := store.LatestAlerts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load alerts: %v\n", err)
		return 1
	}
	rawReadings, err := loadRawData(readingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load raw readings: %v\n", err)
		return 1
	}

	fmt.Printf("Readings: %s\n", readingsPath)
	fmt.Printf("Alerts:   %s\n", alertsPath)

	phases := []*phase{
		validateTotals(readings, alerts),
		validateOrdering(readings, alerts),
		validateAlertIntegrity(alerts, threshold),
		validateAbsentValues(rawReadings),
		validateCrossReference(readings, alerts),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d stations, %d readings, %d alerts (%s)\n",
		readings.TotalStations, len(readings.Data), len(alerts.Alerts), alerts.Strategy)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadRawData decodes the data array of a reading artifact without typed
// fields, so null and numeric values can be told apart.
func loadRawData(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Data, nil
}

// ── Phase 1: Totals ──

func validateTotals(readings domain.ReadingBatch, alerts domain.AlertBatch) *phase {
	p := &phase{name: "Phase 1: Totals"}
	if readings.TotalDataPoints != len(readings.Data) {
		p.errorf("total_data_points=%d but data has %d entries", readings.TotalDataPoints, len(readings.Data))
	}
	if readings.TotalStations < readings.TotalDataPoints {
		p.errorf("total_stations=%d is less than total_data_points=%d", readings.TotalStations, readings.TotalDataPoints)
	}
	if alerts.TotalAlerts != len(alerts.Alerts) {
		p.errorf("total_alerts=%d but alerts has %d entries", alerts.TotalAlerts, len(alerts.Alerts))
	}
	if len(alerts.Alerts) == 0 && alerts.Strategy != domain.StrategyNone {
		p.errorf("empty alert batch reports strategy %q", alerts.Strategy)
	}
	return p
}

// ── Phase 2: Ordering ──

func validateOrdering(readings domain.ReadingBatch, alerts domain.AlertBatch) *phase {
	p := &phase{name: "Phase 2: Ordering (aqi desc, absent last)"}
	for i := 1; i < len(readings.Data); i++ {
		prev, cur := readings.Data[i-1], readings.Data[i]
		if outOfOrder(prev.AQI, cur.AQI) {
			p.errorf("readings[%d] %q (%s) ranks above readings[%d] %q (%s)",
				i-1, prev.StationName, formatAQI(prev.AQI), i, cur.StationName, formatAQI(cur.AQI))
		}
	}
	for i := 1; i < len(alerts.Alerts); i++ {
		prev, cur := alerts.Alerts[i-1], alerts.Alerts[i]
		if prev.AQI < cur.AQI {
			p.errorf("alerts[%d] %q (%.0f) ranks above alerts[%d] %q (%.0f)",
				i-1, prev.StationName, prev.AQI, i, cur.StationName, cur.AQI)
		}
	}
	return p
}

func outOfOrder(prev, cur *float64) bool {
	switch {
	case prev == nil:
		return cur != nil
	case cur == nil:
		return false
	default:
		return *prev < *cur
	}
}

func formatAQI(v *float64) string {
	if v == nil {
		return "absent"
	}
	return fmt.Sprintf("%.0f", *v)
}

// ── Phase 3: Alert integrity ──

func validateAlertIntegrity(alerts domain.AlertBatch, threshold float64) *phase {
	p := &phase{name: "Phase 3: Alert Integrity"}
	for i, a := range alerts.Alerts {
		if a.AQI < threshold {
			p.errorf("alerts[%d] %q has aqi %.0f below threshold %.0f", i, a.StationName, a.AQI, threshold)
		}
		if a.AQILevel == domain.CategoryUnknown {
			p.errorf("alerts[%d] %q has unknown aqi_level", i, a.StationName)
		}
		if a.AlertType == "" || a.HealthImplications == "" {
			p.errorf("alerts[%d] %q is missing alert text", i, a.StationName)
		}
		if len(a.RecommendedActions) == 0 {
			p.errorf("alerts[%d] %q has no recommended actions", i, a.StationName)
		}
		for j, act := range a.RecommendedActions {
			if !act.Priority.Valid() {
				p.errorf("alerts[%d] %q action %d has priority %q", i, a.StationName, j, act.Priority)
			}
		}
	}
	return p
}

// ── Phase 4: Absent values ──

var measurementFields = []string{"aqi", "pm25", "pm10", "temperature", "humidity"}

func validateAbsentValues(data []map[string]any) *phase {
	p := &phase{name: "Phase 4: Absent Values (null, never 0 or text)"}
	for i, row := range data {
		for _, field := range measurementFields {
			v, ok := row[field]
			if !ok {
				p.errorf("data[%d] %v is missing %s", i, row["station_name"], field)
				continue
			}
			switch v.(type) {
			case nil, float64:
			default:
				p.errorf("data[%d] %v has non-numeric %s %v", i, row["station_name"], field, v)
			}
		}
	}
	return p
}

// ── Phase 5: Cross-reference ──

func validateCrossReference(readings domain.ReadingBatch, alerts domain.AlertBatch) *phase {
	p := &phase{name: "Phase 5: Cross-Reference (alerts vs readings)"}
	if readings.QueryTimestamp != alerts.Timestamp {
		p.errorf("reading query_timestamp %q differs from alert timestamp %q", readings.QueryTimestamp, alerts.Timestamp)
	}
	if readings.Scope != alerts.Scope {
		p.errorf("reading scope %q differs from alert scope %q", readings.Scope, alerts.Scope)
	}

	byName := make(map[string]domain.Reading, len(readings.Data))
	for _, r := range readings.Data {
		byName[r.StationName] = r
	}
	for i, a := range alerts.Alerts {
		r, ok := byName[a.StationName]
		if !ok {
			p.errorf("alerts[%d] %q has no matching reading", i, a.StationName)
			continue
		}
		if r.AQI == nil || *r.AQI != a.AQI {
			p.errorf("alerts[%d] %q aqi %.0f differs from reading %s", i, a.StationName, a.AQI, formatAQI(r.AQI))
		}
	}
	return p
}
