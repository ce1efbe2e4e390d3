package domain

import (
	"fmt"
	"math"
)

// SeverityCategory is the six-band AQI scale plus Unknown for absent values.
// The zero value is CategoryUnknown.
type SeverityCategory int

const (
	CategoryUnknown SeverityCategory = iota
	CategoryGood
	CategoryModerate
	CategoryUnhealthyForSensitive
	CategoryUnhealthy
	CategoryVeryUnhealthy
	CategoryHazardous
)

// severityBands holds the upper bound of each category in ascending order.
// Evaluation is first-match-wins so a shared boundary like 50 lands in the
// lower band, and fractional values between integer bands (50.5) land in the
// next band up.
var severityBands = []struct {
	max      float64
	category SeverityCategory
}{
	{50, CategoryGood},
	{100, CategoryModerate},
	{150, CategoryUnhealthyForSensitive},
	{200, CategoryUnhealthy},
	{300, CategoryVeryUnhealthy},
	{math.Inf(1), CategoryHazardous},
}

var categoryNames = map[SeverityCategory]string{
	CategoryUnknown:               "Unknown",
	CategoryGood:                  "Good",
	CategoryModerate:              "Moderate",
	CategoryUnhealthyForSensitive: "Unhealthy for Sensitive Groups",
	CategoryUnhealthy:             "Unhealthy",
	CategoryVeryUnhealthy:         "Very Unhealthy",
	CategoryHazardous:             "Hazardous",
}

// String returns the display name written into artifacts.
func (c SeverityCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnknown]
}

// MarshalText encodes the category by display name.
func (c SeverityCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts exactly the display names produced by String.
func (c *SeverityCategory) UnmarshalText(b []byte) error {
	parsed, ok := ParseSeverityCategory(string(b))
	if !ok {
		return fmt.Errorf("unknown severity category %q", string(b))
	}
	*c = parsed
	return nil
}

// ParseSeverityCategory maps a display name back to its category.
func ParseSeverityCategory(s string) (SeverityCategory, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return CategoryUnknown, false
}

// AlertLevel is the coarse emphasis level used for alert_type.
type AlertLevel string

const (
	LevelInfo    AlertLevel = "info"
	LevelWarning AlertLevel = "warning"
	LevelDanger  AlertLevel = "danger"
	LevelUnknown AlertLevel = "unknown"
)

// Classify maps an AQI value to its severity category and alert level.
// Both mappings are total: negative values fall into Good and info, and only
// an absent (or NaN) value yields Unknown.
func Classify(aqi *float64) (SeverityCategory, AlertLevel) {
	return CategoryFor(aqi), LevelFor(aqi)
}

// CategoryFor returns the severity band containing aqi.
func CategoryFor(aqi *float64) SeverityCategory {
	if aqi == nil || math.IsNaN(*aqi) {
		return CategoryUnknown
	}
	for _, band := range severityBands {
		if *aqi <= band.max {
			return band.category
		}
	}
	return CategoryHazardous
}

// LevelFor returns the alert level for aqi.
func LevelFor(aqi *float64) AlertLevel {
	switch {
	case aqi == nil || math.IsNaN(*aqi):
		return LevelUnknown
	case *aqi <= 100:
		return LevelInfo
	case *aqi <= 150:
		return LevelWarning
	default:
		return LevelDanger
	}
}
