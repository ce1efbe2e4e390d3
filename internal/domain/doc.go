// Package domain models World Air Quality Index (WAQI) station data and the
// alerting rules applied to it.
//
// # Data Source
//
// Station readings come from the WAQI JSON API (https://aqicn.org/api/). Two
// endpoints are used: a map-bounds search that lists every station inside a
// latitude/longitude rectangle, and a per-station feed that returns the
// latest measurement for one station uid. The adapter in
// internal/adapter/waqi decodes both into the explicit optional-field types
// declared in feed.go; nothing downstream inspects raw JSON.
//
// # WAQI Data Conventions
//
// Headline index:
//
//	"aqi" is usually a JSON number but is the string "-" when the station has
//	no current index. "-", empty strings and anything non-numeric are treated
//	as absent. Absent never becomes zero.
//
// Individual measurements ("iaqi"):
//
//	pm25, pm10 -> particulate matter (µg/m³ expressed as sub-index)
//	t          -> temperature (°C)
//	h          -> relative humidity (%)
//	Every key may be missing; a missing key yields an absent metric.
//
// Station names:
//
//	"<district>, <city>, <country>", e.g. "Bang Na, Bangkok, Thailand".
//	The city label is the text before the first comma with the configured
//	scope marker (e.g. "Bangkok") removed, see [DeriveCity].
//
// Time:
//
//	"time.s" is the provider's last-update time ("2024-01-30 14:00:00") and is
//	kept verbatim; it is not aligned with the query time.
//
// # Severity Scale
//
// The US EPA six-band scale, evaluated in ascending order, first match wins:
//
//	Good 0–50 | Moderate 51–100 | Unhealthy for Sensitive Groups 101–150 |
//	Unhealthy 151–200 | Very Unhealthy 201–300 | Hazardous >300
//
// A coarser alert level (info ≤100, warning ≤150, danger above) drives UI
// emphasis and the fallback alert title. See [Classify].
//
// # Artifacts
//
// Each run yields a reading batch and an alert batch, both sorted by aqi
// descending with absent values last. Artifact names carry the query time
// truncated to the hour so repeated runs within one hour overwrite the same
// logical snapshot. See [RunStamp].
package domain
