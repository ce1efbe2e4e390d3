package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BoundingBox is a latitude/longitude rectangle in WGS-84 degrees.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// ParseBoundingBox reads a "south,west,north,east" string, the order the WAQI
// map-bounds endpoint expects.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want 4 comma-separated values, got %d", ErrInvalidBoundingBox, len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("%w: value %q is not a coordinate", ErrInvalidBoundingBox, p)
		}
		vals[i] = v
	}
	box := BoundingBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// Validate enforces south < north and west < east.
func (b BoundingBox) Validate() error {
	if b.South >= b.North {
		return fmt.Errorf("%w: south %g must be below north %g", ErrInvalidBoundingBox, b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("%w: west %g must be below east %g", ErrInvalidBoundingBox, b.West, b.East)
	}
	return nil
}

// Contains reports whether the point lies inside the box, boundaries included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.South <= lat && lat <= b.North && b.West <= lon && lon <= b.East
}

// String renders the box as the provider query parameter "S,W,N,E".
func (b BoundingBox) String() string {
	return fmt.Sprintf("%s,%s,%s,%s",
		strconv.FormatFloat(b.South, 'f', -1, 64),
		strconv.FormatFloat(b.West, 'f', -1, 64),
		strconv.FormatFloat(b.North, 'f', -1, 64),
		strconv.FormatFloat(b.East, 'f', -1, 64),
	)
}

// StationCandidate is one raw entry of the provider's station directory.
// Coordinates are kept as raw JSON because the provider is not consistent
// about numbers versus numeric strings.
type StationCandidate struct {
	ID   string
	Name string
	Lat  json.RawMessage
	Lon  json.RawMessage
}

// StationRef identifies a station for the duration of one run.
type StationRef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FilterInBounds keeps the candidates whose coordinates fall inside box,
// preserving input order. Candidates with missing or non-numeric coordinates
// are dropped.
func FilterInBounds(candidates []StationCandidate, box BoundingBox) []StationRef {
	out := make([]StationRef, 0, len(candidates))
	for _, c := range candidates {
		lat, ok := parseNumber(c.Lat)
		if !ok {
			continue
		}
		lon, ok := parseNumber(c.Lon)
		if !ok {
			continue
		}
		if !box.Contains(lat, lon) {
			continue
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = "Unknown"
		}
		out = append(out, StationRef{ID: c.ID, Name: name, Latitude: lat, Longitude: lon})
	}
	return out
}

// DedupeStations drops repeated station ids; the first occurrence wins.
// Map-bounds responses can overlap when the provider tiles large boxes.
func DedupeStations(refs []StationRef) []StationRef {
	seen := make(map[string]struct{}, len(refs))
	out := make([]StationRef, 0, len(refs))
	for _, r := range refs {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// parseNumber decodes a JSON number or a numeric string into a finite float.
// null, "", "-" and anything else non-numeric report false.
func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
