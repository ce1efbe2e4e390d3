package domain

import "slices"

const topStationsLimit = 5

// Descriptive summarizes a set of values.
type Descriptive struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Describe computes descriptive statistics. It reports false for an empty
// input instead of producing NaN aggregates.
func Describe(values []float64) (Descriptive, bool) {
	if len(values) == 0 {
		return Descriptive{}, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return Descriptive{
		Count:  n,
		Mean:   sum / float64(n),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: median,
	}, true
}

// TopStation is one entry of the highest-AQI list.
type TopStation struct {
	StationName string  `json:"station_name"`
	City        string  `json:"city"`
	AQI         float64 `json:"aqi"`
}

// Summary is the run-level overview logged at the end of each run.
type Summary struct {
	TotalStations        int            `json:"total_stations"`
	CitiesCovered        int            `json:"cities_covered"`
	AQI                  *Descriptive   `json:"aqi"`
	PM25                 *Descriptive   `json:"pm25"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	TopStations          []TopStation   `json:"top_stations"`
}

// StatsReport is the per-city statistics artifact.
type StatsReport struct {
	AQIByCity  map[string]Descriptive `json:"aqi_by_city"`
	PM25ByCity map[string]Descriptive `json:"pm25_by_city"`
	Summary    Summary                `json:"summary"`
}

// BuildStats aggregates a reading batch. Cities without a single present
// value for a metric are left out of that metric's map.
func BuildStats(readings []Reading) StatsReport {
	return StatsReport{
		AQIByCity:  statsByCity(readings, func(r Reading) *float64 { return r.AQI }),
		PM25ByCity: statsByCity(readings, func(r Reading) *float64 { return r.PM25 }),
		Summary:    summarize(readings),
	}
}

func statsByCity(readings []Reading, pick func(Reading) *float64) map[string]Descriptive {
	values := make(map[string][]float64)
	for _, r := range readings {
		if v := pick(r); v != nil {
			values[r.City] = append(values[r.City], *v)
		}
	}
	out := make(map[string]Descriptive, len(values))
	for city, vs := range values {
		if d, ok := Describe(vs); ok {
			out[city] = d
		}
	}
	return out
}

func summarize(readings []Reading) Summary {
	stations := make(map[string]struct{})
	cities := make(map[string]struct{})
	var aqis, pm25s []float64
	dist := make(map[string]int)
	ranked := make([]Reading, 0, len(readings))

	for _, r := range readings {
		stations[r.StationName] = struct{}{}
		cities[r.City] = struct{}{}
		if r.PM25 != nil {
			pm25s = append(pm25s, *r.PM25)
		}
		if r.AQI == nil {
			continue
		}
		aqis = append(aqis, *r.AQI)
		dist[CategoryFor(r.AQI).String()]++
		ranked = append(ranked, r)
	}

	s := Summary{
		TotalStations:        len(stations),
		CitiesCovered:        len(cities),
		CategoryDistribution: dist,
		TopStations:          []TopStation{},
	}
	if d, ok := Describe(aqis); ok {
		s.AQI = &d
	}
	if d, ok := Describe(pm25s); ok {
		s.PM25 = &d
	}

	RankReadings(ranked)
	for _, r := range ranked[:min(topStationsLimit, len(ranked))] {
		s.TopStations = append(s.TopStations, TopStation{StationName: r.StationName, City: r.City, AQI: *r.AQI})
	}
	return s
}
