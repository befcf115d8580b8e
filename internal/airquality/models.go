package airquality

import (
	"time"

	"github.com/i474232898/air-quality-aggregation/internal/common"
)

// SourceID identifies an upstream provider.
type SourceID string

const (
	SourceCPCB     SourceID = "cpcb"
	SourceAQICN    SourceID = "aqicn"
	SourceOpenAQ   SourceID = "openaq"
	SourceFallback SourceID = "fallback"
)

// CacheKey returns the key under which a source's last good fetch is cached.
func (s SourceID) CacheKey() string {
	return string(s) + "_data"
}

// StationsCacheKey holds the aggregated, filtered snapshot.
const StationsCacheKey = "stations_data"

// DefaultReliability is stamped on readings whose provider does not supply a score.
const DefaultReliability = 0.8

// Pollutant is one of the concentration channels a station may report.
type Pollutant string

const (
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	NO2  Pollutant = "no2"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
	O3   Pollutant = "o3"
)

// Pollutants lists every channel in a stable order.
var Pollutants = []Pollutant{PM25, PM10, NO2, SO2, CO, O3}

// ParsePollutant maps a provider's parameter name onto a channel.
func ParsePollutant(name string) (Pollutant, bool) {
	switch common.CompactKey(name) {
	case "pm25":
		return PM25, true
	case "pm10":
		return PM10, true
	case "no2":
		return NO2, true
	case "so2":
		return SO2, true
	case "co":
		return CO, true
	case "o3", "ozone":
		return O3, true
	default:
		return "", false
	}
}

// StationReading is one provider's measurement at a point in time.
// Concentrations are in the provider's own units; nil means not reported.
type StationReading struct {
	Name              string    `json:"station_name"`
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	AQI               int       `json:"aqi"`
	PM25              *float64  `json:"pm25"`
	PM10              *float64  `json:"pm10"`
	NO2               *float64  `json:"no2"`
	SO2               *float64  `json:"so2"`
	CO                *float64  `json:"co"`
	O3                *float64  `json:"o3"`
	DominantPollutant string    `json:"dominant_pollutant"`
	Source            SourceID  `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
	Reliability       float64   `json:"reliability_score"`
}

// Valid reports whether the reading carries a usable AQI.
func (r StationReading) Valid() bool {
	return r.AQI > 0
}

// Concentration returns the value of a channel, if reported.
func (r StationReading) Concentration(p Pollutant) (float64, bool) {
	var v *float64
	switch p {
	case PM25:
		v = r.PM25
	case PM10:
		v = r.PM10
	case NO2:
		v = r.NO2
	case SO2:
		v = r.SO2
	case CO:
		v = r.CO
	case O3:
		v = r.O3
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (r *StationReading) setConcentration(p Pollutant, v *float64) {
	switch p {
	case PM25:
		r.PM25 = v
	case PM10:
		r.PM10 = v
	case NO2:
		r.NO2 = v
	case SO2:
		r.SO2 = v
	case CO:
		r.CO = v
	case O3:
		r.O3 = v
	}
}

// FetchOutcome classifies a single source fetch.
type FetchOutcome string

const (
	OutcomeSuccess FetchOutcome = "success"
	OutcomeEmpty   FetchOutcome = "empty"
	OutcomeError   FetchOutcome = "error"
)

// FetchStatus is the result of the most recent fetch for one source.
type FetchStatus struct {
	Status    FetchOutcome  `json:"status"`
	Count     int           `json:"count"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
	CycleID   string        `json:"cycle_id"`
}

// WardEstimate is an interpolated reading for a point without its own sensor.
// A nil pollutant value means no station contributed to that channel.
type WardEstimate struct {
	Lat        float64                `json:"lat"`
	Lon        float64                `json:"lon"`
	AQI        int                    `json:"aqi"`
	Pollutants map[Pollutant]*float64 `json:"pollutants"`
}
