package airquality

import (
	"math"
	"strings"
	"time"
)

// RawReading is a provider record after decoding but before normalization.
type RawReading struct {
	Name              string
	Lat               Number
	Lon               Number
	AQI               Number
	Pollutants        map[Pollutant]Number
	DominantPollutant string
	Timestamp         string
	// Reliability of 0 means the provider did not supply a score.
	Reliability float64
}

// timestampLayouts are tried in order; data.gov.in uses the day-first form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
}

// Normalize coerces a raw record into the shared StationReading shape and
// stamps it with its source.
func Normalize(raw RawReading, source SourceID) StationReading {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = "Unknown"
	}

	r := StationReading{
		Name:              name,
		Lat:               raw.Lat.OrZero(),
		Lon:               raw.Lon.OrZero(),
		AQI:               coerceAQI(raw.AQI),
		DominantPollutant: raw.DominantPollutant,
		Source:            source,
		Timestamp:         parseTimestamp(raw.Timestamp),
		Reliability:       raw.Reliability,
	}
	if r.DominantPollutant == "" {
		r.DominantPollutant = string(PM25)
	}
	if r.Reliability <= 0 {
		r.Reliability = DefaultReliability
	}
	for p, v := range raw.Pollutants {
		r.setConcentration(p, v.Ptr())
	}
	return r
}

func coerceAQI(n Number) int {
	v, ok := n.Float()
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return int(v)
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	}
	return time.Now().UTC()
}
