package airquality

import (
	"math"
	"sort"

	"github.com/i474232898/air-quality-aggregation/internal/common"
)

// DuplicateRadiusDeg is how close (in degrees, on both axes) two readings
// must be to count as the same physical station. Roughly 1 km.
const DuplicateRadiusDeg = 0.01

// FilterValid keeps readings with a positive AQI.
func FilterValid(readings []StationReading) []StationReading {
	out := make([]StationReading, 0, len(readings))
	for _, r := range readings {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// SameStation reports whether two readings describe the same physical station:
// names equal ignoring case and surrounding space, or coordinates within
// DuplicateRadiusDeg on both axes. Readings at (0,0) carry no usable location
// and only match by name.
func SameStation(a, b StationReading) bool {
	if common.FoldName(a.Name) == common.FoldName(b.Name) {
		return true
	}
	if !a.located() || !b.located() {
		return false
	}
	return math.Abs(a.Lat-b.Lat) < DuplicateRadiusDeg && math.Abs(a.Lon-b.Lon) < DuplicateRadiusDeg
}

func (r StationReading) located() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Deduplicate collapses readings of the same station, keeping the one with the
// higher reliability score and, on a tie, the higher AQI.
//
// The result does not depend on input order: readings are ranked first and a
// reading is kept only if it matches no better-ranked reading already kept.
func Deduplicate(readings []StationReading) []StationReading {
	ranked := make([]StationReading, len(readings))
	copy(ranked, readings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return preferred(ranked[i], ranked[j])
	})

	kept := make([]StationReading, 0, len(ranked))
	for _, r := range ranked {
		dup := false
		for _, k := range kept {
			if SameStation(r, k) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, r)
		}
	}
	return kept
}

// preferred is a total order over readings used by Deduplicate.
func preferred(a, b StationReading) bool {
	if a.Reliability != b.Reliability {
		return a.Reliability > b.Reliability
	}
	if a.AQI != b.AQI {
		return a.AQI > b.AQI
	}
	if na, nb := common.FoldName(a.Name), common.FoldName(b.Name); na != nb {
		return na < nb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Lat != b.Lat {
		return a.Lat < b.Lat
	}
	if a.Lon != b.Lon {
		return a.Lon < b.Lon
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.DominantPollutant != b.DominantPollutant {
		return a.DominantPollutant < b.DominantPollutant
	}
	// Reported channels beat missing ones, then higher concentrations win.
	for _, p := range Pollutants {
		va, oka := a.Concentration(p)
		vb, okb := b.Concentration(p)
		if oka != okb {
			return oka
		}
		if va != vb {
			return va > vb
		}
	}
	return false
}
