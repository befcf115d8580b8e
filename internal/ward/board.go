package ward

import (
	"math"
	"time"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

// DataSource tells whether a board was built from live or static stations.
type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceFallback DataSource = "fallback"
)

const (
	criticalAQI = 300
	goodAQI     = 100
)

// Category maps an AQI onto its colour band.
func Category(aqi int) string {
	switch {
	case aqi <= 50:
		return "Green"
	case aqi <= 100:
		return "Yellow"
	case aqi <= 150:
		return "Orange"
	case aqi <= 200:
		return "Red"
	case aqi <= 300:
		return "Purple"
	default:
		return "Maroon"
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ward is a seed ward together with its current estimate.
type Ward struct {
	ID          int                               `json:"id"`
	Name        string                            `json:"name"`
	WardNo      string                            `json:"ward_no"`
	Coordinates Coordinates                       `json:"coordinates"`
	AQI         int                               `json:"aqi"`
	ColorCode   string                            `json:"color_code"`
	Pollutants  map[airquality.Pollutant]*float64 `json:"pollutants"`
}

// Board is the latest full set of ward estimates.
type Board struct {
	CycleID    string                      `json:"cycle_id"`
	DataSource DataSource                  `json:"data_source"`
	Stations   []airquality.StationReading `json:"stations"`
	Wards      []Ward                      `json:"wards"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// Ward looks a ward up by its id.
func (b Board) Ward(id int) (Ward, bool) {
	for _, w := range b.Wards {
		if w.ID == id {
			return w, true
		}
	}
	return Ward{}, false
}

type Stats struct {
	TotalWards    int        `json:"total_wards"`
	AverageAQI    float64    `json:"average_aqi"`
	MaxAQI        int        `json:"max_aqi"`
	MinAQI        int        `json:"min_aqi"`
	CriticalWards int        `json:"critical_wards"`
	GoodWards     int        `json:"good_wards"`
	DataSource    DataSource `json:"data_source"`
	StationsCount int        `json:"stations_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Stats summarizes the board. An empty board reports zeros.
func (b Board) Stats() Stats {
	st := Stats{
		TotalWards:    len(b.Wards),
		DataSource:    b.DataSource,
		StationsCount: len(b.Stations),
		UpdatedAt:     b.UpdatedAt,
	}
	if len(b.Wards) == 0 {
		return st
	}

	sum := 0
	st.MaxAQI, st.MinAQI = b.Wards[0].AQI, b.Wards[0].AQI
	for _, w := range b.Wards {
		sum += w.AQI
		st.MaxAQI = max(st.MaxAQI, w.AQI)
		st.MinAQI = min(st.MinAQI, w.AQI)
		if w.AQI > criticalAQI {
			st.CriticalWards++
		}
		if w.AQI <= goodAQI {
			st.GoodWards++
		}
	}
	st.AverageAQI = math.Round(float64(sum)/float64(len(b.Wards))*10) / 10
	return st
}
