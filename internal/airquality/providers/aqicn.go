package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/cache"
	"github.com/i474232898/air-quality-aggregation/internal/common"
)

const (
	aqicnBaseURL            = "https://api.waqi.info"
	aqicnCityReliability    = 0.92
	aqicnStationReliability = 0.90
	aqicnCityTimeout        = 60 * time.Second
	aqicnStationTimeout     = 10 * time.Second
	// aqicnMaxInFlight caps concurrent station requests against the rate-limited API.
	aqicnMaxInFlight = 8
)

// DefaultAQICNStations are the Delhi/NCR station feeds polled in phase two.
var DefaultAQICNStations = []string{
	"delhi/anand-vihar",
	"delhi/r.k.-puram",
	"delhi/dwarka",
	"delhi/shaheed-sukhdev-college-of-business-studies--rohini",
	"delhi/punjabi-bagh",
	"delhi/dite-okhla",
	"delhi/pooth-khurd--bawana",
	"delhi/iti-jahangirpuri",
	"delhi/igi-airport",
	"delhi/shadipur",
	"delhi/siri-fort",
	"delhi/mandir-marg",
	"delhi/ito",
	"delhi/lodhi-road",
	"delhi/delhi-institute-of-tool-engineering--wazirpur",
	"delhi/mother-dairy-plant--parparganj",
	"delhi/jawaharlal-nehru-stadium",
	"delhi/dtu",
	"delhi/north-campus",
	"delhi/dr.-karni-singh-shooting-range",
	"delhi/burari-crossing",
	"delhi/major-dhyan-chand-national-stadium",
	"delhi/alipur",
	"delhi/narela",
	"delhi/mundka",
	"delhi/sonia-vihar-water-treatment-plant-djb",
	"delhi/pusa",
	"delhi/pgdav-college--sriniwaspuri",
	"delhi/satyawati-college",
	"delhi/iti-shahdra--jhilmil-industrial-area",
	"india/noida/sector-1",
	"india/new-delhi/us-embassy",
	"delhi/ihbas",
	"noida",
	"gurgaon",
	"faridabad",
	"ghaziabad",
}

// errFeedNotOK is returned when WAQI answers 200 with a non-"ok" status.
var errFeedNotOK = errors.New("feed status not ok")

// AQICNProvider fetches the World Air Quality Index project's feeds: one
// city-level reading followed by concurrent per-station requests.
type AQICNProvider struct {
	token    string
	city     string
	stations []string
	baseURL  string

	cityCfg    HTTPClientConfig
	stationCfg HTTPClientConfig
	circuit    *gobreaker.CircuitBreaker
	cache      *cache.TTL[[]airquality.StationReading]
	logger     *slog.Logger
}

func NewAQICNProvider(opts Options, token, city string, stations []string) *AQICNProvider {
	if city == "" {
		city = "delhi"
	}
	if stations == nil {
		stations = DefaultAQICNStations
	}

	stationBackoff := opts.backoff()
	if stationBackoff.MaxRetries > 1 {
		stationBackoff.MaxRetries = 1
	}

	// Individual station feeds 404 routinely; only trip when most calls fail.
	readyToTrip := func(c gobreaker.Counts) bool {
		return c.Requests >= 10 && float64(c.TotalFailures)/float64(c.Requests) >= 0.6
	}

	return &AQICNProvider{
		token:    token,
		city:     city,
		stations: stations,
		baseURL:  strings.TrimRight(opts.baseURL(aqicnBaseURL), "/"),
		cityCfg: HTTPClientConfig{
			Client:  opts.client(),
			Backoff: opts.backoff(),
			Timeout: aqicnCityTimeout,
		},
		stationCfg: HTTPClientConfig{
			Client:  opts.client(),
			Backoff: stationBackoff,
			Timeout: aqicnStationTimeout,
		},
		circuit: newCircuitBreaker(string(airquality.SourceAQICN), opts, readyToTrip),
		cache:   opts.Cache,
		logger:  opts.logger(airquality.SourceAQICN),
	}
}

func (p *AQICNProvider) Source() airquality.SourceID {
	return airquality.SourceAQICN
}

func (p *AQICNProvider) Configured() bool {
	return p.token != ""
}

// aqicnFeed mirrors the /feed/<id>/ response. "data" is a string when the
// status is an error, so it is decoded in a second step.
type aqicnFeed struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type aqicnData struct {
	AQI  airquality.Number `json:"aqi"`
	City struct {
		Name string              `json:"name"`
		Geo  []airquality.Number `json:"geo"`
	} `json:"city"`
	IAQI        map[string]airquality.Number `json:"iaqi"`
	DominentPol string                       `json:"dominentpol"`
	Time        struct {
		ISO string `json:"iso"`
	} `json:"time"`
}

func (p *AQICNProvider) Fetch(ctx context.Context) ([]airquality.StationReading, error) {
	if !p.Configured() {
		p.logger.Warn("AQICN token not configured")
		return nil, nil
	}

	if readings, ok := cached(p.cache, p.Source()); ok {
		p.logger.Debug("using cached AQICN data", "count", len(readings))
		return readings, nil
	}

	var readings []airquality.StationReading

	city, cityErr := p.fetchFeed(ctx, p.cityCfg, p.city, p.city, aqicnCityReliability)
	if cityErr != nil {
		p.logger.Debug("city feed failed", "feed", p.city, "error", cityErr)
		if isCredentialError(cityErr) {
			p.logger.Warn("AQICN rejected the token; skipping station feeds", "error", cityErr)
			return nil, fmt.Errorf("aqicn: %w", cityErr)
		}
	} else {
		readings = append(readings, city)
	}

	stations, failed := p.fetchStations(ctx)
	readings = append(readings, stations...)

	if len(readings) == 0 {
		err := fmt.Errorf("aqicn: no usable feeds (%d station failures)", failed)
		if cityErr != nil {
			err = fmt.Errorf("aqicn: no usable feeds (%d station failures): %w", failed, cityErr)
		}
		p.logger.Error("AQICN fetch produced no readings", "error", err)
		return nil, err
	}

	store(p.cache, p.Source(), readings)
	p.logger.Info("fetched AQICN stations", "count", len(readings), "station_failures", failed)
	return readings, nil
}

// fetchStations requests every configured station feed concurrently. A failed
// station contributes nothing; results keep the configured order.
func (p *AQICNProvider) fetchStations(ctx context.Context) ([]airquality.StationReading, int) {
	results := make([]*airquality.StationReading, len(p.stations))
	sem := make(chan struct{}, aqicnMaxInFlight)

	var wg sync.WaitGroup
	for i, id := range p.stations {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			r, err := p.fetchFeed(ctx, p.stationCfg, id, id, aqicnStationReliability)
			if err != nil {
				p.logger.Debug("station feed failed", "station", id, "error", err)
				return
			}
			results[i] = &r
		}(i, id)
	}
	wg.Wait()

	readings := make([]airquality.StationReading, 0, len(results))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}
	return readings, len(results) - len(readings)
}

func (p *AQICNProvider) fetchFeed(ctx context.Context, cfg HTTPClientConfig, feed, fallbackName string, reliability float64) (airquality.StationReading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/feed/%s/?%s", p.baseURL, feed, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, cfg, p.circuit, buildRequest)
	if err != nil {
		return airquality.StationReading{}, err
	}
	defer resp.Body.Close()

	var payload aqicnFeed
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return airquality.StationReading{}, fmt.Errorf("decode %s: %w", feed, err)
	}
	if payload.Status != "ok" {
		var msg string
		_ = json.Unmarshal(payload.Data, &msg)
		return airquality.StationReading{}, fmt.Errorf("%w: %s %q", errFeedNotOK, payload.Status, msg)
	}

	var data aqicnData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return airquality.StationReading{}, fmt.Errorf("decode %s data: %w", feed, err)
	}

	return p.normalize(data, fallbackName, reliability), nil
}

func (p *AQICNProvider) normalize(data aqicnData, fallbackName string, reliability float64) airquality.StationReading {
	name := data.City.Name
	if name == "" {
		name = fallbackName
	}

	var lat, lon airquality.Number
	if len(data.City.Geo) >= 2 {
		lat, lon = data.City.Geo[0], data.City.Geo[1]
	}

	pollutants := make(map[airquality.Pollutant]airquality.Number, len(data.IAQI))
	for key, v := range data.IAQI {
		if pol, ok := airquality.ParsePollutant(key); ok {
			pollutants[pol] = v
		}
	}

	return airquality.Normalize(airquality.RawReading{
		Name:              name,
		Lat:               lat,
		Lon:               lon,
		AQI:               data.AQI,
		Pollutants:        pollutants,
		DominantPollutant: data.DominentPol,
		Timestamp:         data.Time.ISO,
		Reliability:       reliability,
	}, p.Source())
}

// isCredentialError reports whether WAQI refused the request because of the
// token itself, in which case the remaining feeds would fail the same way.
func isCredentialError(err error) bool {
	if !errors.Is(err, errFeedNotOK) {
		return false
	}
	return common.HasAny(strings.ToLower(err.Error()), "invalid key", "over quota")
}
