package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/cache"
)

const (
	cpcbBaseURL     = "https://api.data.gov.in/resource/3b01bcb8-0b14-4abf-b6f2-c1bfd384ba69"
	cpcbReliability = 0.95
	cpcbTimeout     = 60 * time.Second
)

// CPCBProvider fetches Central Pollution Control Board readings published on
// data.gov.in. The feed carries concentrations only, so AQI is derived from
// PM2.5 with the Indian breakpoint table.
type CPCBProvider struct {
	apiKey  string
	city    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *cache.TTL[[]airquality.StationReading]
	logger  *slog.Logger
}

func NewCPCBProvider(opts Options, apiKey, city string) *CPCBProvider {
	if city == "" {
		city = "Delhi"
	}
	return &CPCBProvider{
		apiKey:  apiKey,
		city:    city,
		baseURL: opts.baseURL(cpcbBaseURL),
		httpCfg: HTTPClientConfig{
			Client:  opts.client(),
			Backoff: opts.backoff(),
			Timeout: cpcbTimeout,
		},
		circuit: newCircuitBreaker(string(airquality.SourceCPCB), opts, nil),
		cache:   opts.Cache,
		logger:  opts.logger(airquality.SourceCPCB),
	}
}

func (p *CPCBProvider) Source() airquality.SourceID {
	return airquality.SourceCPCB
}

func (p *CPCBProvider) Configured() bool {
	return p.apiKey != ""
}

// cpcbRecord is one row of the data.gov.in feed. Pollutant fields are either
// bare numbers or objects carrying an "avg".
type cpcbRecord struct {
	Station    string            `json:"station"`
	Latitude   airquality.Number `json:"latitude"`
	Longitude  airquality.Number `json:"longitude"`
	PM25       airquality.Number `json:"pm25"`
	PM10       airquality.Number `json:"pm10"`
	NO2        airquality.Number `json:"no2"`
	SO2        airquality.Number `json:"so2"`
	CO         airquality.Number `json:"co"`
	Ozone      airquality.Number `json:"ozone"`
	LastUpdate string            `json:"last_update"`
}

func (p *CPCBProvider) Fetch(ctx context.Context) ([]airquality.StationReading, error) {
	if !p.Configured() {
		p.logger.Warn("CPCB API key not configured")
		return nil, nil
	}

	if readings, ok := cached(p.cache, p.Source()); ok {
		p.logger.Debug("using cached CPCB data", "count", len(readings))
		return readings, nil
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("api-key", p.apiKey)
		values.Set("format", "json")
		values.Set("filters[city]", p.city)
		values.Set("limit", "100")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		p.logger.Error("CPCB API request failed", "error", err)
		return nil, fmt.Errorf("cpcb request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.logger.Error("CPCB payload decode failed", "error", err)
		return nil, fmt.Errorf("cpcb decode: %w", err)
	}

	readings := make([]airquality.StationReading, 0, len(payload.Records))
	for i, raw := range payload.Records {
		var rec cpcbRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			p.logger.Warn("skipping malformed CPCB record", "index", i, "error", err)
			continue
		}
		readings = append(readings, p.normalize(rec))
	}

	store(p.cache, p.Source(), readings)
	p.logger.Info("fetched CPCB stations", "count", len(readings), "records", len(payload.Records))
	return readings, nil
}

func (p *CPCBProvider) normalize(rec cpcbRecord) airquality.StationReading {
	aqi := 0
	if pm25, ok := rec.PM25.Float(); ok {
		aqi = airquality.IndianPM25.AQI(pm25)
	}

	return airquality.Normalize(airquality.RawReading{
		Name: rec.Station,
		Lat:  rec.Latitude,
		Lon:  rec.Longitude,
		AQI:  airquality.NumberOf(float64(aqi)),
		Pollutants: map[airquality.Pollutant]airquality.Number{
			airquality.PM25: rec.PM25,
			airquality.PM10: rec.PM10,
			airquality.NO2:  rec.NO2,
			airquality.SO2:  rec.SO2,
			airquality.CO:   rec.CO,
			airquality.O3:   rec.Ozone,
		},
		Timestamp:   rec.LastUpdate,
		Reliability: cpcbReliability,
	}, p.Source())
}
