package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/cache"
)

const (
	openAQBaseURL     = "https://api.openaq.org/v3"
	openAQReliability = 0.85
	openAQTimeout     = 30 * time.Second
)

// OpenAQProvider lists community monitoring locations and takes the last
// known PM2.5/PM10 values of each. AQI is derived from PM2.5 with the US EPA
// breakpoint table. No credentials are required.
type OpenAQProvider struct {
	country string
	city    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	cache   *cache.TTL[[]airquality.StationReading]
	logger  *slog.Logger
}

func NewOpenAQProvider(opts Options, country, city string) *OpenAQProvider {
	if country == "" {
		country = "IN"
	}
	if city == "" {
		city = "Delhi"
	}
	return &OpenAQProvider{
		country: country,
		city:    city,
		baseURL: strings.TrimRight(opts.baseURL(openAQBaseURL), "/"),
		httpCfg: HTTPClientConfig{
			Client:  opts.client(),
			Backoff: opts.backoff(),
			Timeout: openAQTimeout,
		},
		circuit: newCircuitBreaker(string(airquality.SourceOpenAQ), opts, nil),
		cache:   opts.Cache,
		logger:  opts.logger(airquality.SourceOpenAQ),
	}
}

func (p *OpenAQProvider) Source() airquality.SourceID {
	return airquality.SourceOpenAQ
}

func (p *OpenAQProvider) Configured() bool {
	return true
}

type openAQLocation struct {
	Name        string `json:"name"`
	Coordinates struct {
		Latitude  airquality.Number `json:"latitude"`
		Longitude airquality.Number `json:"longitude"`
	} `json:"coordinates"`
	Parameters []struct {
		Parameter string            `json:"parameter"`
		LastValue airquality.Number `json:"lastValue"`
	} `json:"parameters"`
	LastUpdated string `json:"lastUpdated"`
}

func (p *OpenAQProvider) Fetch(ctx context.Context) ([]airquality.StationReading, error) {
	if readings, ok := cached(p.cache, p.Source()); ok {
		p.logger.Debug("using cached OpenAQ data", "count", len(readings))
		return readings, nil
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("country", p.country)
		values.Set("city", p.city)
		values.Set("limit", "100")

		u := fmt.Sprintf("%s/locations?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		p.logger.Error("OpenAQ API request failed", "error", err)
		return nil, fmt.Errorf("openaq request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		p.logger.Error("OpenAQ payload decode failed", "error", err)
		return nil, fmt.Errorf("openaq decode: %w", err)
	}

	readings := make([]airquality.StationReading, 0, len(payload.Results))
	for i, raw := range payload.Results {
		var loc openAQLocation
		if err := json.Unmarshal(raw, &loc); err != nil {
			p.logger.Debug("skipping malformed OpenAQ location", "index", i, "error", err)
			continue
		}
		readings = append(readings, p.normalize(loc))
	}

	store(p.cache, p.Source(), readings)
	p.logger.Info("fetched OpenAQ stations", "count", len(readings))
	return readings, nil
}

func (p *OpenAQProvider) normalize(loc openAQLocation) airquality.StationReading {
	var pm25, pm10 airquality.Number
	for _, param := range loc.Parameters {
		switch pol, _ := airquality.ParsePollutant(param.Parameter); pol {
		case airquality.PM25:
			pm25 = param.LastValue
		case airquality.PM10:
			pm10 = param.LastValue
		}
	}

	aqi := 0
	if v, ok := pm25.Float(); ok {
		aqi = airquality.USEPAPM25.AQI(v)
	}

	return airquality.Normalize(airquality.RawReading{
		Name: loc.Name,
		Lat:  loc.Coordinates.Latitude,
		Lon:  loc.Coordinates.Longitude,
		AQI:  airquality.NumberOf(float64(aqi)),
		Pollutants: map[airquality.Pollutant]airquality.Number{
			airquality.PM25: pm25,
			airquality.PM10: pm10,
		},
		Timestamp:   loc.LastUpdated,
		Reliability: openAQReliability,
	}, p.Source())
}
