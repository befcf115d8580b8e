package geo

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/air-quality-aggregation/internal/cache"
)

var (
	// ErrDisabled is returned when no geocoding key is configured.
	ErrDisabled = errors.New("geocoding disabled")
	// ErrEmptyPlace is returned for a blank place name.
	ErrEmptyPlace = errors.New("place is required")
	// ErrTimeout is returned when the upstream lookup does not answer in time.
	ErrTimeout = errors.New("geocoding timed out")
)

const (
	// resultTTL is long because ward and locality coordinates do not move.
	resultTTL = 24 * time.Hour

	defaultLookupTimeout = 10 * time.Second
)

// kelvins/geocoder keeps its key in a package variable.
var apiKeyMu sync.Mutex

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves place names inside one city to coordinates.
type Geocoder struct {
	apiKey  string
	city    string
	country string
	results *cache.TTL[Point]
	logger  *slog.Logger
	timeout time.Duration
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

func New(apiKey, city, country string, logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey != "" {
		apiKeyMu.Lock()
		geocoder.ApiKey = apiKey
		apiKeyMu.Unlock()
	}
	return &Geocoder{
		apiKey:  apiKey,
		city:    city,
		country: country,
		results: cache.New[Point](resultTTL),
		logger:  logger.With("component", "geocoder"),
		timeout: defaultLookupTimeout,
		lookup:  geocoder.Geocoding,
	}
}

func (g *Geocoder) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Resolve returns the coordinates of place. Results are cached per folded
// place name.
func (g *Geocoder) Resolve(place string) (float64, float64, error) {
	if !g.Enabled() {
		return 0, 0, ErrDisabled
	}
	place = strings.TrimSpace(place)
	if place == "" {
		return 0, 0, ErrEmptyPlace
	}

	key := strings.ToLower(place)
	if p, ok := g.results.Get(key); ok {
		return p.Lat, p.Lon, nil
	}

	loc, err := g.lookupWithTimeout(geocoder.Address{
		Street:  place,
		City:    g.city,
		Country: g.country,
	})
	if err != nil {
		g.logger.Warn("geocoding failed", "place", place, "error", err)
		return 0, 0, fmt.Errorf("geocode %q: %w", place, err)
	}

	g.results.Set(key, Point{Lat: loc.Latitude, Lon: loc.Longitude})
	return loc.Latitude, loc.Longitude, nil
}

type lookupResult struct {
	loc geocoder.Location
	err error
}

// lookupWithTimeout bounds a single upstream call. The library takes no
// context, so a call that overruns is abandoned rather than cancelled.
func (g *Geocoder) lookupWithTimeout(addr geocoder.Address) (geocoder.Location, error) {
	done := make(chan lookupResult, 1)
	go func() {
		loc, err := g.lookup(addr)
		done <- lookupResult{loc: loc, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.loc, r.err
	case <-timer.C:
		return geocoder.Location{}, ErrTimeout
	}
}
