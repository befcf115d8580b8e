package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/geo"
	"github.com/i474232898/air-quality-aggregation/internal/store"
	"github.com/i474232898/air-quality-aggregation/internal/ward"
)

type stubStations struct {
	readings []airquality.StationReading
}

func (s stubStations) GetStations(context.Context, bool) []airquality.StationReading {
	return s.readings
}

type stubStatus struct{}

func (stubStatus) Status() airquality.Status {
	return airquality.Status{
		Priority:  []airquality.SourceID{airquality.SourceAQICN},
		LastFetch: map[airquality.SourceID]airquality.FetchStatus{},
	}
}

type stubPlaces map[string][2]float64

func (s stubPlaces) Resolve(place string) (float64, float64, error) {
	p, ok := s[place]
	if !ok {
		return 0, 0, errors.New("ZERO_RESULTS")
	}
	return p[0], p[1], nil
}

var testSeeds = []ward.Seed{
	{Name: "Chandni Chowk", WardNo: "80", Lat: 28.6580, Lon: 77.2300},
	{Name: "Dwarka", WardNo: "134", Lat: 28.5921, Lon: 77.0460},
}

func newTestApp(t *testing.T, readings []airquality.StationReading, places PlaceResolver) (*fiber.App, *ward.Builder) {
	t.Helper()

	memStore := store.NewMemoryStore()
	builder := ward.NewBuilder(
		stubStations{readings: readings},
		airquality.NewInterpolator(),
		memStore,
		ward.WithSeeds(testSeeds),
		ward.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	app := fiber.New()
	RegisterRoutes(app, Service{
		Boards:    memStore,
		Refresher: builder,
		Sources:   stubStatus{},
		Estimator: airquality.NewInterpolator(),
		Places:    places,
	})
	return app, builder
}

func doRequest(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func liveReadings() []airquality.StationReading {
	pm25 := 140.0
	return []airquality.StationReading{
		{Name: "Chandni Chowk", Lat: 28.6580, Lon: 77.2300, AQI: 310, PM25: &pm25, Source: airquality.SourceAQICN},
		{Name: "Dwarka Sec 8", Lat: 28.5710, Lon: 77.0719, AQI: 180, Source: airquality.SourceAQICN},
	}
}

func TestRoutesBeforeFirstRefresh(t *testing.T) {
	app, _ := newTestApp(t, nil, nil)

	for _, target := range []string{"/api/v1/wards", "/api/v1/wards/1", "/api/v1/stations", "/api/v1/stats"} {
		if code, _ := doRequest(t, app, http.MethodGet, target); code != http.StatusNotFound {
			t.Errorf("%s: expected %d, got %d", target, http.StatusNotFound, code)
		}
	}
}

func TestRefreshAndWards(t *testing.T) {
	app, _ := newTestApp(t, liveReadings(), nil)

	code, body := doRequest(t, app, http.MethodPost, "/api/v1/refresh")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["data_source"] != "live" || body["wards_count"] != float64(2) || body["stations_count"] != float64(2) {
		t.Fatalf("unexpected refresh summary %v", body)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/wards", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var wards []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&wards); err != nil {
		t.Fatalf("decode wards: %v", err)
	}
	resp.Body.Close()
	if len(wards) != 2 || wards[0]["aqi"] != float64(310) || wards[0]["color_code"] != "Maroon" {
		t.Fatalf("unexpected wards %v", wards)
	}
	if _, ok := wards[0]["pollutants"]; ok {
		t.Fatalf("expected summaries without pollutants")
	}

	code, detail := doRequest(t, app, http.MethodGet, "/api/v1/wards/1")
	if code != http.StatusOK || detail["name"] != "Chandni Chowk" || detail["data_source"] != "live" {
		t.Fatalf("unexpected detail %d %v", code, detail)
	}
	pollutants, ok := detail["pollutants"].(map[string]any)
	if !ok || pollutants["pm25"] != 140.0 || pollutants["no2"] != nil {
		t.Fatalf("unexpected pollutants %v", detail["pollutants"])
	}
	if _, present := pollutants["no2"]; !present {
		t.Fatalf("expected every pollutant key to be present")
	}

	code, pol := doRequest(t, app, http.MethodGet, "/api/v1/wards/2/pollutants")
	if code != http.StatusOK || pol["ward_name"] != "Dwarka" {
		t.Fatalf("unexpected pollutants response %d %v", code, pol)
	}

	code, stats := doRequest(t, app, http.MethodGet, "/api/v1/stats")
	if code != http.StatusOK || stats["total_wards"] != float64(2) || stats["critical_wards"] != float64(1) {
		t.Fatalf("unexpected stats %d %v", code, stats)
	}

	code, stations := doRequest(t, app, http.MethodGet, "/api/v1/stations")
	if code != http.StatusOK || stations["count"] != float64(2) || stations["source"] != "live" {
		t.Fatalf("unexpected stations %d %v", code, stations)
	}
}

func TestWardIDValidation(t *testing.T) {
	app, builder := newTestApp(t, liveReadings(), nil)
	if _, err := builder.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/wards/abc", http.StatusBadRequest},
		{"/api/v1/wards/0", http.StatusBadRequest},
		{"/api/v1/wards/99", http.StatusNotFound},
		{"/api/v1/wards/99/pollutants", http.StatusNotFound},
	}
	for _, tt := range tests {
		if code, _ := doRequest(t, app, http.MethodGet, tt.target); code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.want, code)
		}
	}
}

func TestEstimate(t *testing.T) {
	places := stubPlaces{"Red Fort": {28.6562, 77.2410}}
	app, builder := newTestApp(t, liveReadings(), places)
	if _, err := builder.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	code, body := doRequest(t, app, http.MethodGet, "/api/v1/estimate?lat=28.6580&lon=77.2300")
	if code != http.StatusOK || body["aqi"] != float64(310) || body["data_source"] != "live" {
		t.Fatalf("expected snapped estimate, got %d %v", code, body)
	}

	code, body = doRequest(t, app, http.MethodGet, "/api/v1/estimate?place=Red%20Fort")
	if code != http.StatusOK || body["lat"] != 28.6562 || body["place"] != "Red Fort" {
		t.Fatalf("expected place estimate, got %d %v", code, body)
	}
	if aqi, _ := body["aqi"].(float64); aqi < 180 || aqi > 310 {
		t.Fatalf("expected an aqi between the two stations, got %v", body["aqi"])
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/estimate", http.StatusBadRequest},
		{"/api/v1/estimate?lat=28.6", http.StatusBadRequest},
		{"/api/v1/estimate?lat=abc&lon=77", http.StatusBadRequest},
		{"/api/v1/estimate?lat=91&lon=77", http.StatusBadRequest},
		{"/api/v1/estimate?lat=28&lon=-181", http.StatusBadRequest},
		{"/api/v1/estimate?place=Atlantis", http.StatusNotFound},
	}
	for _, tt := range tests {
		if code, _ := doRequest(t, app, http.MethodGet, tt.target); code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.want, code)
		}
	}
}

func TestEstimateWithoutGeocoding(t *testing.T) {
	app, builder := newTestApp(t, liveReadings(), geo.New("", "Delhi", "India", nil))
	if _, err := builder.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if code, _ := doRequest(t, app, http.MethodGet, "/api/v1/estimate?place=Red%20Fort"); code != http.StatusNotImplemented {
		t.Fatalf("expected %d, got %d", http.StatusNotImplemented, code)
	}
}

func TestSources(t *testing.T) {
	app, _ := newTestApp(t, nil, nil)

	code, body := doRequest(t, app, http.MethodGet, "/api/v1/sources")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := body["priority"]; !ok {
		t.Fatalf("expected priority in status, got %v", body)
	}
}

func TestRefreshFallback(t *testing.T) {
	app, _ := newTestApp(t, nil, nil)

	code, body := doRequest(t, app, http.MethodPost, "/api/v1/refresh")
	if code != http.StatusOK || body["data_source"] != "fallback" || body["stations_count"] != float64(10) {
		t.Fatalf("expected fallback refresh, got %d %v", code, body)
	}
}
