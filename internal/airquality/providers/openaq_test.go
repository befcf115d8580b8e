package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

const openAQPayload = `{
  "meta": {"found": 4},
  "results": [
    {"name": "Punjabi Bagh", "coordinates": {"latitude": 28.674, "longitude": 77.131},
     "parameters": [{"parameter": "pm25", "lastValue": 55.4}, {"parameter": "pm10", "lastValue": 198}],
     "lastUpdated": "2024-11-05T09:00:00Z"},
    {"name": "Lodhi Road", "coordinates": {"latitude": "28.5918", "longitude": "77.2273"},
     "parameters": [{"parameter": "pm2.5", "lastValue": "12"}, {"parameter": "o3", "lastValue": 20}]},
    {"name": "Narela", "coordinates": {"latitude": 28.822, "longitude": 77.101},
     "parameters": [{"parameter": "pm10", "lastValue": 310}]},
    {"name": ["broken"]}
  ]
}`

func TestOpenAQFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/locations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("country") != "IN" || q.Get("city") != "Delhi" || q.Get("limit") != "100" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, openAQPayload)
	}))
	defer srv.Close()

	p := NewOpenAQProvider(testOptions(srv, nil), "", "")
	if !p.Configured() {
		t.Fatalf("expected OpenAQ to need no credentials")
	}

	readings, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected the broken location to be skipped, got %d", len(readings))
	}

	bagh := readings[0]
	if bagh.AQI != 150 || bagh.Reliability != 0.85 || bagh.Source != airquality.SourceOpenAQ {
		t.Errorf("unexpected reading %+v", bagh)
	}
	if bagh.PM10 == nil || *bagh.PM10 != 198 {
		t.Errorf("expected pm10 198, got %v", bagh.PM10)
	}
	if !bagh.Timestamp.Equal(time.Date(2024, 11, 5, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %s", bagh.Timestamp)
	}

	lodhi := readings[1]
	if lodhi.AQI != 50 || lodhi.Lat != 28.5918 {
		t.Errorf("unexpected reading %+v", lodhi)
	}
	// Only particulate channels are carried over.
	if lodhi.O3 != nil {
		t.Errorf("expected o3 to be ignored")
	}

	if readings[2].AQI != 0 || readings[2].PM25 != nil {
		t.Errorf("expected no aqi without pm25, got %+v", readings[2])
	}
}

func TestOpenAQServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOpenAQProvider(testOptions(srv, nil), "IN", "Delhi")
	readings, err := p.Fetch(context.Background())
	if len(readings) != 0 || err == nil {
		t.Fatalf("expected an error and no readings, got %d readings, err=%v", len(readings), err)
	}
}
