package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
	"github.com/i474232898/air-quality-aggregation/internal/cache"
)

func aqicnFeedJSON(name string, lat, lon float64, aqi string) string {
	return fmt.Sprintf(`{"status":"ok","data":{"aqi":%s,"dominentpol":"pm25",
"city":{"name":%q,"geo":[%v,%v]},
"iaqi":{"pm25":{"v":187},"pm10":{"v":142},"no2":{"v":23.4},"h":{"v":61},"t":{"v":19}},
"time":{"iso":"2024-11-05T14:00:00+05:30"}}}`, aqi, name, lat, lon)
}

func TestAQICNFetchToleratesStationFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/delhi/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			t.Errorf("expected token in query, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, aqicnFeedJSON("Delhi", 28.63, 77.22, "312"))
	})
	mux.HandleFunc("/feed/delhi/anand-vihar/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, aqicnFeedJSON("Anand Vihar, Delhi", 28.6469, 77.3164, `"401"`))
	})
	mux.HandleFunc("/feed/delhi/ito/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","data":"Unknown station"}`)
	})
	mux.HandleFunc("/feed/delhi/dwarka/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","data":`)
	})
	mux.HandleFunc("/feed/delhi/rohini/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/feed/noida/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, aqicnFeedJSON("Noida", 28.57, 77.32, `"-"`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := cache.New[[]airquality.StationReading](time.Minute)
	stations := []string{"delhi/anand-vihar", "delhi/ito", "delhi/dwarka", "delhi/rohini", "noida"}
	p := NewAQICNProvider(testOptions(srv, c), "tok", "delhi", stations)

	readings, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected city + anand vihar + noida, got %d: %+v", len(readings), readings)
	}

	city := readings[0]
	if city.Name != "Delhi" || city.AQI != 312 || city.Reliability != 0.92 {
		t.Errorf("unexpected city reading %+v", city)
	}
	if city.PM25 == nil || *city.PM25 != 187 || city.NO2 == nil || *city.NO2 != 23.4 {
		t.Errorf("expected iaqi values to be carried over, got %+v", city)
	}
	if city.SO2 != nil {
		t.Errorf("expected unreported channels to be nil")
	}
	if !city.Timestamp.Equal(time.Date(2024, 11, 5, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %s", city.Timestamp)
	}

	anand := readings[1]
	if anand.AQI != 401 || anand.Reliability != 0.90 || anand.Lat != 28.6469 || anand.Lon != 77.3164 {
		t.Errorf("unexpected station reading %+v", anand)
	}

	// WAQI reports "-" for stations without a current index.
	if readings[2].Name != "Noida" || readings[2].AQI != 0 {
		t.Errorf("expected noida with invalid aqi, got %+v", readings[2])
	}

	if _, ok := c.Get(airquality.SourceAQICN.CacheKey()); !ok {
		t.Fatalf("expected readings to be cached")
	}
}

func TestAQICNCityFailureDoesNotAbortStations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/delhi/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/feed/delhi/ito/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, aqicnFeedJSON("ITO, Delhi", 28.6289, 77.2411, "288"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewAQICNProvider(testOptions(srv, nil), "tok", "delhi", []string{"delhi/ito"})
	readings, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 1 || readings[0].AQI != 288 {
		t.Fatalf("expected the station reading, got %+v", readings)
	}
}

func TestAQICNSlowStationTimesOut(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/delhi/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, aqicnFeedJSON("Delhi", 28.63, 77.22, "250"))
	})
	mux.HandleFunc("/feed/delhi/slow/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	p := NewAQICNProvider(testOptions(srv, nil), "tok", "delhi", []string{"delhi/slow"})
	p.stationCfg.Timeout = 50 * time.Millisecond
	p.stationCfg.Backoff.MaxRetries = 0

	readings, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 1 || readings[0].Name != "Delhi" {
		t.Fatalf("expected only the city reading, got %+v", readings)
	}
}

func TestAQICNInvalidTokenShortCircuits(t *testing.T) {
	var stationHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/feed/delhi/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","data":"Invalid key"}`)
	})
	mux.HandleFunc("/feed/delhi/ito/", func(w http.ResponseWriter, r *http.Request) {
		stationHits.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewAQICNProvider(testOptions(srv, nil), "bad", "delhi", []string{"delhi/ito"})
	readings, err := p.Fetch(context.Background())
	if len(readings) != 0 || err == nil || !strings.Contains(err.Error(), "Invalid key") {
		t.Fatalf("expected an invalid key error, got %d readings, err=%v", len(readings), err)
	}
	if stationHits.Load() != 0 {
		t.Fatalf("expected station feeds to be skipped")
	}
}

func TestAQICNAllFeedsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewAQICNProvider(testOptions(srv, nil), "tok", "delhi", []string{"a", "b"})
	readings, err := p.Fetch(context.Background())
	if len(readings) != 0 || err == nil {
		t.Fatalf("expected error with no readings, got %d readings, err=%v", len(readings), err)
	}
}

func TestAQICNWithoutTokenIsNoop(t *testing.T) {
	p := NewAQICNProvider(Options{}, "", "", nil)
	if p.Configured() {
		t.Fatalf("expected missing token to be reported")
	}
	if readings, err := p.Fetch(context.Background()); len(readings) != 0 || err != nil {
		t.Fatalf("expected empty no-op, got %d readings, err=%v", len(readings), err)
	}
}
