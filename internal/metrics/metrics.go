package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

const namespace = "airquality"

// Metrics owns the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal     *prometheus.CounterVec
	fetchReadings  *prometheus.GaugeVec
	fetchDuration  *prometheus.HistogramVec
	snapshotHits   prometheus.Counter
	snapshotMisses prometheus.Counter
	cbState        *prometheus.GaugeVec
	boardRefreshes *prometheus.CounterVec
	boardWards     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Source fetches by outcome.",
		}, []string{"source", "outcome"}),
		fetchReadings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_readings",
			Help:      "Readings returned by the last fetch of each source.",
		}, []string{"source"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Histogram of source fetch durations.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		snapshotHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_hits_total",
			Help:      "Station snapshot requests served from cache.",
		}),
		snapshotMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_misses_total",
			Help:      "Station snapshot requests that triggered an aggregation cycle.",
		}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cb_state",
			Help:      "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
		boardRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_refresh_total",
			Help:      "Ward board refreshes by data source.",
		}, []string{"data_source"}),
		boardWards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_wards",
			Help:      "Wards on the latest board.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetchTotal,
		m.fetchReadings,
		m.fetchDuration,
		m.snapshotHits,
		m.snapshotMisses,
		m.cbState,
		m.boardRefreshes,
		m.boardWards,
	)

	for _, source := range []airquality.SourceID{airquality.SourceCPCB, airquality.SourceAQICN, airquality.SourceOpenAQ} {
		m.cbState.WithLabelValues(string(source)).Set(0)
	}

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FetchCompleted implements airquality.Observer.
func (m *Metrics) FetchCompleted(source airquality.SourceID, outcome airquality.FetchOutcome, count int, took time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(string(source), string(outcome)).Inc()
	m.fetchReadings.WithLabelValues(string(source)).Set(float64(count))
	m.fetchDuration.WithLabelValues(string(source)).Observe(took.Seconds())
}

// SnapshotCache implements airquality.Observer.
func (m *Metrics) SnapshotCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.snapshotHits.Inc()
		return
	}
	m.snapshotMisses.Inc()
}

// BreakerStateChanged matches gobreaker's OnStateChange hook.
func (m *Metrics) BreakerStateChanged(name string, _, to gobreaker.State) {
	if m == nil {
		return
	}
	m.cbState.WithLabelValues(name).Set(breakerStateValue(to))
}

// BoardRefreshed records a rebuilt ward board.
func (m *Metrics) BoardRefreshed(dataSource string, wards int) {
	if m == nil {
		return
	}
	m.boardRefreshes.WithLabelValues(dataSource).Inc()
	m.boardWards.Set(float64(wards))
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
