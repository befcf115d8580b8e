package airquality

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/air-quality-aggregation/internal/cache"
)

// DefaultPriority is the source order used when none is configured.
var DefaultPriority = []SourceID{SourceAQICN, SourceOpenAQ}

// Aggregator orchestrates the fetchers in priority order, merges and filters
// their readings and keeps the result in the shared cache.
type Aggregator struct {
	cache    *cache.TTL[[]StationReading]
	fetchers map[SourceID]Fetcher
	priority []SourceID
	dedup    bool
	logger   *slog.Logger
	observer Observer
	newID    func() string

	// refreshMu serializes fetch cycles so concurrent callers never hit
	// the same upstream twice.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	status    map[SourceID]FetchStatus
	lastCycle string
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithPriority sets the order in which sources are consulted.
func WithPriority(ids []SourceID) AggregatorOption {
	return func(a *Aggregator) {
		a.priority = slices.Clone(ids)
	}
}

// WithDeduplication enables the duplicate-station pass.
func WithDeduplication(enabled bool) AggregatorOption {
	return func(a *Aggregator) {
		a.dedup = enabled
	}
}

func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) {
		if o != nil {
			a.observer = o
		}
	}
}

// NewAggregator creates an Aggregator over the given fetchers, keyed by their
// source id. A later fetcher with the same id replaces an earlier one.
func NewAggregator(c *cache.TTL[[]StationReading], fetchers []Fetcher, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		cache:    c,
		fetchers: make(map[SourceID]Fetcher, len(fetchers)),
		priority: slices.Clone(DefaultPriority),
		logger:   slog.Default(),
		observer: nopObserver{},
		newID:    func() string { return uuid.NewString() },
		status:   make(map[SourceID]FetchStatus),
	}
	for _, f := range fetchers {
		a.fetchers[f.Source()] = f
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetStations returns the current set of valid station readings.
//
// A cached snapshot is returned as-is unless forceRefresh is set, in which case
// the whole cache (including per-source entries) is dropped first. The result
// may be empty when every source failed; no error is ever returned.
func (a *Aggregator) GetStations(ctx context.Context, forceRefresh bool) []StationReading {
	if forceRefresh {
		a.cache.ClearAll()
	} else if cached, ok := a.cache.Get(StationsCacheKey); ok {
		a.observer.SnapshotCache(true)
		a.logger.Debug("using cached aggregated station data", "count", len(cached))
		return slices.Clone(cached)
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have completed a cycle while we waited.
	if !forceRefresh {
		if cached, ok := a.cache.Get(StationsCacheKey); ok {
			a.observer.SnapshotCache(true)
			return slices.Clone(cached)
		}
	}
	a.observer.SnapshotCache(false)

	cycleID := a.newID()
	var all []StationReading

	for _, id := range a.priority {
		f, ok := a.fetchers[id]
		if !ok {
			a.logger.Debug("no fetcher registered for source", "source", id)
			continue
		}

		readings, st := a.runFetcher(ctx, f)
		st.CycleID = cycleID
		a.recordStatus(id, st)
		a.observer.FetchCompleted(id, st.Status, st.Count, st.Duration)

		switch st.Status {
		case OutcomeSuccess:
			a.logger.Info("fetched stations", "source", id, "count", st.Count, "took", st.Duration)
		case OutcomeEmpty:
			a.logger.Warn("source returned no stations", "source", id, "error", st.Error)
		case OutcomeError:
			a.logger.Error("source fetch failed", "source", id, "error", st.Error)
		}

		all = append(all, readings...)
	}

	valid := FilterValid(all)
	if a.dedup {
		before := len(valid)
		valid = Deduplicate(valid)
		a.logger.Info("deduplicated stations", "before", before, "after", len(valid))
	}
	if len(valid) > 0 {
		a.cache.Set(StationsCacheKey, slices.Clone(valid))
	}

	a.mu.Lock()
	a.lastCycle = cycleID
	a.mu.Unlock()

	return valid
}

// runFetcher calls one fetcher and classifies the outcome. A panicking
// fetcher is reported as an error instead of unwinding the cycle.
func (a *Aggregator) runFetcher(ctx context.Context, f Fetcher) (readings []StationReading, st FetchStatus) {
	start := time.Now()
	defer func() {
		st.Duration = time.Since(start)
		st.Timestamp = time.Now().UTC()
		if r := recover(); r != nil {
			readings = nil
			st.Status = OutcomeError
			st.Count = 0
			st.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	readings, err := f.Fetch(ctx)
	switch {
	case len(readings) > 0:
		st.Status = OutcomeSuccess
		st.Count = len(readings)
	case err != nil:
		st.Status = OutcomeError
	default:
		st.Status = OutcomeEmpty
	}
	if err != nil {
		st.Error = err.Error()
	}
	return readings, st
}

func (a *Aggregator) recordStatus(id SourceID, st FetchStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status[id] = st
}

// SourceConfig reports which registered sources have credentials.
type SourceConfig struct {
	Valid     bool       `json:"valid"`
	Missing   []SourceID `json:"missing"`
	Available []SourceID `json:"available_apis"`
}

// Status is a read-only diagnostic snapshot of the aggregator.
type Status struct {
	Config        SourceConfig             `json:"config"`
	LastFetch     map[SourceID]FetchStatus `json:"last_fetch"`
	LastCycleID   string                   `json:"last_cycle_id,omitempty"`
	Cache         cache.Stats              `json:"cache"`
	Priority      []SourceID               `json:"priority"`
	Deduplication bool                     `json:"deduplication"`
}

// Status returns the last fetch status per source together with cache statistics.
func (a *Aggregator) Status() Status {
	a.mu.RLock()
	last := make(map[SourceID]FetchStatus, len(a.status))
	for id, st := range a.status {
		last[id] = st
	}
	cycle := a.lastCycle
	a.mu.RUnlock()

	cfg := SourceConfig{Missing: []SourceID{}, Available: []SourceID{}}
	for _, id := range sortedSources(a.fetchers) {
		if a.fetchers[id].Configured() {
			cfg.Available = append(cfg.Available, id)
		} else {
			cfg.Missing = append(cfg.Missing, id)
		}
	}
	cfg.Valid = len(cfg.Missing) == 0

	return Status{
		Config:        cfg,
		LastFetch:     last,
		LastCycleID:   cycle,
		Cache:         a.cache.Stats(),
		Priority:      slices.Clone(a.priority),
		Deduplication: a.dedup,
	}
}

func sortedSources(m map[SourceID]Fetcher) []SourceID {
	ids := make([]SourceID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
