package ward

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

// StationSource supplies the current valid station snapshot.
type StationSource interface {
	GetStations(ctx context.Context, forceRefresh bool) []airquality.StationReading
}

// Estimator produces a point estimate from a station set.
type Estimator interface {
	Estimate(lat, lon float64, stations []airquality.StationReading) airquality.WardEstimate
}

// Store keeps the latest board.
type Store interface {
	SaveBoard(b Board) error
}

// Recorder is notified after every saved board.
type Recorder interface {
	BoardRefreshed(dataSource string, wards int)
}

// Builder rebuilds the ward board from the aggregated stations.
type Builder struct {
	stations  StationSource
	estimator Estimator
	store     Store
	seeds     []Seed
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	// mu keeps concurrent refreshes from saving boards out of order.
	mu sync.Mutex
}

type BuilderOption func(*Builder)

// WithSeeds replaces the default Delhi ward list.
func WithSeeds(seeds []Seed) BuilderOption {
	return func(b *Builder) {
		b.seeds = slices.Clone(seeds)
	}
}

func WithRecorder(r Recorder) BuilderOption {
	return func(b *Builder) {
		b.recorder = r
	}
}

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBuilder(stations StationSource, estimator Estimator, store Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		stations:  stations,
		estimator: estimator,
		store:     store,
		seeds:     DelhiWards,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Refresh fetches stations, falls back to the static set when none are
// available, estimates every ward and saves the result. A cancelled context
// leaves the previous board in place.
func (b *Builder) Refresh(ctx context.Context, force bool) (Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	stations := b.stations.GetStations(ctx, force)
	if err := ctx.Err(); err != nil {
		return Board{}, fmt.Errorf("refresh aborted: %w", err)
	}

	board := Board{
		CycleID:    b.newID(),
		DataSource: SourceLive,
		Stations:   stations,
		UpdatedAt:  now,
	}
	if len(stations) == 0 {
		b.logger.Warn("no live stations available; using fallback set")
		board.DataSource = SourceFallback
		board.Stations = FallbackStations(now)
	}

	board.Wards = make([]Ward, 0, len(b.seeds))
	for i, seed := range b.seeds {
		est := b.estimator.Estimate(seed.Lat, seed.Lon, board.Stations)
		board.Wards = append(board.Wards, Ward{
			ID:          i + 1,
			Name:        seed.Name,
			WardNo:      seed.WardNo,
			Coordinates: Coordinates{Lat: seed.Lat, Lon: seed.Lon},
			AQI:         est.AQI,
			ColorCode:   Category(est.AQI),
			Pollutants:  est.Pollutants,
		})
	}

	if err := b.store.SaveBoard(board); err != nil {
		return Board{}, fmt.Errorf("save board: %w", err)
	}
	if b.recorder != nil {
		b.recorder.BoardRefreshed(string(board.DataSource), len(board.Wards))
	}

	b.logger.Info("ward board refreshed",
		"cycle_id", board.CycleID,
		"data_source", board.DataSource,
		"stations", len(board.Stations),
		"wards", len(board.Wards),
	)
	return board, nil
}
