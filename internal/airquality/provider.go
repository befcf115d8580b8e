package airquality

import (
	"context"
	"time"
)

// Fetcher abstracts one upstream air-quality source (CPCB, AQICN, OpenAQ).
//
// Fetch always returns whatever readings it could build. A non-nil error
// explains why the result is empty or partial; it is diagnostic only and
// callers must not treat it as fatal. A fetcher without credentials returns
// no readings and no error.
type Fetcher interface {
	Source() SourceID
	Configured() bool
	Fetch(ctx context.Context) ([]StationReading, error)
}

// Observer receives aggregation events, typically for metrics.
type Observer interface {
	FetchCompleted(source SourceID, outcome FetchOutcome, count int, took time.Duration)
	SnapshotCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) FetchCompleted(SourceID, FetchOutcome, int, time.Duration) {}
func (nopObserver) SnapshotCache(bool)                                       {}
