package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-aggregation/internal/ward"
)

const (
	defaultInterval = 15 * time.Minute
	// refreshTimeout bounds one run; AQICN's city feed alone may take a minute.
	refreshTimeout = 3 * time.Minute
)

// Refresher rebuilds the ward board.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (ward.Board, error)
}

// Scheduler periodically refreshes the ward board.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. A non-positive interval falls back to 15 minutes.
func New(interval time.Duration, refresher Refresher, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   refreshTimeout,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job, runs it once right away and starts the
// underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	s.logger.Debug("running board refresh job")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	board, err := s.refresher.Refresh(ctx, false)
	if err != nil {
		s.logger.Error("board refresh failed", "error", err)
		return
	}
	s.logger.Info("completed board refresh job",
		"data_source", board.DataSource,
		"wards", len(board.Wards),
		"took", time.Since(start),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
