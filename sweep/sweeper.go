// Package sweep runs the retention sweeper: a periodic loop driven by a
// cron expression that hard-deletes terminal jobs older than the
// retention window. The engine provides the cleanup implementation; the
// sweeper only decides when to run it.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// CleanupFunc performs one sweep and reports how many records were
// removed. engine.CleanupOldJobs satisfies this signature.
type CleanupFunc func(ctx context.Context) (int, error)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithTickInterval sets how often the sweeper checks whether the next
// scheduled run is due. Defaults to one second.
func WithTickInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.tickInterval = d }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

// WithClock injects the time source used for due checks.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// cronParser supports standard 5-field cron and descriptors like
// "@hourly" or "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Sweeper fires a cleanup function on a cron schedule.
type Sweeper struct {
	cleanup  CleanupFunc
	schedule cronlib.Schedule
	expr     string
	logger   *slog.Logger
	now      func() time.Time

	tickInterval time.Duration

	mu      sync.Mutex
	nextRun time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Sweeper firing cleanup per the cron expression.
// An empty expression defaults to "@hourly".
func New(expr string, cleanup CleanupFunc, opts ...Option) (*Sweeper, error) {
	if expr == "" {
		expr = "@hourly"
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("sweep: invalid schedule %q: %w", expr, err)
	}

	s := &Sweeper{
		cleanup:      cleanup,
		schedule:     schedule,
		expr:         expr,
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
		tickInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextRun = s.schedule.Next(s.now())
	return s, nil
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("retention sweeper started",
		slog.String("schedule", s.expr),
		slog.Time("next_run", s.NextRun()),
	)
	return nil
}

// Stop signals the loop to stop and waits for it to finish.
func (s *Sweeper) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("retention sweeper stopped")
	return nil
}

// NextRun returns when the next sweep is due.
func (s *Sweeper) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// RunOnce performs one sweep immediately, independent of the schedule.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.cleanup(ctx)
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs the cleanup when the scheduled time has passed and advances
// the schedule. Sweep errors are logged, not fatal; the loop keeps going.
func (s *Sweeper) tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	due := !now.Before(s.nextRun)
	if due {
		s.nextRun = s.schedule.Next(now)
	}
	s.mu.Unlock()

	if !due {
		return
	}

	removed, err := s.cleanup(ctx)
	if err != nil {
		s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		s.logger.Info("retention sweep done", slog.Int("removed", removed))
	}
}
