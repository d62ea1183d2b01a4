// Package scheduler fires reconciliation runs on a cron schedule, never more
// than one at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shopsync/internal/logger"
	"shopsync/internal/metrics"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "0 */6 * * *"

// RunFunc performs one isolated run.
type RunFunc func(ctx context.Context) error

type Scheduler struct {
	cron     *cron.Cron
	schedule string
	run      RunFunc
	running  atomic.Bool
	mu       sync.Mutex
	stopped  bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

type Option func(*Scheduler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New parses schedule (standard five-field cron) and registers run on it.
func New(schedule string, run RunFunc, logger *logger.Logger, opts ...Option) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		schedule: schedule,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithLogger(cronLogger{logger: logger.Named("cron")}))
	if _, err := s.cron.AddFunc(schedule, func() { s.Trigger() }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started. Sync will run on %q", s.schedule)
	s.cron.Start()
}

// Next reports when the schedule fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow triggers a run in the background, subject to the same overlap guard.
func (s *Scheduler) RunNow() {
	if !s.enter() {
		return
	}
	go func() {
		defer s.wg.Done()
		s.fire()
	}()
}

// Trigger runs synchronously unless a run is already active or the scheduler
// is stopped, in which case it returns false immediately.
func (s *Scheduler) Trigger() bool {
	if !s.enter() {
		s.logger.Debug("Scheduler stopped, ignoring trigger")
		return false
	}
	defer s.wg.Done()
	return s.fire()
}

// enter registers a caller with wg unless Stop has begun.
func (s *Scheduler) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) fire() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous sync still running, skipping this trigger")
		s.metrics.SkippedTrigger()
		return false
	}
	defer s.running.Store(false)

	started := time.Now()
	s.logger.Info("Running scheduled sync...")
	if err := s.run(s.ctx); err != nil {
		s.logger.Error("Scheduled sync failed after %v: %v", time.Since(started), err)
		return true
	}
	s.logger.Info("Scheduled sync finished in %v", time.Since(started))
	return true
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop halts the schedule and waits for the active run. If ctx expires first
// the run's context is cancelled and ctx's error returned. Later triggers are
// ignored.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// cronLogger routes cron's key/value logging through the printf logger.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("%s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("%s: %v %v", msg, err, keysAndValues)
}
