// Package scheduler runs crawls on a fixed interval.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/bookwatch/internal/domain"
	"github.com/jonesrussell/bookwatch/internal/logger"
)

// Runner starts one crawl run.
type Runner interface {
	Run(ctx context.Context) (*domain.RunSummary, error)
}

// Scheduler triggers crawl runs periodically. A tick arriving while a run
// is still in progress is skipped, never queued.
type Scheduler struct {
	runner   Runner
	log      logger.Interface
	interval time.Duration
	cron     *cron.Cron
	running  atomic.Bool
}

// New creates a scheduler triggering a run every interval.
func New(runner Runner, interval time.Duration, log logger.Interface) *Scheduler {
	return &Scheduler{
		runner:   runner,
		log:      log.WithComponent("scheduler"),
		interval: interval,
		cron:     cron.New(),
	}
}

// Start begins scheduling. It returns immediately; runs happen on the
// cron's goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		s.RunOnce(ctx)
	}))
	s.cron.Start()

	s.log.Info("scheduler started", "interval", s.interval.String())
}

// Stop stops scheduling and waits for an in-progress run's cron slot to
// finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("scheduler stopped")
}

// RunOnce executes one scheduled run, skipping when one is still in flight.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous crawl run still in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	if ctx.Err() != nil {
		return
	}

	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("scheduled crawl run failed", "error", err.Error())
		return
	}
	s.log.Info("scheduled crawl run finished",
		"run_id", summary.RunID,
		"changes", len(summary.Changes),
	)
}
