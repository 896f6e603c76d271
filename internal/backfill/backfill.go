// Package backfill periodically resolves coordinates for stops that were
// saved while the geocoder was unavailable.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/neexbeast/trip-planner/internal/metrics"
)

// Runner does one pass over all stored trips. *planner.Service satisfies it.
type Runner interface {
	BackfillAll(ctx context.Context) (int, error)
}

// Scheduler runs a Runner on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses schedule (standard five-field cron or a descriptor such as
// "@every 6h") and returns a stopped Scheduler. Each run is bounded by timeout;
// zero means no limit.
func New(runner Runner, schedule string, timeout time.Duration, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:  runner,
		timeout: timeout,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.RunOnce(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("parsing backfill schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("backfill scheduler started")
}

// Stop cancels a run in progress and waits for it to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("backfill still running at shutdown")
	}
}

// RunOnce performs a single backfill pass and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := s.runner.BackfillAll(ctx)
	if err != nil {
		metrics.BackfillRuns.WithLabelValues("error").Inc()
		s.log.Warn("backfill finished with errors", "trips", n, "err", err, "took", time.Since(start))
		return err
	}
	metrics.BackfillRuns.WithLabelValues("ok").Inc()
	s.log.Info("backfill finished", "trips", n, "took", time.Since(start))
	return nil
}
