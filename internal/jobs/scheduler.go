// Package jobs runs periodic maintenance inside the API process.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"campusqa/internal/featureflags"

	"github.com/robfig/cron/v3"
)

// DefaultReconcileSchedule runs the reconciliation nightly at 03:30.
const DefaultReconcileSchedule = "0 30 3 * * *"

// reconcileTimeout bounds a single reconciliation run.
const reconcileTimeout = 10 * time.Minute

// Reconciler rebuilds reputation projections from the event ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Scheduler owns the cron instance and the jobs registered on it.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	flags      *featureflags.Manager
	schedule   string
}

// NewScheduler creates a scheduler with seconds precision. An empty schedule
// falls back to DefaultReconcileSchedule.
func NewScheduler(reconciler Reconciler, flags *featureflags.Manager, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		reconciler: reconciler,
		flags:      flags,
		schedule:   schedule,
	}
}

// Start registers the jobs and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
		defer cancel()
		s.RunReconcile(ctx)
	}); err != nil {
		return fmt.Errorf("register reputation reconcile job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", slog.String("reconcile_schedule", s.schedule))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("scheduler stopped")
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out", slog.String("error", ctx.Err().Error()))
	}
}

// RunReconcile executes one reconciliation pass if the feature is enabled.
// It reports whether the pass ran.
func (s *Scheduler) RunReconcile(ctx context.Context) bool {
	if !s.flags.Enabled(featureflags.ReputationReconcile, 0) {
		slog.DebugContext(ctx, "reputation reconcile disabled, skipping")
		return false
	}

	start := time.Now()
	fixed, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "reputation reconcile failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return true
	}

	level := slog.LevelInfo
	if fixed > 0 {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "reputation reconcile finished",
		slog.Int("users_fixed", fixed),
		slog.Duration("duration", time.Since(start)),
	)
	return true
}
