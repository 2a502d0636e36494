package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultRematchSchedule recomputes matches at the top of every hour.
	DefaultRematchSchedule = "0 * * * *"

	RematchJobName = "rematch"
)

// Rematcher recomputes matches for every stored profile.
type Rematcher interface {
	RematchAll(ctx context.Context) (int, error)
}

// RematchJob refreshes the match lists of all users so that profiles
// created since their last trigger_matching call show up as candidates.
type RematchJob struct {
	Matcher      Rematcher
	ScheduleExpr string
	// Timeout bounds a single run. Zero means no bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

var _ Job = (*RematchJob)(nil)

// Name implements Job.
func (j *RematchJob) Name() string { return RematchJobName }

// Schedule implements Job.
func (j *RematchJob) Schedule() string {
	if j.ScheduleExpr == "" {
		return DefaultRematchSchedule
	}
	return j.ScheduleExpr
}

// Run implements Job.
func (j *RematchJob) Run(ctx context.Context) error {
	if j.Matcher == nil {
		return fmt.Errorf("cron: rematch job has no matcher")
	}
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := j.Matcher.RematchAll(ctx)
	if err != nil {
		return fmt.Errorf("cron: rematch after %d users: %w", n, err)
	}

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("cron: rematch completed", "users", n, "duration", time.Since(start))
	return nil
}
