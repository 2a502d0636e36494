// Package cron runs background jobs for `coffee serve` on cron schedules.
// The only job today is the periodic rematch that refreshes every user's
// candidate list after profiles change.
package cron

import "context"

// Job is a named unit of periodic work.
type Job interface {
	// Name identifies the job in logs and in RunNow. It must be unique
	// within a Scheduler.
	Name() string

	// Schedule is a standard five-field cron expression, or a descriptor
	// such as "@hourly".
	Schedule() string

	// Run performs one execution and must return promptly once ctx is done.
	Run(ctx context.Context) error
}
