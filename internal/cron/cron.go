// Package cron runs the wall's maintenance work on cron schedules: catalog
// refresh and pruning of cached catalog snapshots. Jobs can also be
// triggered by hand through the admin API.
package cron

import "context"

// Job is one named maintenance task.
type Job interface {
	// Name identifies the job in logs, status output and Trigger calls.
	Name() string

	// Schedule is a 5-field cron expression or a descriptor like "@hourly".
	Schedule() string

	// Run performs one pass. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}
