package scheduler

import "context"

// Job is a unit of work executed by the worker pool. Different job types can
// be implemented (sync jobs, cleanup jobs).
type Job interface {
	// Execute runs the job. The context carries the pool's timeout and
	// cancellation.
	Execute(ctx context.Context) error

	// ConnectionID returns the bank connection this job operates on, for
	// logging and tracing.
	ConnectionID() string

	// Description returns a human-readable description of the job.
	Description() string
}
