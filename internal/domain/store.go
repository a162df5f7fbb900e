package domain

import "context"

// Store is the persistence interface the scheduler writes job transitions
// through. The catalog layer owns the implementation; the core only requires
// that UpdateStatus and Finalize are idempotent for repeated terminal calls,
// since retries after partial failures are possible.
type Store interface {
	// CreateJob persists a newly admitted job in queued state.
	CreateJob(ctx context.Context, job *Job) error

	// UpdateStatus records a status transition. errMsg is empty except for
	// transitions into StatusError.
	UpdateStatus(ctx context.Context, jobID string, status Status, errMsg string) error

	// Finalize records the output size, metadata summary, and optional
	// thumbnail reference for a completed job.
	Finalize(ctx context.Context, jobID string, result FinalResult) error
}
