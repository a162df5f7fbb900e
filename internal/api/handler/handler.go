package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/api/dto"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/broadcast"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/store"
)

// Submitter admits jobs into the scheduling pipeline.
type Submitter interface {
	Submit(ctx context.Context, job *domain.Job) error
	ActiveCount() int
	QueuedCount() int
	Budget() int
}

// JobStore is the read side the handlers query.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*domain.Job, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Storage     JobStore
	Scheduler   Submitter
	Broadcaster *broadcast.Broadcaster
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger      *slog.Logger
	storage     JobStore
	scheduler   Submitter
	broadcaster *broadcast.Broadcaster
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:      deps.Logger,
		storage:     deps.Storage,
		scheduler:   deps.Scheduler,
		broadcaster: deps.Broadcaster,
	}
}

func toJobDTO(job *domain.Job) dto.JobDTO {
	d := dto.JobDTO{
		JobID:      job.ID,
		AssetID:    job.AssetID,
		SourcePath: job.SourcePath,
		Status:     string(job.Status),
		LastError:  job.LastError,
		Config:     job.Config,
		OutputPath: job.Output.Path(),
		QueuedAt:   job.QueuedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		d.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		d.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return d
}
