// Package store persists jobs and their lifecycle transitions in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
	"github.com/Filip-Szettel/MediaFlow-sub000/shared/postgresql"
)

// Storage handles all database operations for transcode jobs.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance.
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// jobRow is the flat database projection of a job. Config and probe are
// stored as JSONB so planner options evolve without schema migrations.
type jobRow struct {
	JobID      string `db:"job_id"`
	AssetID    string `db:"asset_id"`
	SourcePath string `db:"source_path"`
	Status     string `db:"status"`
	LastError  string `db:"last_error"`

	Config []byte `db:"config"`
	Probe  []byte `db:"probe"`

	OutputDir      string `db:"output_dir"`
	OutputFilename string `db:"output_filename"`

	QueuedAt    time.Time    `db:"queued_at"`
	StartedAt   sql.NullTime `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`

	OutputSize       sql.NullInt64  `db:"output_size"`
	OutputResolution sql.NullString `db:"output_resolution"`
	OutputCodec      sql.NullString `db:"output_codec"`
	Took             sql.NullString `db:"took"`
	ThumbnailRef     sql.NullString `db:"thumbnail_ref"`
}

func (r *jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:         r.JobID,
		AssetID:    r.AssetID,
		SourcePath: r.SourcePath,
		Status:     domain.Status(r.Status),
		LastError:  r.LastError,
		Output: domain.OutputSpec{
			Dir:      r.OutputDir,
			Filename: r.OutputFilename,
		},
		QueuedAt: r.QueuedAt,
	}

	if err := json.Unmarshal(r.Config, &job.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job config: %w", err)
	}
	if len(r.Probe) > 0 {
		var probe media.Probe
		if err := json.Unmarshal(r.Probe, &probe); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job probe: %w", err)
		}
		job.Probe = &probe
	}

	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		job.StartedAt = &t
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		job.CompletedAt = &t
	}

	return job, nil
}

// CreateJob persists a newly admitted job in queued state.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal job config: %w", err)
	}

	var probeJSON []byte
	if job.Probe != nil {
		probeJSON, err = json.Marshal(job.Probe)
		if err != nil {
			return fmt.Errorf("failed to marshal job probe: %w", err)
		}
	}

	query := `
		INSERT INTO transcode_jobs (
			job_id, asset_id, source_path, status, last_error,
			config, probe, output_dir, output_filename,
			queued_at, updated_at
		) VALUES (
			$1, $2, $3, $4, '',
			$5, $6, $7, $8,
			$9, NOW()
		)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.AssetID,
		job.SourcePath,
		string(job.Status),
		configJSON,
		probeJSON,
		job.Output.Dir,
		job.Output.Filename,
		job.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job persisted",
		slog.String("job_id", job.ID),
		slog.String("asset_id", job.AssetID),
	)
	return nil
}

// UpdateStatus records a status transition. started_at and completed_at are
// derived from the status in SQL so repeated calls for the same transition
// leave the row unchanged.
func (s *Storage) UpdateStatus(ctx context.Context, jobID string, status domain.Status, errMsg string) error {
	query := `
		UPDATE transcode_jobs
		SET status = $1::text,
			last_error = $2,
			started_at = CASE
				WHEN $1::text = $3::text AND started_at IS NULL THEN NOW()
				ELSE started_at
			END,
			completed_at = CASE
				WHEN $1::text IN ($4::text, $5::text) AND completed_at IS NULL THEN NOW()
				ELSE completed_at
			END,
			updated_at = NOW()
		WHERE job_id = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		string(status),
		errMsg,
		string(domain.StatusProcessing),
		string(domain.StatusReady),
		string(domain.StatusError),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", string(status)),
	)
	return nil
}

// Finalize records the output summary for a completed job. Repeating the call
// with the same result is a no-op at the row level.
func (s *Storage) Finalize(ctx context.Context, jobID string, result domain.FinalResult) error {
	query := `
		UPDATE transcode_jobs
		SET output_size = $1,
			output_resolution = $2,
			output_codec = $3,
			took = $4,
			thumbnail_ref = $5,
			updated_at = NOW()
		WHERE job_id = $6
	`

	_, err := s.db.ExecContext(ctx, query,
		result.Size,
		result.Metadata.Resolution,
		result.Metadata.Codec,
		result.Metadata.Took,
		result.ThumbnailRef,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	return nil
}

// GetJob retrieves a job by its ID.
func (s *Storage) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT
			job_id, asset_id, source_path, status, last_error,
			config, probe, output_dir, output_filename,
			queued_at, started_at, completed_at,
			output_size, output_resolution, output_codec, took, thumbnail_ref
		FROM transcode_jobs
		WHERE job_id = $1
	`

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain()
}

// JobFilter narrows ListJobs results. Cursor pagination keys on
// (queued_at, job_id) so pages stay stable while new jobs arrive.
type JobFilter struct {
	AssetID  string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor points just past the last row of the previous page.
type JobCursor struct {
	QueuedAt time.Time
	JobID    string
}

// ListJobs returns up to PageSize+1 jobs matching the filter, newest first.
// The caller uses the extra row to decide whether a next page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	query := `
		SELECT
			job_id, asset_id, source_path, status, last_error,
			config, probe, output_dir, output_filename,
			queued_at, started_at, completed_at,
			output_size, output_resolution, output_codec, took, thumbnail_ref
		FROM transcode_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.AssetID != "" {
		query += fmt.Sprintf(" AND asset_id = $%d", argIdx)
		args = append(args, filter.AssetID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (queued_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.QueuedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY queued_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
