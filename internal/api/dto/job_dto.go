package dto

import (
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

type CreateJobRequest struct {
	AssetID    string `json:"asset_id"`
	SourcePath string `json:"source_path" binding:"required"`

	Config domain.JobConfig `json:"config"`
	Probe  *media.Probe     `json:"probe"`

	OutputDir      string `json:"output_dir" binding:"required"`
	OutputFilename string `json:"output_filename" binding:"required"`
}

type ListJobsRequest struct {
	AssetID  string `form:"asset_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID       string           `json:"job_id"`
	AssetID     string           `json:"asset_id,omitempty"`
	SourcePath  string           `json:"source_path"`
	Status      string           `json:"status"`
	LastError   string           `json:"last_error,omitempty"`
	Config      domain.JobConfig `json:"config"`
	OutputPath  string           `json:"output_path"`
	QueuedAt    string           `json:"queued_at"`
	StartedAt   string           `json:"started_at,omitempty"`
	CompletedAt string           `json:"completed_at,omitempty"`
}
