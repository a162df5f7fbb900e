package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/planner"
)

// BuildArgs constructs the complete ffmpeg argument slice for a transcode
// job. Progress is requested on stdout as a machine-parseable key=value
// stream; stderr stays reserved for diagnostics.
func BuildArgs(job *domain.Job, plan *planner.ExecutionPlan) []string {
	args := make([]string, 0, 48)

	// --- Preamble ---
	args = append(args,
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-progress", "pipe:1", "-nostats",
	)

	// --- Input (image loop flag precedes -i) ---
	args = append(args, plan.InputOpts...)
	args = append(args, "-i", job.SourcePath)

	// --- Video ---
	if plan.Video.Strip {
		args = append(args, "-vn")
	} else {
		if len(plan.Filters) > 0 {
			args = append(args, "-vf", strings.Join(plan.Filters, ","))
		}
		args = append(args, "-c:v", plan.Video.Codec, "-pix_fmt", plan.Video.PixFmt)
		args = append(args, plan.Video.Opts...)
	}

	// --- Audio ---
	if plan.Audio.Strip {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", plan.Audio.Codec, "-b:a", plan.Audio.Bitrate)
		if plan.Audio.Channels > 0 {
			args = append(args, "-ac", strconv.Itoa(plan.Audio.Channels))
		}
	}

	// --- Output section (forced duration/rate, container flags, muxer) ---
	args = append(args, plan.OutputOpts...)
	args = append(args, plan.ContainerOpts...)
	if plan.Muxer != "" {
		args = append(args, "-f", plan.Muxer)
	}
	args = append(args, job.Output.Path())

	return args
}

// BuildThumbnailArgs constructs the short extraction command for the
// thumbnail fast path: one frame at the plan's seek offset, scaled to the
// thumbnail width with preserved aspect ratio.
func BuildThumbnailArgs(job *domain.Job, plan *planner.ExecutionPlan) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%g", plan.ThumbOffset),
		"-i", job.SourcePath,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", plan.ThumbWidth),
		job.Output.Path(),
	}
}
