// Package planner maps a job's declarative configuration and the source
// probe metadata into a fully resolved execution plan. It is pure: no I/O,
// no concurrency, and the same inputs always yield the same plan.
package planner

import (
	"fmt"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

// Thumbnail fast-path constants: one frame, fixed width, preserved aspect.
// The offset sits one second in for video sources and near zero for stills.
const (
	ThumbnailWidth       = 480
	thumbOffsetVideo     = 1.0
	thumbOffsetImage     = 0.1
	imageDefaultDuration = 5.0
	imageFrameRate       = 25
)

// BuildPlan produces the execution plan and guardrail verdicts for a job.
// This is the central decision matrix, called both at admission time (for
// guardrail checks against cached probe data) and at dispatch time.
//
// Flow:
//  1. Reject unrecognized profile/strategy/container names outright
//  2. Thumbnail fast path (bypasses everything below)
//  3. Resolve target dimensions from the profile table
//  4. Anti-upscaling guardrail (block, or pass through under scale)
//  5. Geometry filter chain (exactly two stages when a target resolves)
//  6. Audio plan (strip policy, codec/bitrate/channel resolution)
//  7. Video plan (codec/container guardrail, pixel format, tuning flags)
//  8. Image-to-video fast path (loop flag, forced duration and frame rate)
//  9. Container muxer mapping and container-specific flags
func BuildPlan(cfg domain.JobConfig, pr *media.Probe) (*ExecutionPlan, []Verdict) {
	plan := &ExecutionPlan{}

	// --- 1. Configuration shape ---
	if v := checkConfig(cfg); v.Blocked {
		plan.Verdicts = append(plan.Verdicts, v)
		return plan, plan.Verdicts
	}

	// --- 2. Thumbnail fast path ---
	if cfg.Profile == ProfileThumbnail {
		plan.Thumbnail = true
		plan.ThumbWidth = ThumbnailWidth
		plan.ThumbOffset = thumbOffsetVideo
		if pr != nil && pr.IsImage() {
			plan.ThumbOffset = thumbOffsetImage
		}
		return plan, plan.Verdicts
	}

	// --- 3+4. Target dimensions and anti-upscaling ---
	target := resolveTarget(cfg.Profile, cfg.Width, cfg.Height)
	target, upscale := checkUpscale(target, pr, cfg.Strategy)
	plan.Verdicts = append(plan.Verdicts, upscale)
	if upscale.Blocked {
		return plan, plan.Verdicts
	}
	plan.Target = target

	// --- 5. Geometry ---
	plan.Filters = buildGeometryFilters(target, cfg.Strategy)

	// --- 6. Audio ---
	plan.Audio = buildAudioPlan(cfg, pr)
	if cfg.Profile == ProfileAudio {
		// Audio extraction and audio stripping are mutually exclusive
		// removals; an audio profile with audio=none has nothing left.
		if plan.Audio.Strip {
			reason := "audio profile requires an audio stream in the source"
			if cfg.Audio == AudioPolicyNone {
				reason = "audio profile with audio policy \"none\" would produce an empty output"
			}
			plan.Verdicts = append(plan.Verdicts, Verdict{
				Guardrail: "config",
				Blocked:   true,
				Reason:    reason,
			})
			return plan, plan.Verdicts
		}
	}

	// --- 7. Video ---
	video, compat := buildVideoPlan(cfg)
	plan.Verdicts = append(plan.Verdicts, compat)
	if compat.Blocked {
		return plan, plan.Verdicts
	}
	plan.Video = video

	// --- 8. Image-to-video ---
	if pr != nil && pr.IsImage() && !video.Strip {
		dur := cfg.Duration
		if dur <= 0 {
			dur = imageDefaultDuration
		}
		plan.InputOpts = []string{"-loop", "1"}
		plan.OutputOpts = []string{
			"-t", fmt.Sprintf("%g", dur),
			"-r", fmt.Sprintf("%d", imageFrameRate),
		}
	}

	// --- 9. Container ---
	plan.Muxer = muxerFor(cfg.Container)
	if !video.Strip {
		plan.ContainerOpts = containerOpts(cfg.Container)
	}

	return plan, plan.Verdicts
}

// checkConfig rejects unknown option values at the planner boundary rather
// than deep inside filter construction.
func checkConfig(cfg domain.JobConfig) Verdict {
	v := Verdict{Guardrail: "config"}
	switch {
	case !KnownProfile(cfg.Profile):
		v.Blocked = true
		v.Reason = fmt.Sprintf("unknown profile %q", cfg.Profile)
	case !KnownStrategy(cfg.Strategy):
		v.Blocked = true
		v.Reason = fmt.Sprintf("unknown resize strategy %q", cfg.Strategy)
	case !KnownContainer(cfg.Container):
		v.Blocked = true
		v.Reason = fmt.Sprintf("unknown container %q", cfg.Container)
	case cfg.Profile == ProfileCustom && (cfg.Width <= 0 || cfg.Height <= 0):
		v.Blocked = true
		v.Reason = "custom profile requires explicit width and height"
	}
	return v
}
