package planner

import (
	"fmt"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

// Geometry strategies. StrategyScale is the default: fit inside the target
// box preserving aspect ratio, then pad odd dimensions up to even (4:2:0
// chroma subsampling requires even sizes).
const (
	StrategyScale = "scale"
	StrategyCrop  = "crop"
	StrategyPad   = "pad"
)

// KnownStrategy reports whether the strategy name is recognized. Empty means
// the scale default.
func KnownStrategy(strategy string) bool {
	switch strategy {
	case "", StrategyScale, StrategyCrop, StrategyPad:
		return true
	}
	return false
}

// checkUpscale runs the anti-upscaling guardrail against cached probe data.
// When the target exceeds the source in either dimension:
//
//   - under any strategy other than scale the plan is blocked outright;
//   - under scale the job passes through at source resolution instead
//     (the returned target is nil and no scaling filter is emitted).
//
// Sources with unknown dimensions skip the check.
func checkUpscale(target *Dimensions, pr *media.Probe, strategy string) (*Dimensions, Verdict) {
	v := Verdict{Guardrail: "anti-upscale"}

	if target == nil || pr == nil || pr.Width <= 0 || pr.Height <= 0 {
		return target, v
	}
	if target.Width <= pr.Width && target.Height <= pr.Height {
		return target, v
	}

	if strategy != "" && strategy != StrategyScale {
		v.Blocked = true
		v.Reason = fmt.Sprintf(
			"target %dx%d exceeds source %dx%d; upscaling is not allowed with strategy %q",
			target.Width, target.Height, pr.Width, pr.Height, strategy,
		)
		return nil, v
	}

	// Fit strategy: never upscale, keep the source resolution.
	return nil, v
}

// buildGeometryFilters produces the ordered filter stages for the resolved
// target. Exactly two stages per strategy; an empty chain when the target is
// nil (pass-through at source resolution).
func buildGeometryFilters(target *Dimensions, strategy string) []string {
	if target == nil {
		return nil
	}
	w, h := target.Width, target.Height

	switch strategy {
	case StrategyCrop:
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
			fmt.Sprintf("crop=%d:%d", w, h),
		}
	case StrategyPad:
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", w, h),
		}
	default: // scale
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			"pad=ceil(iw/2)*2:ceil(ih/2)*2",
		}
	}
}
