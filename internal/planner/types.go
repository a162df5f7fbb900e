package planner

// Dimensions is a resolved target size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Verdict is the outcome of one guardrail check. A blocked verdict carries
// the user-facing reason; passing verdicts are recorded so admission can show
// which rules were evaluated.
type Verdict struct {
	Guardrail string // "anti-upscale" or "codec-container"
	Blocked   bool
	Reason    string
}

// ExecutionPlan holds the complete set of decisions for executing a single
// job. It is produced by BuildPlan, consumed once by a worker executor, and
// then discarded; it is never persisted.
type ExecutionPlan struct {
	// Thumbnail marks the single-frame fast path, which bypasses every
	// other section of the plan.
	Thumbnail   bool
	ThumbWidth  int
	ThumbOffset float64 // seek offset in seconds

	// Target is nil when the source resolution is kept as-is.
	Target  *Dimensions
	Filters []string // ordered geometry filter stages (0 or 2 entries)

	Audio AudioPlan
	Video VideoPlan

	// InputOpts precede -i (image-to-video loop flag); OutputOpts follow
	// the codec section (forced duration and frame rate).
	InputOpts  []string
	OutputOpts []string

	// ContainerOpts are muxer-specific flags such as -movflags +faststart.
	ContainerOpts []string

	// Muxer is the ffmpeg format identifier for the requested container.
	Muxer string

	Verdicts []Verdict
}

// AudioPlan describes the audio handling for a job.
type AudioPlan struct {
	Strip    bool
	Codec    string
	Bitrate  string // e.g. "128k"
	Channels int    // 0 = keep source layout
}

// VideoPlan describes the video handling for a job.
type VideoPlan struct {
	Strip  bool // audio-only profile
	Codec  string
	PixFmt string
	Opts   []string // codec-specific tuning flags
}

// Blocked returns the first blocking verdict, or nil when every guardrail
// passed.
func (p *ExecutionPlan) Blocked() *Verdict {
	for i := range p.Verdicts {
		if p.Verdicts[i].Blocked {
			return &p.Verdicts[i]
		}
	}
	return nil
}
