package media

import "fmt"

// Probe is the source metadata snapshot taken when an asset is ingested.
// It is cached in the catalog and consumed by the planner for guardrail
// checks, so admission decisions never require touching the source file.
type Probe struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"` // seconds
	Format   string  `json:"format"`   // container format name from probing

	Video *VideoProbe `json:"video,omitempty"`
	Audio *AudioProbe `json:"audio,omitempty"`
}

// VideoProbe holds the probed properties of the primary video stream.
type VideoProbe struct {
	Codec     string  `json:"codec"`
	BitRate   int64   `json:"bitrate"` // bits/sec
	FrameRate float64 `json:"frame_rate"`
}

// AudioProbe holds the probed properties of the primary audio stream.
// A nil AudioProbe on the parent Probe signals a silent source.
type AudioProbe struct {
	Codec      string `json:"codec"`
	BitRate    int64  `json:"bitrate"` // bits/sec
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
}

// HasAudio reports whether the source carries an audio stream.
func (p *Probe) HasAudio() bool {
	return p.Audio != nil
}

// IsImage reports whether the source is a still image rather than a video.
// Still images probe with no duration and no frame rate.
func (p *Probe) IsImage() bool {
	if p.Duration > 0 {
		return false
	}
	return p.Video == nil || p.Video.FrameRate == 0
}

// Resolution returns "WxH" for the source, or "unknown" when dimensions
// were not probed.
func (p *Probe) Resolution() string {
	if p.Width <= 0 || p.Height <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}
