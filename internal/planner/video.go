package planner

import (
	"fmt"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
)

// DefaultContainer is used when the job configuration names none.
const DefaultContainer = "mp4"

// defaultPixFmt is applied when the configuration leaves the pixel format
// unspecified.
const defaultPixFmt = "yuv420p"

// containerMuxers maps user-facing container extensions to the muxer
// identifiers the execution engine expects. Most are identity; mkv writes
// through the matroska muxer.
var containerMuxers = map[string]string{
	"mp4":  "mp4",
	"mov":  "mov",
	"webm": "webm",
	"mkv":  "matroska",
	"avi":  "avi",
	"mp3":  "mp3",
}

// containerDefaultCodec is the safe default encoder per container. The
// planner, not the caller, owns this correction so the same configuration
// always yields the same plan after a container change.
var containerDefaultCodec = map[string]string{
	"mp4":  "libx264",
	"mov":  "libx264",
	"mkv":  "libx264",
	"avi":  "libx264",
	"webm": "libvpx-vp9",
}

// containerCodecs lists the encoders each container can mux. An explicitly
// selected codec outside this set is rejected rather than silently
// substituted.
var containerCodecs = map[string][]string{
	"mp4":  {"libx264", "libx265", "h264", "hevc"},
	"mov":  {"libx264", "libx265", "h264", "hevc"},
	"mkv":  {"libx264", "libx265", "h264", "hevc", "libvpx", "libvpx-vp9", "vp8", "vp9"},
	"avi":  {"libx264", "mpeg4"},
	"webm": {"libvpx", "libvpx-vp9", "vp8", "vp9"},
}

// KnownContainer reports whether the container extension is recognized.
func KnownContainer(container string) bool {
	if container == "" {
		return true
	}
	_, ok := containerMuxers[container]
	return ok
}

// muxerFor translates a container extension to its muxer identifier.
func muxerFor(container string) string {
	if container == "" {
		container = DefaultContainer
	}
	if m, ok := containerMuxers[container]; ok {
		return m
	}
	return container
}

// buildVideoPlan resolves the video codec, pixel format, and codec-specific
// tuning flags, and runs the codec/container compatibility guardrail.
func buildVideoPlan(cfg domain.JobConfig) (VideoPlan, Verdict) {
	v := Verdict{Guardrail: "codec-container"}

	container := cfg.Container
	if container == "" {
		container = DefaultContainer
	}

	if cfg.Profile == ProfileAudio {
		return VideoPlan{Strip: true}, v
	}

	vp := VideoPlan{
		Codec:  cfg.VideoCodec,
		PixFmt: cfg.PixFmt,
	}
	if vp.PixFmt == "" {
		vp.PixFmt = defaultPixFmt
	}

	if vp.Codec == "" {
		vp.Codec = containerDefaultCodec[container]
		if vp.Codec == "" {
			vp.Codec = "libx264"
		}
	} else if allowed, ok := containerCodecs[container]; ok && !contains(allowed, vp.Codec) {
		v.Blocked = true
		v.Reason = fmt.Sprintf("video codec %q cannot be muxed into container %q", vp.Codec, container)
		return vp, v
	}

	vp.Opts = codecOpts(vp.Codec, vp.PixFmt)
	return vp, v
}

// codecOpts returns the tuning flags for the resolved codec. The H.264
// profile/level pair is emitted only for the common libx264+yuv420p
// combination; 10-bit and alternate codecs would conflict with those flags.
func codecOpts(codec, pixFmt string) []string {
	var opts []string
	switch codec {
	case "libx264", "libx265":
		opts = append(opts, "-preset", "fast")
		if codec == "libx264" && pixFmt == "yuv420p" {
			opts = append(opts, "-profile:v", "high", "-level", "4.2")
		}
	case "libvpx-vp9":
		opts = append(opts, "-row-mt", "1")
	}
	return opts
}

// containerOpts returns muxer-specific flags. Streaming-friendly containers
// get the fast-start flag so the moov atom lands at the front of the file.
func containerOpts(container string) []string {
	switch container {
	case "", "mp4", "mov":
		return []string{"-movflags", "+faststart"}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
