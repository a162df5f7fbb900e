package planner

import (
	"fmt"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

// AudioPolicyNone strips audio entirely.
const AudioPolicyNone = "none"

// fallbackBitrateKbps is used when the bitrate policy is "original" but
// probing failed to report a source rate.
const fallbackBitrateKbps = 128

// Default target bitrates per profile class.
const (
	defaultBitrateKbps      = 128 // general transcode profiles
	defaultAudioOnlyBitrate = 192 // audio extraction
)

// buildAudioPlan resolves the audio handling for a job.
//
//   - Policy "none" strips audio entirely (-an).
//   - A silent source (no probed audio stream) also strips.
//   - Codec: explicit override, else libmp3lame for the audio extraction
//     profile, else aac.
//   - Bitrate: explicit kbps value, "original" (probed source rate rounded
//     to the nearest kbps, falling back to a safe constant when probing
//     reported none), or a profile-based default.
//   - Channels: explicit override only; 0 keeps the source layout.
func buildAudioPlan(cfg domain.JobConfig, pr *media.Probe) AudioPlan {
	if cfg.Audio == AudioPolicyNone {
		return AudioPlan{Strip: true}
	}
	if pr != nil && !pr.HasAudio() {
		return AudioPlan{Strip: true}
	}

	ap := AudioPlan{
		Codec:    cfg.AudioCodec,
		Channels: cfg.AudioChannels,
	}
	if ap.Codec == "" {
		if cfg.Profile == ProfileAudio {
			ap.Codec = "libmp3lame"
		} else {
			ap.Codec = "aac"
		}
	}

	ap.Bitrate = resolveBitrate(cfg, pr)
	return ap
}

func resolveBitrate(cfg domain.JobConfig, pr *media.Probe) string {
	switch cfg.AudioBitrate {
	case "":
		if cfg.Profile == ProfileAudio {
			return kbps(defaultAudioOnlyBitrate)
		}
		return kbps(defaultBitrateKbps)
	case "original":
		if pr != nil && pr.Audio != nil && pr.Audio.BitRate > 0 {
			// Round to the nearest kbps.
			return kbps(int((pr.Audio.BitRate + 500) / 1000))
		}
		return kbps(fallbackBitrateKbps)
	default:
		return cfg.AudioBitrate + "k"
	}
}

func kbps(n int) string {
	return fmt.Sprintf("%dk", n)
}
