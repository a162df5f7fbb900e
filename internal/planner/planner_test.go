package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

func videoProbe(w, h int) *media.Probe {
	return &media.Probe{
		Width:    w,
		Height:   h,
		Duration: 120,
		Video:    &media.VideoProbe{Codec: "h264", BitRate: 4_000_000, FrameRate: 25},
		Audio:    &media.AudioProbe{Codec: "aac", BitRate: 192_000, Channels: 2, SampleRate: 48000},
	}
}

func imageProbe(w, h int) *media.Probe {
	return &media.Probe{
		Width:  w,
		Height: h,
		Video:  &media.VideoProbe{Codec: "png"},
	}
}

func TestBuildPlan_GeometryStrategies(t *testing.T) {
	tests := []struct {
		name        string
		cfg         domain.JobConfig
		probe       *media.Probe
		wantFilters []string
	}{
		{
			name:  "crop 4k source to 720p",
			cfg:   domain.JobConfig{Profile: "720p", Strategy: "crop"},
			probe: videoProbe(3840, 2160),
			wantFilters: []string{
				"scale=1280:720:force_original_aspect_ratio=increase",
				"crop=1280:720",
			},
		},
		{
			name:  "scale 4k source to 1080p",
			cfg:   domain.JobConfig{Profile: "1080p", Strategy: "scale"},
			probe: videoProbe(3840, 2160),
			wantFilters: []string{
				"scale=1920:1080:force_original_aspect_ratio=decrease",
				"pad=ceil(iw/2)*2:ceil(ih/2)*2",
			},
		},
		{
			name:  "pad letterboxes to exact target box",
			cfg:   domain.JobConfig{Profile: "480p", Strategy: "pad"},
			probe: videoProbe(1920, 1080),
			wantFilters: []string{
				"scale=854:480:force_original_aspect_ratio=decrease",
				"pad=854:480:(ow-iw)/2:(oh-ih)/2:color=black",
			},
		},
		{
			name:  "mobile portrait profile",
			cfg:   domain.JobConfig{Profile: "mobile", Strategy: "crop"},
			probe: videoProbe(1920, 2400),
			wantFilters: []string{
				"scale=720:1280:force_original_aspect_ratio=increase",
				"crop=720:1280",
			},
		},
		{
			name:  "custom profile explicit dimensions",
			cfg:   domain.JobConfig{Profile: "custom", Width: 640, Height: 360},
			probe: videoProbe(1920, 1080),
			wantFilters: []string{
				"scale=640:360:force_original_aspect_ratio=decrease",
				"pad=ceil(iw/2)*2:ceil(ih/2)*2",
			},
		},
		{
			name:        "no profile keeps source resolution",
			cfg:         domain.JobConfig{},
			probe:       videoProbe(1920, 1080),
			wantFilters: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, verdicts := BuildPlan(tt.cfg, tt.probe)
			require.Nil(t, plan.Blocked(), "verdicts: %+v", verdicts)
			assert.Equal(t, tt.wantFilters, plan.Filters)
			if tt.wantFilters != nil {
				assert.Len(t, plan.Filters, 2, "strategies emit exactly two filter stages")
			}
		})
	}
}

func TestBuildPlan_AntiUpscaling(t *testing.T) {
	t.Run("fit strategy passes through without scaling", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "1080p", Strategy: "scale"}, videoProbe(640, 360))
		require.Nil(t, plan.Blocked())
		assert.Nil(t, plan.Target)
		assert.Empty(t, plan.Filters)
	})

	t.Run("default strategy is fit and passes through", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "1080p"}, videoProbe(640, 360))
		require.Nil(t, plan.Blocked())
		assert.Empty(t, plan.Filters)
	})

	t.Run("crop strategy blocks upscale", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "1080p", Strategy: "crop"}, videoProbe(640, 360))
		v := plan.Blocked()
		require.NotNil(t, v)
		assert.Equal(t, "anti-upscale", v.Guardrail)
		assert.Contains(t, v.Reason, "1920x1080")
		assert.Contains(t, v.Reason, "640x360")
	})

	t.Run("pad strategy blocks upscale", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "720p", Strategy: "pad"}, videoProbe(854, 480))
		require.NotNil(t, plan.Blocked())
	})

	t.Run("unknown source dimensions skip the check", func(t *testing.T) {
		pr := videoProbe(0, 0)
		plan, _ := BuildPlan(domain.JobConfig{Profile: "1080p", Strategy: "crop"}, pr)
		require.Nil(t, plan.Blocked())
		assert.Len(t, plan.Filters, 2)
	})
}

func TestBuildPlan_CodecContainerGuardrail(t *testing.T) {
	t.Run("h264 into webm is rejected with the pair named", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Container: "webm", VideoCodec: "libx264"}, videoProbe(1920, 1080))
		v := plan.Blocked()
		require.NotNil(t, v)
		assert.Equal(t, "codec-container", v.Guardrail)
		assert.Contains(t, v.Reason, "libx264")
		assert.Contains(t, v.Reason, "webm")
	})

	t.Run("webm without explicit codec auto-corrects to vp9", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Container: "webm"}, videoProbe(1920, 1080))
		require.Nil(t, plan.Blocked())
		assert.Equal(t, "libvpx-vp9", plan.Video.Codec)
	})

	t.Run("default container resolves libx264", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{}, videoProbe(1920, 1080))
		require.Nil(t, plan.Blocked())
		assert.Equal(t, "libx264", plan.Video.Codec)
		assert.Equal(t, "yuv420p", plan.Video.PixFmt)
	})

	t.Run("profile and level only for libx264 with yuv420p", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{}, videoProbe(1920, 1080))
		assert.Contains(t, plan.Video.Opts, "-profile:v")

		plan10bit, _ := BuildPlan(domain.JobConfig{PixFmt: "yuv420p10le"}, videoProbe(1920, 1080))
		assert.NotContains(t, plan10bit.Video.Opts, "-profile:v")
	})
}

func TestBuildPlan_AudioResolution(t *testing.T) {
	t.Run("policy none strips audio", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Audio: "none"}, videoProbe(1920, 1080))
		assert.True(t, plan.Audio.Strip)
	})

	t.Run("silent source strips audio", func(t *testing.T) {
		pr := videoProbe(1920, 1080)
		pr.Audio = nil
		plan, _ := BuildPlan(domain.JobConfig{}, pr)
		assert.True(t, plan.Audio.Strip)
	})

	t.Run("general profile defaults to aac", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "720p"}, videoProbe(3840, 2160))
		assert.Equal(t, "aac", plan.Audio.Codec)
		assert.Equal(t, "128k", plan.Audio.Bitrate)
	})

	t.Run("audio profile strips video and uses mp3 family", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "audio", Container: "mp3"}, videoProbe(1920, 1080))
		require.Nil(t, plan.Blocked())
		assert.True(t, plan.Video.Strip)
		assert.Equal(t, "libmp3lame", plan.Audio.Codec)
		assert.Equal(t, "192k", plan.Audio.Bitrate)
		assert.Empty(t, plan.Filters)
	})

	t.Run("audio profile over silent source is blocked", func(t *testing.T) {
		pr := videoProbe(1920, 1080)
		pr.Audio = nil
		plan, _ := BuildPlan(domain.JobConfig{Profile: "audio"}, pr)
		require.NotNil(t, plan.Blocked())
	})

	t.Run("original bitrate copies the probed rate rounded to kbps", func(t *testing.T) {
		pr := videoProbe(1920, 1080)
		pr.Audio.BitRate = 191_700
		plan, _ := BuildPlan(domain.JobConfig{AudioBitrate: "original"}, pr)
		assert.Equal(t, "192k", plan.Audio.Bitrate)
	})

	t.Run("original bitrate falls back when probing reported none", func(t *testing.T) {
		pr := videoProbe(1920, 1080)
		pr.Audio.BitRate = 0
		plan, _ := BuildPlan(domain.JobConfig{AudioBitrate: "original"}, pr)
		assert.Equal(t, "128k", plan.Audio.Bitrate)
	})

	t.Run("explicit bitrate and channels pass through", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{AudioBitrate: "256", AudioChannels: 2}, videoProbe(1920, 1080))
		assert.Equal(t, "256k", plan.Audio.Bitrate)
		assert.Equal(t, 2, plan.Audio.Channels)
	})
}

func TestBuildPlan_ImageToVideo(t *testing.T) {
	plan, _ := BuildPlan(domain.JobConfig{Profile: "720p", Duration: 8}, imageProbe(4000, 3000))
	require.Nil(t, plan.Blocked())

	assert.Equal(t, []string{"-loop", "1"}, plan.InputOpts)
	assert.Equal(t, []string{"-t", "8", "-r", "25"}, plan.OutputOpts)

	t.Run("default duration applies", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "720p"}, imageProbe(4000, 3000))
		assert.Equal(t, []string{"-t", "5", "-r", "25"}, plan.OutputOpts)
	})
}

func TestBuildPlan_ThumbnailFastPath(t *testing.T) {
	t.Run("video source seeks one second in", func(t *testing.T) {
		plan, verdicts := BuildPlan(domain.JobConfig{Profile: "thumbnail"}, videoProbe(1920, 1080))
		assert.True(t, plan.Thumbnail)
		assert.Equal(t, 480, plan.ThumbWidth)
		assert.InDelta(t, 1.0, plan.ThumbOffset, 0.001)
		assert.Empty(t, verdicts)
	})

	t.Run("image source seeks near zero", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Profile: "thumbnail"}, imageProbe(1920, 1080))
		assert.True(t, plan.Thumbnail)
		assert.InDelta(t, 0.1, plan.ThumbOffset, 0.001)
	})
}

func TestBuildPlan_ContainerMapping(t *testing.T) {
	t.Run("mkv maps to the matroska muxer", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Container: "mkv"}, videoProbe(1920, 1080))
		assert.Equal(t, "matroska", plan.Muxer)
	})

	t.Run("mp4 is identity and streaming friendly", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Container: "mp4"}, videoProbe(1920, 1080))
		assert.Equal(t, "mp4", plan.Muxer)
		assert.Equal(t, []string{"-movflags", "+faststart"}, plan.ContainerOpts)
	})

	t.Run("webm gets no faststart flag", func(t *testing.T) {
		plan, _ := BuildPlan(domain.JobConfig{Container: "webm"}, videoProbe(1920, 1080))
		assert.Empty(t, plan.ContainerOpts)
	})
}

func TestBuildPlan_RejectsUnknownOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.JobConfig
		want string
	}{
		{"unknown profile", domain.JobConfig{Profile: "4k-ultra"}, "unknown profile"},
		{"unknown strategy", domain.JobConfig{Strategy: "stretch"}, "unknown resize strategy"},
		{"unknown container", domain.JobConfig{Container: "rm"}, "unknown container"},
		{"custom without dimensions", domain.JobConfig{Profile: "custom"}, "explicit width and height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, _ := BuildPlan(tt.cfg, videoProbe(1920, 1080))
			v := plan.Blocked()
			require.NotNil(t, v)
			assert.Contains(t, v.Reason, tt.want)
		})
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	cfg := domain.JobConfig{Profile: "720p", Strategy: "crop", Container: "mkv"}
	pr := videoProbe(3840, 2160)

	first, _ := BuildPlan(cfg, pr)
	second, _ := BuildPlan(cfg, pr)
	assert.Equal(t, first, second)
}
