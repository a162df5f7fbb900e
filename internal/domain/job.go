package domain

import (
	"time"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
)

// Job represents one requested transcoding or thumbnail-extraction unit of
// work. It is created at submission time and mutated only through the status
// transition path owned by the scheduler.
type Job struct {
	ID      string `db:"job_id"`
	AssetID string `db:"asset_id"` // empty for the automatic thumbnail case

	SourcePath string `db:"source_path"`

	Status    Status `db:"status"`
	LastError string `db:"last_error"`

	Config JobConfig
	Probe  *media.Probe
	Output OutputSpec

	QueuedAt    time.Time  `db:"queued_at"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// JobConfig is the declarative transcoding configuration attached to a job.
// Every recognized option is enumerated here; unknown combinations are
// rejected at the planner boundary, not deep inside filter construction.
type JobConfig struct {
	Profile   string `json:"profile"`   // 1080p, 720p, 480p, mobile, custom, audio, thumbnail
	Container string `json:"container"` // mp4, webm, mkv, mov, mp3, ...
	Strategy  string `json:"strategy"`  // scale (default), crop, pad

	Audio         string `json:"audio"`          // "" keep, "none" strip
	AudioCodec    string `json:"audio_codec"`    // explicit encoder override
	AudioBitrate  string `json:"audio_bitrate"`  // kbps value, "original", or ""
	AudioChannels int    `json:"audio_channels"` // explicit override only

	VideoCodec string `json:"video_codec"` // explicit encoder override
	PixFmt     string `json:"pix_fmt"`

	Width    int     `json:"width"`  // custom profile only
	Height   int     `json:"height"` // custom profile only
	Duration float64 `json:"duration"`
}

// OutputSpec names where the executor must place the finished file.
type OutputSpec struct {
	Dir      string `db:"output_dir"`
	Filename string `db:"output_filename"`
}

// Path joins the output directory and filename without cleaning either
// component; both come from the catalog layer and are trusted as-is.
func (o OutputSpec) Path() string {
	if o.Dir == "" {
		return o.Filename
	}
	return o.Dir + "/" + o.Filename
}

// FinalResult carries the finalization payload for a successful job.
type FinalResult struct {
	Size         int64
	Metadata     OutputMetadata
	ThumbnailRef string
}

// OutputMetadata is the small summary attached to a done message.
type OutputMetadata struct {
	Resolution string `json:"resolution"`
	Codec      string `json:"codec"`
	Took       string `json:"took"` // wall-clock duration, formatted
}
