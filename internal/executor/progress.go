package executor

import (
	"strconv"
	"strings"
	"time"
)

// progressStep is the minimum percentage advance between forwarded progress
// messages; finer updates are dropped to avoid flooding the broadcaster.
const progressStep = 1.0

// progressTracker converts the ffmpeg -progress key=value stream into
// throttled percentage updates against the known source duration.
type progressTracker struct {
	duration float64 // seconds; 0 disables percentage reporting
	started  time.Time
	lastSent float64
}

func newProgressTracker(duration float64, started time.Time) *progressTracker {
	return &progressTracker{duration: duration, started: started, lastSent: -progressStep}
}

// observe parses one progress line. It returns emit=true only when the
// percentage advanced by more than progressStep since the last forwarded
// value.
func (t *progressTracker) observe(line string) (percent float64, eta string, emit bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || key != "out_time_ms" || t.duration <= 0 {
		return 0, "", false
	}

	// out_time_ms is microseconds despite its name.
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, "", false
	}

	percent = float64(us) / 1e6 / t.duration * 100
	if percent > 100 {
		percent = 100
	}
	if percent-t.lastSent <= progressStep {
		return 0, "", false
	}

	t.lastSent = percent
	return percent, formatETA(time.Since(t.started), percent), true
}

// formatETA estimates the remaining time as elapsed × (100 − pct) / pct.
// Zero percent or a missing clock yields "unknown".
func formatETA(elapsed time.Duration, percent float64) string {
	if percent <= 0 || elapsed <= 0 {
		return "unknown"
	}
	remaining := time.Duration(float64(elapsed) * (100 - percent) / percent)
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Round(time.Second).String()
}
