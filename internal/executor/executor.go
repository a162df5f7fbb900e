// Package executor supervises one external transcoding process per job. It
// translates an execution plan into command arguments, parses the engine's
// progress side channel, and reports structured lifecycle messages upward.
// Every failure mode resolves to a message; nothing escapes the boundary.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/planner"
)

// DefaultBinary is the transcoding engine invoked when none is configured.
const DefaultBinary = "ffmpeg"

// stderrTailLimit caps how much engine stderr is carried into an error
// reason string.
const stderrTailLimit = 512

// Executor runs one external process per Execute call.
type Executor struct {
	logger *slog.Logger
	binary string
}

// New creates an executor using the given engine binary. An empty binary
// falls back to DefaultBinary.
func New(logger *slog.Logger, binary string) *Executor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Executor{logger: logger, binary: binary}
}

// Execute runs the plan and emits lifecycle messages through emit. It
// terminates by emitting exactly one of {done, error} after zero or more
// progress messages. The call blocks until the process exits.
func (e *Executor) Execute(ctx context.Context, job *domain.Job, plan *planner.ExecutionPlan, emit func(domain.Message)) {
	terminal := false
	send := func(m domain.Message) {
		if m.IsTerminal() {
			if terminal {
				return
			}
			terminal = true
		}
		emit(m)
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Executor panic",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
			send(domain.ErrorMessage(job.ID, fmt.Sprintf("internal executor failure: %v", r)))
		}
	}()

	if plan.Thumbnail {
		e.executeThumbnail(ctx, job, plan, send)
		return
	}

	// A plan-rejecting precondition surfaces as an error message, not a
	// crash; admission should have caught it, the executor double-checks.
	if v := plan.Blocked(); v != nil {
		send(domain.ErrorMessage(job.ID, v.Reason))
		return
	}

	args := BuildArgs(job, plan)
	e.logger.Debug("Spawning transcode process",
		slog.String("job_id", job.ID),
		slog.String("binary", e.binary),
		slog.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		send(domain.ErrorMessage(job.ID, fmt.Sprintf("failed to open progress pipe: %v", err)))
		return
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		send(domain.ErrorMessage(job.ID, fmt.Sprintf("failed to spawn %s: %v", e.binary, err)))
		return
	}

	send(domain.StartedMessage(job.ID))

	var duration float64
	if job.Probe != nil {
		duration = job.Probe.Duration
	}
	tracker := newProgressTracker(duration, start)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if percent, eta, ok := tracker.observe(scanner.Text()); ok {
			send(domain.ProgressMessage(job.ID, percent, eta))
		}
	}

	if err := cmd.Wait(); err != nil {
		send(domain.ErrorMessage(job.ID, processFailure(err, stderrBuf.String())))
		return
	}

	// The filesystem is the ground truth: a reported success without an
	// output file is still a failure.
	outPath := job.Output.Path()
	info, err := os.Stat(outPath)
	if err != nil {
		send(domain.ErrorMessage(job.ID, fmt.Sprintf("process exited cleanly but output file %s is missing", outPath)))
		return
	}

	meta := e.outputMetadata(job, plan, time.Since(start))
	e.logger.Info("Transcode completed",
		slog.String("job_id", job.ID),
		slog.Int64("output_size", info.Size()),
		slog.String("took", meta.Took),
	)
	send(domain.DoneMessage(job.ID, info.Size(), &meta, ""))
}

// executeThumbnail runs the short single-frame routine. A failure here must
// never fail the larger pipeline: it degrades to a done message with zero
// size and no thumbnail reference.
func (e *Executor) executeThumbnail(ctx context.Context, job *domain.Job, plan *planner.ExecutionPlan, send func(domain.Message)) {
	args := BuildThumbnailArgs(job, plan)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e.logger.Warn("Thumbnail process failed to spawn",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		send(domain.DoneMessage(job.ID, 0, nil, ""))
		return
	}
	send(domain.StartedMessage(job.ID))

	outPath := job.Output.Path()
	if err := cmd.Wait(); err != nil {
		e.logger.Warn("Thumbnail extraction failed",
			slog.String("job_id", job.ID),
			slog.String("reason", processFailure(err, stderrBuf.String())),
		)
		send(domain.DoneMessage(job.ID, 0, nil, ""))
		return
	}

	info, err := os.Stat(outPath)
	if err != nil {
		e.logger.Warn("Thumbnail output missing",
			slog.String("job_id", job.ID),
			slog.String("path", outPath),
		)
		send(domain.DoneMessage(job.ID, 0, nil, ""))
		return
	}

	meta := domain.OutputMetadata{
		Resolution: fmt.Sprintf("%dw", plan.ThumbWidth),
		Codec:      "image",
		Took:       time.Since(start).Round(time.Millisecond).String(),
	}
	send(domain.DoneMessage(job.ID, info.Size(), &meta, outPath))
}

// outputMetadata builds the small summary attached to a done message.
func (e *Executor) outputMetadata(job *domain.Job, plan *planner.ExecutionPlan, took time.Duration) domain.OutputMetadata {
	resolution := "source"
	if plan.Target != nil {
		resolution = fmt.Sprintf("%dx%d", plan.Target.Width, plan.Target.Height)
	} else if job.Probe != nil {
		resolution = job.Probe.Resolution()
	}

	codec := plan.Video.Codec
	if plan.Video.Strip {
		codec = plan.Audio.Codec
	}

	return domain.OutputMetadata{
		Resolution: resolution,
		Codec:      codec,
		Took:       took.Round(time.Millisecond).String(),
	}
}

// processFailure folds a non-zero exit and the stderr tail into one
// human-readable reason string.
func processFailure(err error, stderr string) string {
	tail := strings.TrimSpace(stderr)
	if len(tail) > stderrTailLimit {
		tail = "..." + tail[len(tail)-stderrTailLimit:]
	}
	if tail == "" {
		return fmt.Sprintf("transcode process failed: %v", err)
	}
	return fmt.Sprintf("transcode process failed: %v: %s", err, tail)
}
