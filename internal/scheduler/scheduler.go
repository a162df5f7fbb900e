// Package scheduler owns the FIFO job queue and the concurrency budget. It
// admits jobs through the planner guardrails, dispatches them to worker
// executors as capacity frees up, persists every status transition, and
// relays lifecycle messages to the broadcaster.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/planner"
)

// reservedCPUs is the headroom kept free for the host process itself when
// deriving the default concurrency budget.
const reservedCPUs = 2

// executorBuffer is the depth of the per-executor message channel the
// scheduler drains.
const executorBuffer = 16

// DefaultBudget derives the concurrency budget from the host CPU count.
func DefaultBudget() int {
	budget := runtime.NumCPU() - reservedCPUs
	if budget < 1 {
		budget = 1
	}
	return budget
}

// Runner executes one plan and emits lifecycle messages. It must terminate
// by emitting exactly one of {done, error}.
type Runner interface {
	Execute(ctx context.Context, job *domain.Job, plan *planner.ExecutionPlan, emit func(domain.Message))
}

// Sink receives every lifecycle message the scheduler relays.
type Sink interface {
	Broadcast(msg domain.Message)
}

// Config holds scheduler dependencies.
type Config struct {
	Logger *slog.Logger
	Store  domain.Store
	Runner Runner
	Sink   Sink
	Budget int // 0 derives DefaultBudget()
}

type entry struct {
	job  *domain.Job
	plan *planner.ExecutionPlan

	// persisted flips once the store write succeeds; dispatch never starts
	// an executor for a job that has no queued row yet.
	persisted bool
}

// Scheduler is the worker pool coordinator. The queue and active count are
// mutated only under mu so dispatch decisions never see stale counts.
type Scheduler struct {
	logger *slog.Logger
	store  domain.Store
	runner Runner
	sink   Sink
	budget int

	mu     sync.Mutex
	queue  []*entry
	active int
	closed bool

	wg sync.WaitGroup
}

// New creates a scheduler.
func New(cfg *Config) *Scheduler {
	budget := cfg.Budget
	if budget <= 0 {
		budget = DefaultBudget()
	}

	s := &Scheduler{
		logger: cfg.Logger,
		store:  cfg.Store,
		runner: cfg.Runner,
		sink:   cfg.Sink,
		budget: budget,
	}

	s.logger.Info("Scheduler initialized",
		slog.Int("budget", budget),
		slog.Int("num_cpu", runtime.NumCPU()),
	)
	return s
}

// Budget returns the concurrency budget.
func (s *Scheduler) Budget() int {
	return s.budget
}

// ActiveCount returns the number of jobs currently executing.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// QueuedCount returns the number of jobs waiting for capacity.
func (s *Scheduler) QueuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Submit admits one job. Guardrails run first against the cached probe
// snapshot: a blocking verdict causes immediate rejection with no queueing
// and no state mutation. Admitted jobs are persisted in queued state and
// dispatched as soon as capacity allows, in strict arrival order.
func (s *Scheduler) Submit(ctx context.Context, job *domain.Job) error {
	plan, _ := planner.BuildPlan(job.Config, job.Probe)
	if v := plan.Blocked(); v != nil {
		s.logger.Warn("Job rejected at admission",
			slog.String("asset_id", job.AssetID),
			slog.String("guardrail", v.Guardrail),
			slog.String("reason", v.Reason),
		)
		return domain.NewAdmissionError(v.Reason)
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = domain.StatusQueued
	job.QueuedAt = time.Now().UTC()

	// Reserve the queue position before persisting so a shutdown racing
	// this submit can never leave an orphaned queued row behind.
	e := &entry{job: job, plan: plan}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSchedulerClosed
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	if err := s.store.CreateJob(ctx, job); err != nil {
		s.mu.Lock()
		s.removeLocked(e)
		s.mu.Unlock()
		return fmt.Errorf("failed to persist job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.persisted = true

	s.logger.Info("Job queued",
		slog.String("job_id", job.ID),
		slog.String("asset_id", job.AssetID),
		slog.String("profile", job.Config.Profile),
		slog.Int("queue_depth", len(s.queue)),
	)

	s.dispatchLocked()
	return nil
}

// removeLocked drops a reserved entry whose persistence failed. Callers must
// hold mu.
func (s *Scheduler) removeLocked(e *entry) {
	for i, queued := range s.queue {
		if queued == e {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// dispatchLocked pops queue heads while capacity remains, stopping at the
// first entry still awaiting its store write to keep arrival order intact.
// Callers must hold mu. This is the sole path that starts executors.
func (s *Scheduler) dispatchLocked() {
	for s.active < s.budget && len(s.queue) > 0 && s.queue[0].persisted {
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.active++

		s.wg.Add(1)
		go s.runJob(e)
	}
}

// runJob supervises one executor from dispatch to terminal message. A
// panicking executor or a runner that stops without a terminal message is
// converted into an error transition; either way exactly one slot is freed
// afterwards, so no failure can affect other jobs' bookkeeping.
func (s *Scheduler) runJob(e *entry) {
	defer s.wg.Done()
	defer s.reclaim()

	job := e.job
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job supervision panic",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
			s.finishJob(job, domain.ErrorMessage(job.ID, fmt.Sprintf("internal failure: %v", r)))
		}
	}()

	if err := s.transition(job, domain.StatusProcessing, ""); err != nil {
		s.finishJob(job, domain.ErrorMessage(job.ID, err.Error()))
		return
	}
	now := time.Now().UTC()
	job.StartedAt = &now

	s.logger.Info("Job dispatched",
		slog.String("job_id", job.ID),
		slog.Int("active", s.ActiveCount()),
	)

	// One typed channel per executor, drained here; the runner goroutine
	// closes it when the executor returns. A panicking runner must not take
	// the process down, so the recovery lives on the runner's own goroutine
	// and surfaces as a terminal message like any other failure.
	msgs := make(chan domain.Message, executorBuffer)
	go func() {
		defer close(msgs)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Executor panic",
					slog.String("job_id", job.ID),
					slog.Any("panic", r),
				)
				msgs <- domain.ErrorMessage(job.ID, fmt.Sprintf("internal failure: %v", r))
			}
		}()
		s.runner.Execute(context.Background(), job, e.plan, func(m domain.Message) {
			msgs <- m
		})
	}()

	terminal := false
	for msg := range msgs {
		if msg.IsTerminal() {
			if terminal {
				continue
			}
			terminal = true
			s.finishJob(job, msg)
			continue
		}
		s.sink.Broadcast(msg)
	}

	if !terminal {
		s.finishJob(job, domain.ErrorMessage(job.ID, "executor terminated without a terminal message"))
	}
}

// finishJob persists the terminal transition, then relays the terminal
// message. Persist-then-broadcast keeps the stored status ahead of what
// observers see.
func (s *Scheduler) finishJob(job *domain.Job, msg domain.Message) {
	if job.Status.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	job.CompletedAt = &now

	switch msg.Type {
	case domain.MessageDone:
		if err := s.transition(job, domain.StatusReady, ""); err != nil {
			s.logger.Error("Failed to persist ready transition",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
		result := domain.FinalResult{
			Size:         msg.OutputSize,
			ThumbnailRef: msg.ThumbnailRef,
		}
		if msg.Metadata != nil {
			result.Metadata = *msg.Metadata
		}
		if err := s.store.Finalize(context.Background(), job.ID, result); err != nil {
			s.logger.Error("Failed to finalize job",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}

	case domain.MessageError:
		job.LastError = msg.Reason
		if err := s.transition(job, domain.StatusError, msg.Reason); err != nil {
			s.logger.Error("Failed to persist error transition",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
		s.logger.Warn("Job failed",
			slog.String("job_id", job.ID),
			slog.String("reason", msg.Reason),
		)
	}

	s.sink.Broadcast(msg)
}

// transition applies one legal state machine edge and persists it exactly
// once. The scheduler is the single writer for every job's status.
func (s *Scheduler) transition(job *domain.Job, to domain.Status, errMsg string) error {
	if !domain.CanTransition(job.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s for job %s", job.Status, to, job.ID)
	}
	job.Status = to
	if err := s.store.UpdateStatus(context.Background(), job.ID, to, errMsg); err != nil {
		return fmt.Errorf("failed to persist status %s: %w", to, err)
	}
	return nil
}

// reclaim frees one slot and advances the queue. Terminal executor messages
// are the sole mechanism that moves queued jobs forward.
func (s *Scheduler) reclaim() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.dispatchLocked()
}

// Stop rejects further submissions and waits for active jobs to finish.
// Dispatched jobs run to completion; there is no per-job cancellation.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	queued := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	if queued > 0 {
		s.logger.Warn("Discarding queued jobs on shutdown",
			slog.Int("queued", queued),
		)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}
