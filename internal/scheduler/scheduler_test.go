package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/media"
	"github.com/Filip-Szettel/MediaFlow-sub000/internal/planner"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore records every persistence call in order.
type fakeStore struct {
	mu      sync.Mutex
	created []string
	status  map[string][]domain.Status
	final   map[string]int

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		status: make(map[string][]domain.Status),
		final:  make(map[string]int),
	}
}

func (s *fakeStore) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, job.ID)
	return nil
}

func (s *fakeStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func (s *fakeStore) UpdateStatus(_ context.Context, jobID string, status domain.Status, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[jobID] = append(s.status[jobID], status)
	return nil
}

func (s *fakeStore) Finalize(_ context.Context, jobID string, _ domain.FinalResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final[jobID]++
	return nil
}

func (s *fakeStore) history(jobID string) []domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Status(nil), s.status[jobID]...)
}

// captureSink records broadcast messages.
type captureSink struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (c *captureSink) Broadcast(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSink) byType(t domain.MessageType) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Message
	for _, m := range c.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// gatedRunner emits a started message, then blocks until the test releases
// the job with its terminal message.
type gatedRunner struct {
	mu    sync.Mutex
	gates map[string]chan domain.Message
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{gates: make(map[string]chan domain.Message)}
}

func (r *gatedRunner) gate(jobID string) chan domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gates[jobID]; !ok {
		r.gates[jobID] = make(chan domain.Message, 1)
	}
	return r.gates[jobID]
}

func (r *gatedRunner) Execute(_ context.Context, job *domain.Job, _ *planner.ExecutionPlan, emit func(domain.Message)) {
	emit(domain.StartedMessage(job.ID))
	emit(<-r.gate(job.ID))
}

func (r *gatedRunner) release(jobID string, msg domain.Message) {
	r.gate(jobID) <- msg
}

func newTestScheduler(budget int, runner Runner) (*Scheduler, *fakeStore, *captureSink) {
	store := newFakeStore()
	sink := &captureSink{}
	s := New(&Config{
		Logger: testLogger(),
		Store:  store,
		Runner: runner,
		Sink:   sink,
		Budget: budget,
	})
	return s, store, sink
}

func submitN(t *testing.T, s *Scheduler, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		job := &domain.Job{
			ID:         fmt.Sprintf("job-%02d", i),
			AssetID:    "asset-1",
			SourcePath: "/in/src.mov",
			Output:     domain.OutputSpec{Dir: "/out", Filename: fmt.Sprintf("%02d.mp4", i)},
		}
		require.NoError(t, s.Submit(context.Background(), job))
		ids = append(ids, job.ID)
	}
	return ids
}

func TestSubmit_AdmissionRejection(t *testing.T) {
	s, store, sink := newTestScheduler(2, newGatedRunner())

	job := &domain.Job{
		AssetID: "asset-1",
		Config:  domain.JobConfig{Profile: "1080p", Strategy: "crop"},
		Probe:   &media.Probe{Width: 640, Height: 360, Duration: 10, Video: &media.VideoProbe{Codec: "h264", FrameRate: 25}},
	}

	err := s.Submit(context.Background(), job)
	require.Error(t, err)
	assert.True(t, domain.IsAdmissionError(err))
	assert.Contains(t, err.Error(), "upscaling")

	// No queueing, no state mutation, no events.
	assert.Empty(t, store.created)
	assert.Equal(t, 0, s.QueuedCount())
	assert.Empty(t, sink.byType(domain.MessageStarted))
}

func TestSubmit_IncompatibleCodecContainerRejection(t *testing.T) {
	s, _, _ := newTestScheduler(2, newGatedRunner())

	err := s.Submit(context.Background(), &domain.Job{
		AssetID: "asset-1",
		Config:  domain.JobConfig{Container: "webm", VideoCodec: "libx264"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsAdmissionError(err))
	assert.Contains(t, err.Error(), "webm")
}

func TestScheduler_BudgetNeverExceeded(t *testing.T) {
	runner := newGatedRunner()
	s, _, sink := newTestScheduler(2, runner)

	ids := submitN(t, s, 6)

	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, s.ActiveCount())
	assert.Equal(t, 4, s.QueuedCount())

	for i := 0; i < len(ids); i++ {
		assert.LessOrEqual(t, s.ActiveCount(), 2)
		runner.release(ids[i], domain.DoneMessage(ids[i], 10, nil, ""))
		want := i + 3
		if want > len(ids) {
			want = len(ids)
		}
		require.Eventually(t, func() bool {
			return len(sink.byType(domain.MessageStarted)) >= want
		}, time.Second, 5*time.Millisecond)
		assert.LessOrEqual(t, s.ActiveCount(), 2)
	}

	require.Eventually(t, func() bool {
		return s.ActiveCount() == 0 && s.QueuedCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_BurstDispatch(t *testing.T) {
	runner := newGatedRunner()
	s, _, sink := newTestScheduler(8, runner)

	ids := submitN(t, s, 10)

	// Exactly eight start immediately; two wait for capacity.
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 8
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, s.QueuedCount())

	// The first completion frees exactly one slot.
	runner.release(ids[0], domain.DoneMessage(ids[0], 10, nil, ""))
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 9
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.QueuedCount())
}

func TestScheduler_FIFODispatchOrder(t *testing.T) {
	runner := newGatedRunner()
	s, _, sink := newTestScheduler(1, runner)

	ids := submitN(t, s, 3)

	var startedOrder []string
	for i, id := range ids {
		require.Eventually(t, func() bool {
			return len(sink.byType(domain.MessageStarted)) == i+1
		}, time.Second, 5*time.Millisecond)
		started := sink.byType(domain.MessageStarted)
		startedOrder = append(startedOrder, started[len(started)-1].JobID)
		runner.release(id, domain.DoneMessage(id, 1, nil, ""))
	}

	assert.Equal(t, ids, startedOrder, "dispatch must follow submission order")
}

func TestScheduler_DonePersistsAndFinalizes(t *testing.T) {
	runner := newGatedRunner()
	s, store, sink := newTestScheduler(1, runner)

	ids := submitN(t, s, 1)
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 1
	}, time.Second, 5*time.Millisecond)

	meta := &domain.OutputMetadata{Resolution: "1280x720", Codec: "libx264", Took: "3s"}
	runner.release(ids[0], domain.DoneMessage(ids[0], 4096, meta, ""))

	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageDone)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusReady}, store.history(ids[0]))
	store.mu.Lock()
	assert.Equal(t, 1, store.final[ids[0]])
	store.mu.Unlock()
}

func TestScheduler_ErrorIsolatedToOneJob(t *testing.T) {
	runner := newGatedRunner()
	s, store, sink := newTestScheduler(2, runner)

	ids := submitN(t, s, 2)
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 2
	}, time.Second, 5*time.Millisecond)

	runner.release(ids[0], domain.ErrorMessage(ids[0], "transcode process failed"))
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageError)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusError}, store.history(ids[0]))

	// The other job is unaffected and still completes.
	runner.release(ids[1], domain.DoneMessage(ids[1], 1, nil, ""))
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageDone)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusReady}, store.history(ids[1]))
}

// silentRunner returns without emitting a terminal message.
type silentRunner struct{}

func (silentRunner) Execute(_ context.Context, job *domain.Job, _ *planner.ExecutionPlan, emit func(domain.Message)) {
	emit(domain.StartedMessage(job.ID))
}

func TestScheduler_RunnerWithoutTerminalMessageBecomesError(t *testing.T) {
	s, store, sink := newTestScheduler(1, silentRunner{})

	ids := submitN(t, s, 1)
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageError)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, sink.byType(domain.MessageError)[0].Reason, "terminal message")
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusError}, store.history(ids[0]))
	assert.Equal(t, 0, s.ActiveCount(), "the slot must be reclaimed")
}

// panicRunner crashes mid-execution.
type panicRunner struct{}

func (panicRunner) Execute(_ context.Context, _ *domain.Job, _ *planner.ExecutionPlan, _ func(domain.Message)) {
	panic("executor blew up")
}

func TestScheduler_PanickingRunnerDoesNotKillScheduler(t *testing.T) {
	s, store, sink := newTestScheduler(1, panicRunner{})

	ids := submitN(t, s, 1)
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageError)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, sink.byType(domain.MessageError)[0].Reason, "executor blew up")
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusError}, store.history(ids[0]))
	require.Eventually(t, func() bool {
		return s.ActiveCount() == 0
	}, time.Second, 5*time.Millisecond)

	// The scheduler survives and keeps dispatching after the crash.
	more := &domain.Job{ID: "job-after-crash", AssetID: "asset-1"}
	require.NoError(t, s.Submit(context.Background(), more))
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageError)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopRejectsNewSubmissions(t *testing.T) {
	runner := newGatedRunner()
	s, store, sink := newTestScheduler(1, runner)

	ids := submitN(t, s, 1)
	require.Eventually(t, func() bool {
		return len(sink.byType(domain.MessageStarted)) == 1
	}, time.Second, 5*time.Millisecond)

	runner.release(ids[0], domain.DoneMessage(ids[0], 1, nil, ""))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	err := s.Submit(context.Background(), &domain.Job{AssetID: "asset-1"})
	assert.ErrorIs(t, err, domain.ErrSchedulerClosed)

	// A rejected submit must not leave a queued row behind.
	assert.Equal(t, 1, store.createdCount())
}

func TestSubmit_PersistenceFailureDoesNotQueue(t *testing.T) {
	runner := newGatedRunner()
	s, store, _ := newTestScheduler(1, runner)
	store.createErr = assert.AnError

	err := s.Submit(context.Background(), &domain.Job{
		ID:      "job-unpersisted",
		AssetID: "asset-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, s.QueuedCount())
	assert.Equal(t, 0, s.ActiveCount())

	// The queue is not wedged: later submissions still dispatch.
	store.createErr = nil
	ids := submitN(t, s, 1)
	runner.release(ids[0], domain.DoneMessage(ids[0], 1, nil, ""))
	require.Eventually(t, func() bool {
		return s.ActiveCount() == 0 && s.QueuedCount() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.Status{domain.StatusProcessing, domain.StatusReady}, store.history(ids[0]))
}

func TestDefaultBudget(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultBudget(), 1)
}
