// Package broadcast fans lifecycle messages out to every currently attached
// observer. Delivery is best-effort: an observer that cannot keep up is
// silently detached rather than blocking the broadcast path.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/domain"
)

// DefaultBufferSize is the per-observer channel depth when none is
// configured.
const DefaultBufferSize = 64

// relayTimeout bounds each best-effort relay publish.
const relayTimeout = 2 * time.Second

// Publisher is the optional off-box relay for broadcast messages. A nil
// publisher disables relaying.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Observer is one attached event consumer. It is owned by the broadcaster
// for its connection lifetime and removed on Detach or on a failed write.
type Observer struct {
	id string
	ch chan domain.Message
}

// Messages returns the observer's receive channel. The channel is closed
// when the observer is detached.
func (o *Observer) Messages() <-chan domain.Message {
	return o.ch
}

// Broadcaster is the fan-out hub between the scheduler pipeline and all
// attached observers.
type Broadcaster struct {
	logger  *slog.Logger
	bufSize int
	relay   Publisher

	mu        sync.Mutex
	observers map[string]*Observer
	closed    bool
}

// New creates a broadcaster. relay may be nil.
func New(logger *slog.Logger, bufSize int, relay Publisher) *Broadcaster {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Broadcaster{
		logger:    logger,
		bufSize:   bufSize,
		relay:     relay,
		observers: make(map[string]*Observer),
	}
}

// Attach registers a new observer. Observers see only messages broadcast
// while attached; there is no backlog replay.
func (b *Broadcaster) Attach() *Observer {
	o := &Observer{
		id: uuid.New().String(),
		ch: make(chan domain.Message, b.bufSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(o.ch)
		return o
	}
	b.observers[o.id] = o

	b.logger.Debug("Observer attached",
		slog.String("observer_id", o.id),
		slog.Int("observer_count", len(b.observers)),
	)
	return o
}

// Detach removes an observer and closes its channel. Detaching twice is
// harmless.
func (b *Broadcaster) Detach(o *Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked(o)
}

func (b *Broadcaster) detachLocked(o *Observer) {
	if _, ok := b.observers[o.id]; !ok {
		return
	}
	delete(b.observers, o.id)
	close(o.ch)

	b.logger.Debug("Observer detached",
		slog.String("observer_id", o.id),
		slog.Int("observer_count", len(b.observers)),
	)
}

// Broadcast relays one message to every attached observer. An observer whose
// buffer is full is detached instead of blocking; per-observer ordering
// matches broadcast order for observers that keep up.
func (b *Broadcaster) Broadcast(msg domain.Message) {
	b.mu.Lock()
	for _, o := range b.observers {
		select {
		case o.ch <- msg:
		default:
			b.logger.Warn("Observer too slow, detaching",
				slog.String("observer_id", o.id),
			)
			b.detachLocked(o)
		}
	}
	b.mu.Unlock()

	if b.relay != nil {
		b.publishToRelay(msg)
	}
}

// publishToRelay forwards the message to the off-box relay. Failures are
// logged and dropped; the relay is best-effort by contract.
func (b *Broadcaster) publishToRelay(msg domain.Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Failed to marshal message for relay",
			slog.Any("error", err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	if err := b.relay.Publish(ctx, body, "application/json"); err != nil {
		b.logger.Warn("Failed to relay message",
			slog.String("job_id", msg.JobID),
			slog.String("type", string(msg.Type)),
			slog.Any("error", err),
		)
	}
}

// ObserverCount returns the number of currently attached observers.
func (b *Broadcaster) ObserverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Close detaches every observer and rejects future attachments.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, o := range b.observers {
		b.detachLocked(o)
	}
}
