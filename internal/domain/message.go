package domain

import "time"

// MessageType tags a lifecycle message. The values double as the event
// stream wire tags exposed to observers.
type MessageType string

const (
	MessageStarted  MessageType = "start"
	MessageProgress MessageType = "progress"
	MessageDone     MessageType = "complete"
	MessageError    MessageType = "error"
)

// Message is the unit emitted by a worker executor and relayed through the
// broadcaster. It is an immutable value; fields beyond Type and JobID are
// populated per variant.
type Message struct {
	Type      MessageType `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp time.Time   `json:"timestamp"`

	// progress
	Percent float64 `json:"percent,omitempty"`
	ETA     string  `json:"eta,omitempty"`

	// complete
	OutputSize   int64           `json:"output_size,omitempty"`
	Metadata     *OutputMetadata `json:"metadata,omitempty"`
	ThumbnailRef string          `json:"thumbnail_ref,omitempty"`

	// error
	Reason string `json:"reason,omitempty"`
}

// IsTerminal reports whether the message ends a job's lifecycle.
func (m Message) IsTerminal() bool {
	return m.Type == MessageDone || m.Type == MessageError
}

// StartedMessage builds the message emitted when execution begins.
func StartedMessage(jobID string) Message {
	return Message{Type: MessageStarted, JobID: jobID, Timestamp: time.Now().UTC()}
}

// ProgressMessage builds a throttled progress update.
func ProgressMessage(jobID string, percent float64, eta string) Message {
	return Message{Type: MessageProgress, JobID: jobID, Timestamp: time.Now().UTC(), Percent: percent, ETA: eta}
}

// DoneMessage builds the terminal success message.
func DoneMessage(jobID string, size int64, meta *OutputMetadata, thumbRef string) Message {
	return Message{Type: MessageDone, JobID: jobID, Timestamp: time.Now().UTC(), OutputSize: size, Metadata: meta, ThumbnailRef: thumbRef}
}

// ErrorMessage builds the terminal failure message.
func ErrorMessage(jobID, reason string) Message {
	return Message{Type: MessageError, JobID: jobID, Timestamp: time.Now().UTC(), Reason: reason}
}
