package domain

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// CanTransition enforces the allowed state machine edges:
// queued → processing → ready, or queued → processing → error.
// No state permits re-entry.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusReady || to == StatusError
	default:
		return false
	}
}
