package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrSchedulerClosed is returned for submissions after shutdown began.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// AdmissionError is a guardrail-blocked configuration, rejected before the
// job is queued. It is user-correctable and reported synchronously to the
// caller with the blocking verdict's reason.
type AdmissionError struct {
	Reason string
}

func (e *AdmissionError) Error() string {
	return "admission rejected: " + e.Reason
}

// NewAdmissionError wraps a guardrail reason as an AdmissionError.
func NewAdmissionError(reason string) error {
	return &AdmissionError{Reason: reason}
}

// IsAdmissionError reports whether err is (or wraps) an AdmissionError.
func IsAdmissionError(err error) bool {
	var ae *AdmissionError
	return errors.As(err, &ae)
}
