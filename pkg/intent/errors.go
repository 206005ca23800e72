package intent

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed batches or query arguments.
	ErrValidation = errors.New("bad request")

	// ErrUnknownSystem is returned when a system has never been trained.
	ErrUnknownSystem = errors.New("system not found")

	// ErrEmptyCorpus is returned when a system exists but holds no records.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrDependency is returned when the embedding provider fails.
	ErrDependency = errors.New("embedding provider failed")

	// ErrTimeout is returned when the embedding provider or persistence
	// does not complete within its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrPersistence is returned when a snapshot cannot be written.
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError describes the first malformed item of a batch.
type ValidationError struct {
	SystemID string
	Section  string
	Index    int
	Field    string
}

func (e *ValidationError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("%s: %s is required", ErrValidation, e.Field)
	}
	return fmt.Sprintf("%s: system %q: %s[%d]: %s is required",
		ErrValidation, e.SystemID, e.Section, e.Index, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
