package ingest

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a referenced website, structure, job or event
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoActiveStructure reports that no structure version is active yet.
var ErrNoActiveStructure = errors.New("no active event structure found")

// ValidationError reports malformed input rejected before any state change.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a review attempt against an already-resolved event.
// The original disposition is preserved.
type ConflictError struct {
	Status ReviewStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("event already reviewed with status: %s", e.Status)
}

// BotDetectionError reports that a fetch was blocked or redirected by
// anti-automation defenses.
type BotDetectionError struct {
	URL    string
	Marker string
}

func (e *BotDetectionError) Error() string {
	return fmt.Sprintf("bot detection triggered by %q at %s", e.Marker, e.URL)
}

// InvalidTransitionError reports an attempt to move a job backwards or out
// of a terminal state.
type InvalidTransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job transition %s -> %s", e.From, e.To)
}
