// Package mutation performs writes against the backend and reconciles local
// state only with server-confirmed results. Each coordinator reports an
// explicit Result instead of changing shared state speculatively.
package mutation

import (
	"errors"
	"fmt"

	"github.com/txn2/gamebuddy/pkg/apiclient"
)

// slogKeyError is the slog attribute key for error values.
const slogKeyError = "error"

// ErrValidation marks input rejected before any request was sent.
var ErrValidation = errors.New("validation failed")

// ErrBusy is returned when a mutation is already in flight on the same
// coordinator.
var ErrBusy = errors.New("mutation already in progress")

// ValidationError is a client-side precondition failure. Message is shown to
// the user as is.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Status is the lifecycle of one mutation.
type Status int

// Mutation statuses. Idle precedes the first attempt.
const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Result is the outcome of a mutation. Message is the text to display; Err
// is set only when Status is StatusFailed.
type Result struct {
	Status  Status
	Message string
	Err     error
}

// OK reports success.
func (r Result) OK() bool {
	return r.Status == StatusSucceeded
}

func pending() Result {
	return Result{Status: StatusPending}
}

func succeeded(message string) Result {
	return Result{Status: StatusSucceeded, Message: message}
}

// failed builds a failure result. Validation errors keep their own text,
// server rejections keep the server's text, anything else gets fallback.
func failed(err error, fallback string) Result {
	msg := fallback
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		msg = vErr.Message
	} else {
		msg = apiclient.UserMessage(err, fallback)
	}
	return Result{Status: StatusFailed, Message: msg, Err: err}
}

// Error returns r.Err annotated with the operation, or nil on success.
func (r Result) Error(op string) error {
	if r.Err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, r.Err)
}
