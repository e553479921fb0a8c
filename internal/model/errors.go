package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced user does not exist in the
// backing table.
var ErrNotFound = errors.New("user not found")

// ErrStaleUser is returned when a follow operation references a user that is
// absent from the in-memory replica. The replica may simply be behind the
// table, so callers should treat this as retryable after a refresh.
var ErrStaleUser = errors.New("user not present in replica")

// BackendError wraps any failure coming from the remote table or the
// notification channel. Callers must treat it as "state unknown", not as an
// empty result.
type BackendError struct {
	Op  string
	Err error
}

// NewBackendError wraps err with the failed operation name.
func NewBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: failed to %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ValidationError reports a field-level problem caught before any backend
// call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
