// Package apperr defines the service error taxonomy. Handlers map these to
// HTTP status codes with errors.As; everything else is a 500.
package apperr

import (
	"fmt"
	"strings"
)

// ValidationError rejects a request value before any side effect.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("invalid %s: %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// InvalidRequestError rejects a malformed request shape, e.g. a chat payload
// that does not end with a human turn.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// NotFoundError addresses a conversation identifier with no artifacts.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CorruptDataError marks unparseable persisted JSON. Callers log it and fall
// back to empty/default state rather than failing the request.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt data in %s: %v", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }

// CompletionError reports a failure of the external completion provider:
// non-2xx, network error, timeout, or an unusable response body.
type CompletionError struct {
	Status  int
	Message string
	Err     error
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("completion failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("completion failed: %s", e.Message)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// PersistenceError reports a disk write failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
