// Package common defines shared constants and sentinel errors used across
// the client layers of DonorLink. Callers should use errors.Is and errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Transport errors.
	ErrUnavailable  = errors.New("remote store unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Change stream errors.
	ErrStreamClosed = errors.New("change stream closed")

	// Validation errors.
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTemporaryID       = errors.New("entity is not confirmed yet")
	ErrInvalidSelector   = errors.New("selector must name exactly one of id or access code")
	ErrEmptyPatch        = errors.New("nothing to update")

	// Query errors.
	ErrQueryClosed = errors.New("query closed")
)

// RemoteError wraps a failure reported by (or on the way to) the remote store.
type RemoteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NotFoundError reports that a keyed lookup matched no rows.
type NotFoundError struct {
	Collection string
	Key        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: not found", e.Collection, e.Key)
}

// Is makes errors.Is(err, ErrorNotFound) hold for any NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrorNotFound }

// StaleWriteError is produced when a write is confirmed or rejected for an
// entity that has already been deleted remotely. It counts as a delete.
type StaleWriteError struct {
	Collection string
	ID         string
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("%s %s: deleted remotely", e.Collection, e.ID)
}
