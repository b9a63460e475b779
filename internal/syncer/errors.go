package syncer

import (
	"errors"
	"fmt"
)

// ErrRemoteUnavailable marks a connectivity-class failure: network error,
// timeout, or a 5xx from the remote store. It routes operations to the local
// fallback and is never surfaced to the UI as a hard failure.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// PreconditionError is a business-rule violation (dependent records exist).
// Always surfaced, regardless of which store answered the check.
type PreconditionError struct {
	Collection string
	ID         string
	Reason     string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s/%s: %s", e.Collection, e.ID, e.Reason)
}

// ConflictError marks remote state that diverged underneath an unsynced
// local write. Surfaced for explicit resolution, never auto-merged for
// money-bearing collections.
type ConflictError struct {
	Collection string
	ID         string
	Detail     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("sync conflict on %s/%s: %s", e.Collection, e.ID, e.Detail)
}

// RejectedError is a non-retryable rejection from the remote store (4xx):
// the write is malformed or violates a remote rule, so queueing it would
// never succeed.
type RejectedError struct {
	Collection string
	Status     int
	Detail     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote store rejected %s write (%d): %s", e.Collection, e.Status, e.Detail)
}
