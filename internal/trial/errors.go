package trial

import (
	"errors"
	"fmt"
)

// ErrCompleted is returned when a write is attempted against a completed
// trial. Completed trials are immutable regardless of any UI-level
// read-only flag.
var ErrCompleted = errors.New("trial is completed and read-only")

// ErrNotFound is returned when the referenced trial does not exist.
var ErrNotFound = errors.New("trial not found")

// ErrActiveExists reports that a new trial cannot start because one is
// already in progress. The caller must complete or delete it first.
type ErrActiveExists struct {
	TrialID string
}

func (e *ErrActiveExists) Error() string {
	return fmt.Sprintf("an active trial already exists (id %q)", e.TrialID)
}
