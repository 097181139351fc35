package remote

import (
	"errors"
	"fmt"
)

// ErrNotFound means the record does not exist server-side.
var ErrNotFound = errors.New("remote: not found")

// ErrUnauthorized means the token was missing, expired, or rejected.
var ErrUnauthorized = errors.New("remote: unauthorized")

// ErrActiveTrialExists is the server's distinguishable rejection of a
// create when a trial is already active. It carries the existing trial id
// so the caller can offer to complete or delete it.
type ErrActiveTrialExists struct {
	TrialID string
}

func (e *ErrActiveTrialExists) Error() string {
	return fmt.Sprintf("remote: an active trial already exists (id %q)", e.TrialID)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote: status %d", e.Code)
}
