package drill

import (
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
)

// beginDoneMsg is sent when the local session has been opened.
type beginDoneMsg struct {
	Session     syncer.Session
	Gen         int
	NeedsRemote bool
	Err         error
}

// remoteAppliedMsg is sent when the background remote load has been merged.
type remoteAppliedMsg struct {
	Session syncer.Session
	Stale   bool
	Err     error
}

// pushDoneMsg is sent when a best-effort remote push finishes.
type pushDoneMsg struct{}

// explanationMsg carries the result of an explanation request.
type explanationMsg struct {
	QuestionID string
	Text       string
	Err        error
}

// trialDoneMsg is sent when the current trial has been completed.
type trialDoneMsg struct {
	Trial *trial.Trial
	Err   error
}

// trialStartedMsg is sent when a fresh trial has been started.
type trialStartedMsg struct {
	Trial *trial.Trial
	Err   error
}
