// Package trial tracks attempts at a question set. A trial is one complete
// run through a set; for a given (user, set) at most one trial is in
// progress at any time, and completed trials are frozen.
package trial

import "time"

// Status is the lifecycle state of a trial. The only legal transition is
// in_progress -> completed.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// LegacyID is the trial id of progress recorded before trials existed.
// Such progress behaves as an implicit Trial #1.
const LegacyID = ""

// Summary aggregates a completed trial. It is computed once at completion
// and never recomputed.
type Summary struct {
	Answered    int    `json:"answered"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	Unknown     int    `json:"unknown"`
	Flagged     int    `json:"flagged"`
	AccuracyPct int    `json:"accuracyPct"`
	DurationSec *int64 `json:"durationSec"`
	Total       int    `json:"totalQuestions"`
}

// Trial is the metadata wrapping one trial's progress state.
type Trial struct {
	ID          string     `json:"trialId"`
	Number      int        `json:"trialNumber"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Summary     *Summary   `json:"summary,omitempty"`
}

// Completed reports whether the trial is frozen.
func (t *Trial) Completed() bool {
	return t.Status == StatusCompleted
}

// Legacy reports whether this is the implicit pre-trial record.
func (t *Trial) Legacy() bool {
	return t.ID == LegacyID
}
