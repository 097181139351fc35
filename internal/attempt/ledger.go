package attempt

import "time"

// Patch describes a partial update to one question's attempt. Nil pointer
// fields are left untouched. Callers are expected to pass pre-validated
// values; the ledger only enforces the answered/unanswered invariant.
type Patch struct {
	// SelectedChoiceIDs, when non-nil, replaces the recorded selection.
	SelectedChoiceIDs []string
	// ClearSelection resets the question to unanswered. Correctness and
	// AnsweredAt are cleared with it; flag and note survive.
	ClearSelection bool
	Correctness    *Correctness
	Flagged        *bool
	// Note, when non-nil, replaces the note. An empty string removes it.
	Note *string
	// AnsweredAt, when non-nil, records the submit time. It is dropped
	// again if the patched attempt ends up unanswered.
	AnsweredAt *time.Time
}

// Upsert applies patch over the attempt for questionID, creating a default
// (unanswered) attempt if none exists, and returns a new ProgressState with
// UpdatedAt stamped. The input state is not modified.
func Upsert(s ProgressState, questionID string, patch Patch) ProgressState {
	out := s.Clone()
	a := out.Attempts[questionID]

	if patch.ClearSelection {
		a.SelectedChoiceIDs = nil
	} else if patch.SelectedChoiceIDs != nil {
		a.SelectedChoiceIDs = append([]string(nil), patch.SelectedChoiceIDs...)
	}
	if patch.Correctness != nil {
		a.Correctness = *patch.Correctness
	}
	if patch.Flagged != nil {
		a.Flagged = *patch.Flagged
	}
	if patch.Note != nil {
		a.Note = *patch.Note
	}
	if patch.AnsweredAt != nil {
		t := *patch.AnsweredAt
		a.AnsweredAt = &t
	}

	// An unanswered attempt can be neither graded nor timestamped.
	if !a.Answered() {
		a.Correctness = Unknown
		a.AnsweredAt = nil
	}

	out.Attempts[questionID] = a
	out.UpdatedAt = laterOf(out.UpdatedAt, now())
	return out
}

// WithCurrentIndex returns a new state positioned at index, clamped to
// [0, questionCount-1], with UpdatedAt stamped.
func WithCurrentIndex(s ProgressState, index, questionCount int) ProgressState {
	out := s.Clone()
	out.CurrentIndex = index
	out = clampIndex(out, questionCount)
	out.UpdatedAt = laterOf(out.UpdatedAt, now())
	return out
}

// laterOf keeps UpdatedAt non-decreasing even if the wall clock steps back.
func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
