// Package attempt holds the pure data operations over a single trial's
// question-level answers. Nothing in this package performs I/O; persistence
// and synchronization live in the store and syncer packages.
package attempt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Correctness classifies a graded answer. Unknown means the question carries
// no answer key, which is distinct from an incorrect answer.
type Correctness int

const (
	Unknown Correctness = iota
	Correct
	Incorrect
)

func (c Correctness) String() string {
	switch c {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Correct/Incorrect/Unknown as true/false/null, the wire
// form the progress endpoints have always used.
func (c Correctness) MarshalJSON() ([]byte, error) {
	switch c {
	case Correct:
		return []byte("true"), nil
	case Incorrect:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true/false/null.
func (c *Correctness) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = Unknown
	case bytes.Equal(data, []byte("true")):
		*c = Correct
	case bytes.Equal(data, []byte("false")):
		*c = Incorrect
	default:
		return fmt.Errorf("invalid correctness value: %s", data)
	}
	return nil
}

// Attempt is one question's latest recorded response within a trial.
// A nil SelectedChoiceIDs means the question has not been answered; an
// unanswered attempt always has Correctness Unknown and no AnsweredAt.
type Attempt struct {
	SelectedChoiceIDs []string    `json:"selectedChoiceIds"`
	Correctness       Correctness `json:"isCorrect"`
	Flagged           bool        `json:"flagged"`
	Note              string      `json:"note,omitempty"`
	AnsweredAt        *time.Time  `json:"answeredAt,omitempty"`
}

// Answered reports whether the attempt carries a recorded selection.
func (a Attempt) Answered() bool {
	return len(a.SelectedChoiceIDs) > 0
}

// ProgressState is the mutable state of one trial. Values of this type are
// treated as immutable: every mutation goes through a function returning a
// new state, leaving the input untouched.
type ProgressState struct {
	CurrentIndex int                `json:"currentIndex"`
	Attempts     map[string]Attempt `json:"attemptsByQuestionId"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// NewProgressState returns an empty state stamped with the current time.
func NewProgressState() ProgressState {
	return ProgressState{
		Attempts:  map[string]Attempt{},
		UpdatedAt: now(),
	}
}

// Attempt returns the recorded attempt for questionID. Absent entries read
// as a zero Attempt, i.e. unanswered.
func (s ProgressState) Attempt(questionID string) Attempt {
	return s.Attempts[questionID]
}

// Clone returns a deep copy of the state.
func (s ProgressState) Clone() ProgressState {
	out := s
	out.Attempts = make(map[string]Attempt, len(s.Attempts))
	for id, a := range s.Attempts {
		if a.SelectedChoiceIDs != nil {
			a.SelectedChoiceIDs = append([]string(nil), a.SelectedChoiceIDs...)
		}
		if a.AnsweredAt != nil {
			t := *a.AnsweredAt
			a.AnsweredAt = &t
		}
		out.Attempts[id] = a
	}
	return out
}

// ParseState decodes a persisted ProgressState, clamping CurrentIndex to
// questionCount. Malformed data yields a fresh empty state rather than an
// error: bad persisted bytes must never block the user from continuing.
func ParseState(data []byte, questionCount int) ProgressState {
	var s ProgressState
	if err := json.Unmarshal(data, &s); err != nil {
		return clampIndex(NewProgressState(), questionCount)
	}
	if s.Attempts == nil {
		s.Attempts = map[string]Attempt{}
	}
	return clampIndex(s, questionCount)
}

func clampIndex(s ProgressState, questionCount int) ProgressState {
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	if max := questionCount - 1; max >= 0 && s.CurrentIndex > max {
		s.CurrentIndex = max
	}
	if questionCount == 0 {
		s.CurrentIndex = 0
	}
	return s
}

// now is replaced in tests for deterministic timestamps. Seconds precision
// matches what the progress endpoints store.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
