package attempt

// Grade computes the correctness of a selection against a question's answer
// key. A missing or empty key means the publisher supplied no correct answer
// and the result is Unknown. Otherwise the selection is Correct iff it
// equals the key as a set: order and duplicates are irrelevant, which makes
// single-select and multi-select grading the same comparison.
func Grade(answerKey, selectedChoiceIDs []string) Correctness {
	if len(answerKey) == 0 {
		return Unknown
	}
	if setEqual(answerKey, selectedChoiceIDs) {
		return Correct
	}
	return Incorrect
}

func setEqual(a, b []string) bool {
	as := toSet(a)
	bs := toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for id := range as {
		if !bs[id] {
			return false
		}
	}
	return true
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// Tally aggregates a state's attempts for display and trial summaries.
type Tally struct {
	Answered  int
	Correct   int
	Incorrect int
	Unknown   int // answered but ungradable (no answer key)
	Flagged   int
}

// CountAttempts walks the state once and returns the aggregate counts.
func CountAttempts(s ProgressState) Tally {
	var t Tally
	for _, a := range s.Attempts {
		if a.Flagged {
			t.Flagged++
		}
		if !a.Answered() {
			continue
		}
		t.Answered++
		switch a.Correctness {
		case Correct:
			t.Correct++
		case Incorrect:
			t.Incorrect++
		default:
			t.Unknown++
		}
	}
	return t
}

// AccuracyPercent returns correct/(correct+incorrect) rounded to the nearest
// whole percent, or 0 when no graded answers exist.
func (t Tally) AccuracyPercent() int {
	graded := t.Correct + t.Incorrect
	if graded == 0 {
		return 0
	}
	return int(float64(t.Correct)/float64(graded)*100 + 0.5)
}
