package questionset

// Choice is one selectable option within a question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a single exam question. AnswerChoiceIDs is nil when the set
// publisher did not supply a correct answer; such questions are never graded.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Choices         []Choice `json:"choices"`
	AnswerChoiceIDs []string `json:"answer_choice_ids,omitempty"`
	IsMultiSelect   *bool    `json:"is_multi_select,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// MultiSelect reports whether the UI should allow selecting more than one
// choice. The explicit flag wins; otherwise it is inferred from the answer
// key size.
func (q *Question) MultiSelect() bool {
	if q.IsMultiSelect != nil {
		return *q.IsMultiSelect
	}
	return len(q.AnswerChoiceIDs) > 1
}

// HasAnswerKey reports whether the question can be graded.
func (q *Question) HasAnswerKey() bool {
	return len(q.AnswerChoiceIDs) > 0
}

// Set is an immutable, validated question set.
type Set struct {
	ID        string     `json:"set_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Len returns the number of questions in the set.
func (s *Set) Len() int {
	return len(s.Questions)
}

// QuestionAt returns the question at index i, or nil if out of range.
func (s *Set) QuestionAt(i int) *Question {
	if i < 0 || i >= len(s.Questions) {
		return nil
	}
	return &s.Questions[i]
}
