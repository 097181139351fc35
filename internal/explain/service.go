package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/examdrill/internal/questionset"
)

const explainSystemPrompt = `You are a study assistant for exam preparation.
Given a multiple-choice question, its answer key, and the learner's selection,
explain in two or three sentences why the correct choices are correct and,
when the learner chose differently, why their selection falls short. Be
factual and concise; do not restate the full question.`

// explanationSchema is the structured output contract for explanations.
var explanationSchema = &Schema{
	Name:        "question-explanation",
	Description: "A short explanation of a multiple-choice answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
		},
		"required":             []any{"explanation"},
		"additionalProperties": false,
	},
}

// Service produces explanations for answered questions. An authored
// explanation in the question file always wins over a generated one.
type Service struct {
	provider Provider
	cfg      Config

	// cache keyed by question id; a question's explanation does not depend
	// on the learner's selection enough to justify regenerating per answer.
	cache map[string]string
}

// NewService creates an explanation service. provider may be nil, in which
// case only authored explanations are returned.
func NewService(provider Provider, cfg Config) *Service {
	return &Service{
		provider: provider,
		cfg:      cfg,
		cache:    map[string]string{},
	}
}

// Available reports whether generated explanations can be produced.
func (s *Service) Available() bool {
	return s.provider != nil
}

// Explain returns an explanation for the question. Authored text takes
// precedence; otherwise one is generated, cached for the session.
func (s *Service) Explain(ctx context.Context, q *questionset.Question, selected []string) (string, error) {
	if q.Explanation != "" {
		return q.Explanation, nil
	}
	if s.provider == nil {
		return "", &ErrProviderUnavailable{}
	}
	if cached, ok := s.cache[q.ID]; ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req := Request{
		System:    explainSystemPrompt,
		Messages:  []Message{{Role: RoleUser, Content: buildPrompt(q, selected)}},
		Schema:    explanationSchema,
		MaxTokens: 512,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.StopReason == "max_tokens" {
		return "", &ErrMaxTokensExceeded{Content: resp.Content}
	}

	var out struct {
		Explanation string `json:"explanation"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", &ErrInvalidResponse{Content: resp.Content, Err: err}
	}

	s.cache[q.ID] = out.Explanation
	return out.Explanation, nil
}

func buildPrompt(q *questionset.Question, selected []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\nChoices:\n", q.Text)
	for _, c := range q.Choices {
		fmt.Fprintf(&b, "- [%s] %s\n", c.ID, c.Text)
	}

	if q.HasAnswerKey() {
		fmt.Fprintf(&b, "\nCorrect choice ids: %s\n", strings.Join(q.AnswerChoiceIDs, ", "))
	} else {
		b.WriteString("\nThe question set does not specify a correct answer.\n")
	}

	if len(selected) > 0 {
		fmt.Fprintf(&b, "Learner selected: %s\n", strings.Join(selected, ", "))
	} else {
		b.WriteString("Learner has not selected an answer.\n")
	}

	return b.String()
}
