package explain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/examdrill/internal/questionset"
)

func testQuestion() *questionset.Question {
	return &questionset.Question{
		ID:   "q1",
		Text: "Which layer does TCP live in?",
		Choices: []questionset.Choice{
			{ID: "a", Text: "Transport"},
			{ID: "b", Text: "Network"},
		},
		AnswerChoiceIDs: []string{"a"},
	}
}

func TestExplainAuthoredTextWins(t *testing.T) {
	mock := NewMockProvider()
	svc := NewService(mock, DefaultConfig())

	q := testQuestion()
	q.Explanation = "TCP is a transport protocol."

	got, err := svc.Explain(context.Background(), q, []string{"b"})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "TCP is a transport protocol." {
		t.Fatalf("got %q, want the authored explanation", got)
	}
	if mock.CallCount() != 0 {
		t.Fatal("authored explanation must not hit the provider")
	}
}

func TestExplainGeneratesAndCaches(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"explanation":"TCP provides reliable delivery at the transport layer."}`),
	})
	svc := NewService(mock, DefaultConfig())
	q := testQuestion()

	got, err := svc.Explain(context.Background(), q, []string{"a"})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got == "" {
		t.Fatal("expected a generated explanation")
	}

	// Second call must come from the cache, not the (now empty) queue.
	again, err := svc.Explain(context.Background(), q, []string{"b"})
	if err != nil {
		t.Fatalf("cached Explain: %v", err)
	}
	if again != got {
		t.Fatalf("cache miss: %q vs %q", again, got)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("provider called %d times, want 1", mock.CallCount())
	}
}

func TestExplainNoProvider(t *testing.T) {
	svc := NewService(nil, DefaultConfig())

	_, err := svc.Explain(context.Background(), testQuestion(), nil)
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestExplainMalformedContent(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`not json`),
	})
	svc := NewService(mock, DefaultConfig())

	_, err := svc.Explain(context.Background(), testQuestion(), nil)
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestExplainPromptCarriesSelection(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"explanation":"ok"}`),
	})
	svc := NewService(mock, DefaultConfig())

	if _, err := svc.Explain(context.Background(), testQuestion(), []string{"b"}); err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d", len(mock.Calls))
	}
	req := mock.Calls[0]
	if req.Schema == nil || req.Schema.Name != "question-explanation" {
		t.Fatalf("schema = %+v", req.Schema)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("messages = %d", len(req.Messages))
	}
}
