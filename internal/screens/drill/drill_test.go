package drill

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/questionset"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testDrillScreen() *DrillScreen {
	set := &questionset.Set{
		ID:    "net-101",
		Title: "Networking Basics",
		Questions: []questionset.Question{
			{
				ID:   "q1",
				Text: "Which layer does TCP live in?",
				Choices: []questionset.Choice{
					{ID: "a", Text: "Application"},
					{ID: "b", Text: "Transport"},
				},
				AnswerChoiceIDs: []string{"b"},
			},
		},
	}
	d := New(set, nil, nil, nil)
	d.state = attempt.NewProgressState()
	d.ready = true
	d.resetQuestionView()
	return d
}

func TestNoteEditorReceivesPrintableKeys(t *testing.T) {
	d := testDrillScreen()

	s, _ := d.Update(keyPress('n'))
	d = s.(*DrillScreen)
	if !d.editingNote {
		t.Fatal("expected the note editor to open on n")
	}
	if !d.CapturingInput() {
		t.Fatal("expected the screen to report captured input while editing")
	}

	// Keys that double as shortcuts elsewhere must land in the editor.
	for _, r := range "qt" {
		s, _ = d.Update(keyPress(r))
		d = s.(*DrillScreen)
	}
	if !d.editingNote {
		t.Fatal("typing must not leave the note editor")
	}
	if got := d.note.Value(); got != "qt" {
		t.Fatalf("note value = %q, want %q", got, "qt")
	}
}

func TestNoteEditorEscCancelsWithoutSaving(t *testing.T) {
	d := testDrillScreen()

	s, _ := d.Update(keyPress('n'))
	d = s.(*DrillScreen)
	s, _ = d.Update(keyPress('x'))
	d = s.(*DrillScreen)

	s, _ = d.Update(specialKey(tea.KeyEscape))
	d = s.(*DrillScreen)
	if d.editingNote {
		t.Fatal("esc should close the note editor")
	}
	if note := d.state.Attempt("q1").Note; note != "" {
		t.Fatalf("cancelled edit must not persist, got note %q", note)
	}
}

func TestConfirmPromptCapturesInput(t *testing.T) {
	d := testDrillScreen()

	s, _ := d.Update(keyPress('c'))
	d = s.(*DrillScreen)
	if !d.confirmComplete {
		t.Fatal("expected the complete confirm to open on c")
	}
	if !d.CapturingInput() {
		t.Fatal("expected the screen to report captured input while confirming")
	}

	s, _ = d.Update(keyPress('n'))
	d = s.(*DrillScreen)
	if d.confirmComplete || d.CapturingInput() {
		t.Fatal("n should dismiss the confirm and release the keyboard")
	}
}
