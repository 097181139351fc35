package app

import (
	"context"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/screen"
	"github.com/abhisek/examdrill/internal/store"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func testSet() *questionset.Set {
	return &questionset.Set{
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
}

// newTestApp builds the root model on a throwaway store and opens the drill
// session the way program startup does.
func newTestApp(t *testing.T) (AppModel, *syncer.Coordinator) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reg := trial.NewRegistry(db)
	coord := syncer.New(reg, nil, "tester")
	m := newAppModel(Options{Set: testSet(), Coordinator: coord, Registry: reg})

	model, _ := m.Update(m.Init()())
	return model.(AppModel), coord
}

// drive feeds msg through Update and keeps executing any returned commands
// until the model settles.
func drive(t *testing.T, m AppModel, msg tea.Msg) AppModel {
	t.Helper()
	for msg != nil {
		model, cmd := m.Update(msg)
		m = model.(AppModel)
		if cmd == nil {
			break
		}
		msg = cmd()
	}
	return m
}

func TestTypedQuitKeyStaysInNoteEditor(t *testing.T) {
	m, _ := newTestApp(t)

	// A single Update; the editor's blink command must not be executed here.
	model, _ := m.Update(keyPress('n'))
	m = model.(AppModel)
	capturer, ok := m.router.Active().(screen.InputCapturer)
	if !ok || !capturer.CapturingInput() {
		t.Fatal("expected the note editor to capture input")
	}

	model, cmd := m.Update(keyPress('q'))
	m = model.(AppModel)
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("typing q into the note quit the app")
		}
	}
	if !capturer.CapturingInput() {
		t.Fatal("q must stay in the editor, not close it")
	}
}

func TestEscCancelsDeleteConfirmBeforePopping(t *testing.T) {
	m, coord := newTestApp(t)
	if _, err := coord.StartTrial(context.Background()); err != nil {
		t.Fatalf("start trial: %v", err)
	}

	m = drive(t, m, keyPress('t'))
	if m.router.Depth() != 2 {
		t.Fatalf("expected the trials screen pushed, depth = %d", m.router.Depth())
	}

	m = drive(t, m, keyPress('d'))
	capturer := m.router.Active().(screen.InputCapturer)
	if !capturer.CapturingInput() {
		t.Fatal("expected the delete confirm to open on d")
	}

	m = drive(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.router.Depth() != 2 {
		t.Fatal("esc during the delete confirm must cancel it, not leave the screen")
	}
	if capturer.CapturingInput() {
		t.Fatal("esc should have dismissed the confirm")
	}

	m = drive(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.router.Depth() != 1 {
		t.Fatalf("esc with no confirm open should navigate back, depth = %d", m.router.Depth())
	}
}
