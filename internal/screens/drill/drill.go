// Package drill is the question-answering screen: one question at a time
// with selection, grading, flags, notes, and optional explanations.
package drill

import (
	"context"
	"errors"
	"strconv"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/explain"
	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/router"
	"github.com/abhisek/examdrill/internal/screen"
	"github.com/abhisek/examdrill/internal/screens/summary"
	"github.com/abhisek/examdrill/internal/screens/trials"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/abhisek/examdrill/internal/ui/components"
	"github.com/abhisek/examdrill/internal/ui/layout"
)

// DrillScreen implements screen.Screen for working through a question set.
type DrillScreen struct {
	set        *questionset.Set
	coord      *syncer.Coordinator
	registry   *trial.Registry
	explainSvc *explain.Service

	session syncer.Session
	state   attempt.ProgressState
	choices components.ChoiceList

	note        components.NoteInput
	editingNote bool

	explanation    string
	explainLoading bool
	explainErr     string

	confirmComplete bool
	syncing         bool
	errMsg          string
	ready           bool
}

var _ screen.Screen = (*DrillScreen)(nil)
var _ screen.KeyHintProvider = (*DrillScreen)(nil)
var _ screen.InputCapturer = (*DrillScreen)(nil)

// New creates a DrillScreen with injected dependencies. explainSvc may be
// nil when no provider is configured.
func New(set *questionset.Set, coord *syncer.Coordinator, registry *trial.Registry, explainSvc *explain.Service) *DrillScreen {
	return &DrillScreen{
		set:        set,
		coord:      coord,
		registry:   registry,
		explainSvc: explainSvc,
	}
}

func (d *DrillScreen) Init() tea.Cmd {
	return d.beginSession()
}

func (d *DrillScreen) Title() string {
	return d.set.Title
}

func (d *DrillScreen) KeyHints() []layout.KeyHint {
	if d.editingNote {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Save note"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	if d.confirmComplete {
		return []layout.KeyHint{
			{Key: "Y", Description: "Finish trial"},
			{Key: "N", Description: "Keep going"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "←→", Description: "Question"},
		{Key: "Enter", Description: "Answer"},
		{Key: "F", Description: "Flag"},
		{Key: "N", Description: "Note"},
	}
	if d.explainSvc != nil {
		hints = append(hints, layout.KeyHint{Key: "E", Description: "Explain"})
	}
	hints = append(hints,
		layout.KeyHint{Key: "C", Description: "Complete"},
		layout.KeyHint{Key: "T", Description: "Trials"},
	)
	if d.session.Trial == nil || d.session.ReadOnly {
		hints = append(hints, layout.KeyHint{Key: "S", Description: "New trial"})
	}
	return hints
}

// CapturingInput reports whether keys must reach this screen unfiltered.
func (d *DrillScreen) CapturingInput() bool {
	return d.editingNote || d.confirmComplete
}

// SyncStatus returns the header status line for the current session.
func (d *DrillScreen) SyncStatus() string {
	if d.session.ReadOnly {
		return "read-only"
	}
	if d.syncing {
		return "syncing..."
	}
	if t := d.session.Trial; t != nil && !t.Legacy() {
		return "trial #" + strconv.Itoa(t.Number)
	}
	return ""
}

func (d *DrillScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case beginDoneMsg:
		return d.handleBegin(msg)
	case remoteAppliedMsg:
		return d.handleRemoteApplied(msg)
	case explanationMsg:
		return d.handleExplanation(msg)
	case trialDoneMsg:
		return d.handleTrialDone(msg)
	case trialStartedMsg:
		return d.handleTrialStarted(msg)
	case pushDoneMsg:
		return d, nil
	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	if d.editingNote {
		var cmd tea.Cmd
		d.note, cmd = d.note.Update(msg)
		return d, cmd
	}
	return d, nil
}

// beginSession opens the local session and, when a remote is configured,
// kicks off the background load.
func (d *DrillScreen) beginSession() tea.Cmd {
	return func() tea.Msg {
		sess, gen, needsRemote, err := d.coord.Begin(context.Background(), d.set.ID, d.set.Len())
		return beginDoneMsg{Session: sess, Gen: gen, NeedsRemote: needsRemote, Err: err}
	}
}

// loadRemote fetches and merges the server copy. Runs off the UI loop; the
// user keeps drilling against local state meanwhile.
func (d *DrillScreen) loadRemote(gen int) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		outcome, err := d.coord.FetchRemote(ctx, gen)
		if errors.Is(err, syncer.ErrStaleLoad) {
			return remoteAppliedMsg{Stale: true}
		}
		sess, applyErr := d.coord.ApplyRemote(ctx, gen, outcome, err)
		if errors.Is(applyErr, syncer.ErrStaleLoad) {
			return remoteAppliedMsg{Stale: true}
		}
		return remoteAppliedMsg{Session: sess, Err: applyErr}
	}
}

func (d *DrillScreen) handleBegin(msg beginDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		d.errMsg = msg.Err.Error()
		return d, nil
	}
	d.applySession(msg.Session)
	d.ready = true
	if msg.NeedsRemote {
		d.syncing = true
		return d, d.loadRemote(msg.Gen)
	}
	return d, nil
}

func (d *DrillScreen) handleRemoteApplied(msg remoteAppliedMsg) (screen.Screen, tea.Cmd) {
	d.syncing = false
	if msg.Stale {
		return d, nil
	}
	if msg.Err != nil {
		d.errMsg = msg.Err.Error()
		return d, nil
	}
	d.applySession(msg.Session)
	return d, nil
}

func (d *DrillScreen) handleExplanation(msg explanationMsg) (screen.Screen, tea.Cmd) {
	d.explainLoading = false
	if q := d.currentQuestion(); q == nil || q.ID != msg.QuestionID {
		return d, nil
	}
	if msg.Err != nil {
		d.explainErr = msg.Err.Error()
		return d, nil
	}
	d.explanation = msg.Text
	return d, nil
}

func (d *DrillScreen) handleTrialDone(msg trialDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		d.errMsg = msg.Err.Error()
		return d, nil
	}
	return d, func() tea.Msg {
		return router.PushScreenMsg{Screen: summary.New(msg.Trial, d.set.Title)}
	}
}

func (d *DrillScreen) handleTrialStarted(msg trialStartedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		var exists *trial.ErrActiveExists
		if errors.As(msg.Err, &exists) {
			d.errMsg = "a trial is already in progress; complete or delete it first"
		} else {
			d.errMsg = msg.Err.Error()
		}
		return d, nil
	}
	// Fresh trial: reopen the session against it.
	d.ready = false
	return d, d.beginSession()
}

func (d *DrillScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if d.errMsg != "" {
		d.errMsg = ""
		return d, nil
	}
	if !d.ready {
		return d, nil
	}

	if d.editingNote {
		switch key {
		case "enter":
			d.editingNote = false
			return d.saveNote(d.note.Value())
		case "esc":
			d.editingNote = false
			return d, nil
		}
		var cmd tea.Cmd
		d.note, cmd = d.note.Update(msg)
		return d, cmd
	}

	if d.confirmComplete {
		switch key {
		case "y", "Y":
			d.confirmComplete = false
			return d, d.completeTrial()
		case "n", "N", "esc":
			d.confirmComplete = false
		}
		return d, nil
	}

	switch key {
	case "left", "h":
		return d.moveTo(d.state.CurrentIndex - 1)
	case "right", "l":
		return d.moveTo(d.state.CurrentIndex + 1)
	case "tab":
		return d.moveTo(d.firstUnanswered())
	case "enter":
		return d.submitAnswer()
	case "u":
		return d.clearAnswer()
	case "f":
		return d.toggleFlag()
	case "n":
		if d.session.ReadOnly {
			return d, nil
		}
		q := d.currentQuestion()
		if q == nil {
			return d, nil
		}
		d.note = components.NewNoteInput(d.state.Attempt(q.ID).Note)
		d.editingNote = true
		return d, d.note.Init()
	case "e":
		return d.requestExplanation()
	case "c":
		if !d.session.ReadOnly {
			d.confirmComplete = true
		}
		return d, nil
	case "s":
		if d.session.Trial == nil || d.session.ReadOnly {
			return d, d.startTrial()
		}
		return d, nil
	case "t":
		ts := trials.New(d.coord, d.registry, d.set.ID, d.set.Title)
		return d, func() tea.Msg { return router.PushScreenMsg{Screen: ts} }
	case "space", " ":
		if d.session.ReadOnly {
			return d, nil
		}
		if q := d.currentQuestion(); q != nil && q.MultiSelect() {
			var cmd tea.Cmd
			d.choices, cmd = d.choices.Update(msg)
			return d, cmd
		}
		return d, nil
	case "up", "k", "down", "j":
		var cmd tea.Cmd
		d.choices, cmd = d.choices.Update(msg)
		return d, cmd
	}

	return d, nil
}

// moveTo navigates to another question and persists the position.
func (d *DrillScreen) moveTo(index int) (screen.Screen, tea.Cmd) {
	if index < 0 || index >= d.set.Len() || index == d.state.CurrentIndex {
		return d, nil
	}
	next := attempt.WithCurrentIndex(d.state, index, d.set.Len())
	return d.record(next)
}

// submitAnswer grades the current selection and persists the attempt.
func (d *DrillScreen) submitAnswer() (screen.Screen, tea.Cmd) {
	if d.session.ReadOnly {
		return d, nil
	}
	q := d.currentQuestion()
	if q == nil {
		return d, nil
	}

	if !d.choices.MultiSelect {
		d.choices.Toggle()
	}
	selected := d.choices.SelectedIDs()
	if len(selected) == 0 {
		return d, nil
	}

	grade := attempt.Grade(q.AnswerChoiceIDs, selected)
	answeredAt := time.Now().UTC().Truncate(time.Second)
	next := attempt.Upsert(d.state, q.ID, attempt.Patch{
		SelectedChoiceIDs: selected,
		Correctness:       &grade,
		AnsweredAt:        &answeredAt,
	})
	d.choices.Revealed = true
	return d.record(next)
}

// clearAnswer resets the current question to unanswered. Flag and note
// survive the clear.
func (d *DrillScreen) clearAnswer() (screen.Screen, tea.Cmd) {
	if d.session.ReadOnly {
		return d, nil
	}
	q := d.currentQuestion()
	if q == nil || !d.state.Attempt(q.ID).Answered() {
		return d, nil
	}
	next := attempt.Upsert(d.state, q.ID, attempt.Patch{ClearSelection: true})
	d.choices = components.NewChoiceList(q, nil)
	d.explanation = ""
	return d.record(next)
}

// firstUnanswered returns the index of the first unanswered question, or the
// current index when every question has been answered.
func (d *DrillScreen) firstUnanswered() int {
	for i := range d.set.Questions {
		if !d.state.Attempt(d.set.Questions[i].ID).Answered() {
			return i
		}
	}
	return d.state.CurrentIndex
}

// toggleFlag flips the review flag on the current question.
func (d *DrillScreen) toggleFlag() (screen.Screen, tea.Cmd) {
	if d.session.ReadOnly {
		return d, nil
	}
	q := d.currentQuestion()
	if q == nil {
		return d, nil
	}
	flagged := !d.state.Attempt(q.ID).Flagged
	next := attempt.Upsert(d.state, q.ID, attempt.Patch{Flagged: &flagged})
	return d.record(next)
}

func (d *DrillScreen) saveNote(text string) (screen.Screen, tea.Cmd) {
	q := d.currentQuestion()
	if q == nil {
		return d, nil
	}
	next := attempt.Upsert(d.state, q.ID, attempt.Patch{Note: &text})
	return d.record(next)
}

// record persists the state locally and pushes remotely when the
// coordinator allows it.
func (d *DrillScreen) record(next attempt.ProgressState) (screen.Screen, tea.Cmd) {
	push, err := d.coord.RecordMutation(context.Background(), next)
	if err != nil {
		if errors.Is(err, trial.ErrCompleted) {
			d.session.ReadOnly = true
			d.errMsg = "this trial is completed and read-only"
			return d, nil
		}
		d.errMsg = err.Error()
		return d, nil
	}

	moved := next.CurrentIndex != d.state.CurrentIndex
	d.state = next
	if moved {
		d.resetQuestionView()
	}

	if !push {
		return d, nil
	}
	state := next
	return d, func() tea.Msg {
		d.coord.PushState(context.Background(), state)
		return pushDoneMsg{}
	}
}

func (d *DrillScreen) requestExplanation() (screen.Screen, tea.Cmd) {
	q := d.currentQuestion()
	if q == nil || d.explainLoading {
		return d, nil
	}
	if d.explainSvc == nil {
		d.explainErr = "no explanation provider configured"
		return d, nil
	}
	if d.explanation != "" {
		// Toggle off.
		d.explanation = ""
		return d, nil
	}

	d.explainLoading = true
	d.explainErr = ""
	selected := d.state.Attempt(q.ID).SelectedChoiceIDs
	return d, func() tea.Msg {
		text, err := d.explainSvc.Explain(context.Background(), q, selected)
		return explanationMsg{QuestionID: q.ID, Text: text, Err: err}
	}
}

func (d *DrillScreen) completeTrial() tea.Cmd {
	return func() tea.Msg {
		done, err := d.coord.CompleteTrial(context.Background())
		return trialDoneMsg{Trial: done, Err: err}
	}
}

func (d *DrillScreen) startTrial() tea.Cmd {
	return func() tea.Msg {
		t, err := d.coord.StartTrial(context.Background())
		return trialStartedMsg{Trial: t, Err: err}
	}
}

// applySession swaps in a freshly reconciled session and rebuilds the
// per-question view state.
func (d *DrillScreen) applySession(sess syncer.Session) {
	d.session = sess
	d.state = sess.State
	d.resetQuestionView()
}

func (d *DrillScreen) resetQuestionView() {
	d.explanation = ""
	d.explainErr = ""
	q := d.currentQuestion()
	if q == nil {
		return
	}
	d.choices = components.NewChoiceList(q, d.state.Attempt(q.ID).SelectedChoiceIDs)
}

func (d *DrillScreen) currentQuestion() *questionset.Question {
	return d.set.QuestionAt(d.state.CurrentIndex)
}
