package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// NoteInput wraps bubbles/textinput for editing a question note.
type NoteInput struct {
	Model textinput.Model
}

// NewNoteInput creates a note editor pre-filled with the existing note.
func NewNoteInput(existing string) NoteInput {
	ti := textinput.New()
	ti.Placeholder = "Add a note..."
	ti.CharLimit = 500
	ti.SetValue(existing)
	ti.Focus()
	return NoteInput{Model: ti}
}

// Init returns the initial command.
func (n NoteInput) Init() tea.Cmd {
	return n.Model.Focus()
}

// Update handles messages.
func (n NoteInput) Update(msg tea.Msg) (NoteInput, tea.Cmd) {
	var cmd tea.Cmd
	n.Model, cmd = n.Model.Update(msg)
	return n, cmd
}

// View renders the note input.
func (n NoteInput) View() string {
	return n.Model.View()
}

// Value returns the current note text.
func (n NoteInput) Value() string {
	return n.Model.Value()
}
