package components

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/ui/theme"
)

// ChoiceList is the answer selector for one question. Single-select
// questions commit a choice directly; multi-select questions toggle with
// space and commit with enter.
type ChoiceList struct {
	Choices     []questionset.Choice
	MultiSelect bool
	Cursor      int
	Picked      map[string]bool
	Revealed    bool
	answerKey   map[string]bool
}

// NewChoiceList creates a selector for q, pre-populated with a previously
// recorded selection.
func NewChoiceList(q *questionset.Question, selected []string) ChoiceList {
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	key := make(map[string]bool, len(q.AnswerChoiceIDs))
	for _, id := range q.AnswerChoiceIDs {
		key[id] = true
	}
	return ChoiceList{
		Choices:     q.Choices,
		MultiSelect: q.MultiSelect(),
		Picked:      picked,
		Revealed:    len(selected) > 0,
		answerKey:   key,
	}
}

// Update handles cursor movement and selection toggling. Committing the
// selection is the screen's call.
func (c ChoiceList) Update(msg tea.Msg) (ChoiceList, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if c.Cursor > 0 {
			c.Cursor--
		}
	case "down", "j":
		if c.Cursor < len(c.Choices)-1 {
			c.Cursor++
		}
	case "space", " ":
		if c.MultiSelect {
			id := c.Choices[c.Cursor].ID
			if c.Picked[id] {
				delete(c.Picked, id)
			} else {
				c.Picked[id] = true
			}
		}
	}

	return c, nil
}

// Toggle marks the choice under the cursor as the selection. For
// single-select lists it replaces any previous pick.
func (c *ChoiceList) Toggle() {
	id := c.Choices[c.Cursor].ID
	if c.MultiSelect {
		if c.Picked[id] {
			delete(c.Picked, id)
		} else {
			c.Picked[id] = true
		}
		return
	}
	c.Picked = map[string]bool{id: true}
}

// SelectedIDs returns the picked choice ids in choice order.
func (c ChoiceList) SelectedIDs() []string {
	var out []string
	for _, ch := range c.Choices {
		if c.Picked[ch.ID] {
			out = append(out, ch.ID)
		}
	}
	return out
}

// HasAnswerKey reports whether grading colors can be shown after reveal.
func (c ChoiceList) HasAnswerKey() bool {
	return len(c.answerKey) > 0
}

// View renders the choice list.
func (c ChoiceList) View() string {
	var s string

	for i, ch := range c.Choices {
		cursor := "  "
		if i == c.Cursor {
			cursor = "> "
		}
		mark := "( )"
		if c.MultiSelect {
			mark = "[ ]"
		}
		if c.Picked[ch.ID] {
			if c.MultiSelect {
				mark = "[x]"
			} else {
				mark = "(o)"
			}
		}

		line := fmt.Sprintf("%s%s %s", cursor, mark, ch.Text)

		switch {
		case c.Revealed && c.HasAnswerKey() && c.answerKey[ch.ID]:
			s += theme.Correct.Render(line)
		case c.Revealed && c.HasAnswerKey() && c.Picked[ch.ID]:
			s += theme.Incorrect.Render(line)
		case i == c.Cursor:
			s += lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(line)
		case c.Picked[ch.ID]:
			s += lipgloss.NewStyle().Foreground(theme.Secondary).Render(line)
		default:
			s += lipgloss.NewStyle().Foreground(theme.Text).Render(line)
		}
		s += "\n"
	}

	return s
}
