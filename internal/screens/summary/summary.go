package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdrill/internal/router"
	"github.com/abhisek/examdrill/internal/screen"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/abhisek/examdrill/internal/ui/layout"
	"github.com/abhisek/examdrill/internal/ui/theme"
)

// SummaryScreen displays the result of a completed trial.
type SummaryScreen struct {
	trial    *trial.Trial
	setTitle string
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen for a completed trial.
func New(t *trial.Trial, setTitle string) *SummaryScreen {
	return &SummaryScreen{trial: t, setTitle: setTitle}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Trial Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Back"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	t := s.trial
	if t == nil || t.Summary == nil {
		return ""
	}
	sum := t.Summary

	centered := func(style lipgloss.Style, text string) string {
		return style.Width(width).Align(lipgloss.Center).Render(text)
	}

	var b strings.Builder

	b.WriteString(centered(
		lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		fmt.Sprintf("Trial #%d complete!", t.Number)))
	b.WriteString("\n")
	b.WriteString(centered(
		lipgloss.NewStyle().Foreground(theme.TextDim),
		s.setTitle))
	b.WriteString("\n\n")

	if sum.DurationSec != nil {
		mins := *sum.DurationSec / 60
		secs := *sum.DurationSec % 60
		b.WriteString(centered(
			lipgloss.NewStyle().Foreground(theme.TextDim),
			fmt.Sprintf("Duration: %d:%02d", mins, secs)))
		b.WriteString("\n\n")
	}

	statsLine := fmt.Sprintf("Answered: %d/%d        Accuracy: %d%%",
		sum.Answered, sum.Total, sum.AccuracyPct)
	b.WriteString(centered(
		lipgloss.NewStyle().Foreground(theme.Text),
		statsLine))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value int
		style lipgloss.Style
	}{
		{"Correct", sum.Correct, lipgloss.NewStyle().Foreground(theme.Success)},
		{"Incorrect", sum.Incorrect, lipgloss.NewStyle().Foreground(theme.Error)},
		{"Ungraded", sum.Unknown, lipgloss.NewStyle().Foreground(theme.TextDim)},
		{"Flagged", sum.Flagged, lipgloss.NewStyle().Foreground(theme.Accent)},
	}
	for _, r := range rows {
		line := fmt.Sprintf("%-10s %3d", r.label, r.value)
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			r.style.Render(line)))
		b.WriteString("\n")
	}

	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
