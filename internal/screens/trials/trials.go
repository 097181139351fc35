package trials

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdrill/internal/router"
	"github.com/abhisek/examdrill/internal/screen"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/abhisek/examdrill/internal/ui/layout"
	"github.com/abhisek/examdrill/internal/ui/theme"
)

type trialsLoadedMsg struct {
	Trials []*trial.Trial
	Err    error
}

type trialDeletedMsg struct {
	TrialID string
	Err     error
}

// TrialsScreen lists past and in-progress trials for a question set.
type TrialsScreen struct {
	coord         *syncer.Coordinator
	registry      *trial.Registry
	setID         string
	setTitle      string
	trials        []*trial.Trial
	selected      int
	confirmDelete bool
	loaded        bool
	errMsg        string
}

var _ screen.Screen = (*TrialsScreen)(nil)
var _ screen.KeyHintProvider = (*TrialsScreen)(nil)
var _ screen.InputCapturer = (*TrialsScreen)(nil)

// New creates a new TrialsScreen.
func New(coord *syncer.Coordinator, registry *trial.Registry, setID, setTitle string) *TrialsScreen {
	return &TrialsScreen{
		coord:    coord,
		registry: registry,
		setID:    setID,
		setTitle: setTitle,
	}
}

func (s *TrialsScreen) Init() tea.Cmd {
	return s.load()
}

func (s *TrialsScreen) load() tea.Cmd {
	return func() tea.Msg {
		list, err := s.registry.List(context.Background(), s.coord.User(), s.setID)
		return trialsLoadedMsg{Trials: list, Err: err}
	}
}

func (s *TrialsScreen) Title() string {
	return "Trials"
}

// CapturingInput reports whether the delete confirm owns the keyboard.
func (s *TrialsScreen) CapturingInput() bool {
	return s.confirmDelete
}

func (s *TrialsScreen) KeyHints() []layout.KeyHint {
	if s.confirmDelete {
		return []layout.KeyHint{
			{Key: "Y", Description: "Delete"},
			{Key: "N", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "D", Description: "Delete"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *TrialsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case trialsLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.trials = msg.Trials
			if s.selected >= len(s.trials) {
				s.selected = len(s.trials) - 1
			}
			if s.selected < 0 {
				s.selected = 0
			}
		}
		s.loaded = true
		return s, nil

	case trialDeletedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		return s, s.load()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *TrialsScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.confirmDelete {
		switch msg.String() {
		case "y", "Y":
			s.confirmDelete = false
			t := s.trials[s.selected]
			return s, func() tea.Msg {
				err := s.coord.DeleteTrial(context.Background(), t.ID)
				return trialDeletedMsg{TrialID: t.ID, Err: err}
			}
		case "n", "N", "esc":
			s.confirmDelete = false
		}
		return s, nil
	}

	switch msg.String() {
	case "esc":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.trials)-1 {
			s.selected++
		}
	case "d":
		if len(s.trials) > 0 {
			s.confirmDelete = true
		}
	}
	return s, nil
}

func (s *TrialsScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading trials...")
	}
	if len(s.trials) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No trials yet for this set.")
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(s.setTitle)))
	b.WriteString("\n\n")

	for i, t := range s.trials {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := prefix + trialLine(t)
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		if t.Completed() {
			style = style.Faint(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)))
		b.WriteString("\n")
	}

	if s.confirmDelete {
		t := s.trials[s.selected]
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
				Render(fmt.Sprintf("Delete trial #%d and its progress? [y/n]", t.Number))))
		b.WriteString("\n")
	}

	return b.String()
}

func trialLine(t *trial.Trial) string {
	dateStr := t.StartedAt.Format("Jan 02, 2006")
	if t.Completed() && t.Summary != nil {
		return fmt.Sprintf("Trial #%-3d %s  completed  %d/%d answered  %d%% accuracy",
			t.Number, dateStr, t.Summary.Answered, t.Summary.Total, t.Summary.AccuracyPct)
	}
	return fmt.Sprintf("Trial #%-3d %s  in progress", t.Number, dateStr)
}
