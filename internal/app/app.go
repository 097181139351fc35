package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdrill/internal/explain"
	"github.com/abhisek/examdrill/internal/questionset"
	"github.com/abhisek/examdrill/internal/router"
	"github.com/abhisek/examdrill/internal/screen"
	"github.com/abhisek/examdrill/internal/screens/drill"
	"github.com/abhisek/examdrill/internal/syncer"
	"github.com/abhisek/examdrill/internal/trial"
	"github.com/abhisek/examdrill/internal/ui/layout"
)

// Options carries the wired services the UI runs on.
type Options struct {
	Set         *questionset.Set
	Coordinator *syncer.Coordinator
	Registry    *trial.Registry
	Explain     *explain.Service
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	drillScreen := drill.New(opts.Set, opts.Coordinator, opts.Registry, opts.Explain)
	return AppModel{
		router: router.New(drillScreen),
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			// Screens holding a text editor or a confirm prompt handle
			// esc themselves; otherwise it navigates back.
			if capturer, ok := m.router.Active().(screen.InputCapturer); ok && capturer.CapturingInput() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	status := ""
	if active != nil {
		title = active.Title()
	}
	if ds, ok := active.(*drill.DrillScreen); ok {
		status = ds.SyncStatus()
	}

	header := layout.RenderHeader(title, status, m.width)

	footerHints := []layout.KeyHint{
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), footerHints...)
	}
	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
