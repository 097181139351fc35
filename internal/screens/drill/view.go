package drill

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examdrill/internal/attempt"
	"github.com/abhisek/examdrill/internal/ui/components"
	"github.com/abhisek/examdrill/internal/ui/theme"
)

func (d *DrillScreen) View(width, height int) string {
	if d.errMsg != "" {
		return renderError(width, d.errMsg)
	}
	if !d.ready {
		return renderLoading(width)
	}
	if d.confirmComplete {
		return renderCompleteConfirm(width)
	}
	return d.renderQuestion(width, height)
}

func (d *DrillScreen) renderQuestion(width, height int) string {
	q := d.currentQuestion()
	if q == nil {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  This question set is empty.")
	}

	var b strings.Builder

	// Status line: position, tally, flags.
	tally := attempt.CountAttempts(d.state)
	infoLeft := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d/%d", d.state.CurrentIndex+1, d.set.Len()))

	accuracy := "--"
	if graded := tally.Correct + tally.Incorrect; graded > 0 {
		accuracy = fmt.Sprintf("%d%%", tally.Correct*100/graded)
	}
	infoRight := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("%s %d  %s %d  %s %d  %s",
			lipgloss.NewStyle().Foreground(theme.Success).Render("✓"), tally.Correct,
			lipgloss.NewStyle().Foreground(theme.Error).Render("✗"), tally.Incorrect,
			lipgloss.NewStyle().Foreground(theme.Accent).Render("⚑"), tally.Flagged,
			accuracy,
		))

	infoLine := infoLeft
	rightPad := width - lipgloss.Width(infoLeft) - lipgloss.Width(infoRight) - 4
	if rightPad > 0 {
		infoLine += strings.Repeat(" ", rightPad) + infoRight
	}
	b.WriteString(infoLine)
	b.WriteString("\n")

	bar := components.NewProgressBar("", float64(tally.Answered)/float64(d.set.Len()), false, width-8)
	b.WriteString("  " + bar.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	// Question text with flag marker.
	a := d.state.Attempt(q.ID)
	text := q.Text
	if a.Flagged {
		text = theme.Flagged.Render("⚑ ") + text
	}
	b.WriteString(lipgloss.NewStyle().
		Width(min(width-4, 90)).
		Foreground(theme.Text).
		Bold(true).
		Render("  " + text))
	b.WriteString("\n\n")

	if q.MultiSelect() {
		b.WriteString(theme.Hint.Render("  Select all that apply (space to toggle, enter to submit)"))
		b.WriteString("\n\n")
	}

	b.WriteString(d.choices.View())
	b.WriteString("\n")

	// Verdict after answering.
	if a.Answered() {
		b.WriteString("  " + renderVerdict(a.Correctness))
		b.WriteString("\n")
	}

	// Note display or editor.
	if d.editingNote {
		b.WriteString("\n  Note: " + d.note.View())
		b.WriteString("\n")
	} else if a.Note != "" {
		b.WriteString("\n" + theme.Hint.Render("  Note: "+a.Note))
		b.WriteString("\n")
	}

	// Explanation block.
	switch {
	case d.explainLoading:
		b.WriteString("\n" + theme.Hint.Render("  Generating explanation..."))
	case d.explainErr != "":
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Error).Render("  "+d.explainErr))
	case d.explanation != "":
		exp := lipgloss.NewStyle().
			Width(min(width-8, 80)).
			Foreground(theme.Text).
			Render(d.explanation)
		b.WriteString("\n" + theme.Card.Render(exp))
	}

	return b.String()
}

func renderVerdict(c attempt.Correctness) string {
	switch c {
	case attempt.Correct:
		return theme.Correct.Render("Correct")
	case attempt.Incorrect:
		return theme.Incorrect.Render("Incorrect")
	default:
		return theme.Hint.Render("Recorded (no answer key for this question)")
	}
}

func renderCompleteConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render("Finish this trial?"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("The trial becomes read-only and its summary is recorded."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Success).
		Render("[Y] Yes, finish"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Render("[N] No, keep going"))
	return b.String()
}

func renderLoading(width int) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n\n  Loading progress...")
}

func renderError(width int, errMsg string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Error).
		Render(fmt.Sprintf("\n\n\n  %s\n\n  Press any key to continue.", errMsg))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
