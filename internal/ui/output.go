package ui

import (
	"fmt"
	"strings"

	"github.com/five82/kadai/internal/nav"
)

const defaultOutputHeight = 20

// outputHeight is the viewport height: the content area minus the title
// and exit lines.
func (m Model) outputHeight() int {
	h := m.contentHeight()
	if h == 0 {
		return defaultOutputHeight
	}
	return max(h-2, 1)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// exitLine renders "✓ exit code 0" in green or "✗ exit code N" in red.
func (m Model) exitLine(code int) string {
	styles := m.theme.Styles()
	if code == 0 {
		return styles.SuccessText.Render("✓ exit code 0")
	}
	return styles.DangerText.Render(fmt.Sprintf("✗ exit code %d", code))
}

// renderOutput renders the streamed output of the action on screen.
func (m Model) renderOutput(vm nav.ViewModel) string {
	if m.out == nil {
		if vm.Err != nil {
			return m.fill(m.lookupError(vm.Screen.ActionID))
		}
		return m.fill([]string{m.theme.Styles().MutedText.Render("Starting…")})
	}
	styles := m.theme.Styles()
	out := m.out

	title := styles.AccentText.Bold(true).Render("▶ " + out.action.Title())
	if out.running {
		status := "running"
		if out.attached {
			status = "running in the terminal"
		}
		title += "  " + styles.AccentText.Render(m.spinner.View()) + styles.MutedText.Render(" "+status)
	}

	lines := []string{title}
	switch {
	case len(out.lines) > 0:
		lines = append(lines, out.viewport.View())
	case out.exited:
		lines = append(lines, styles.FaintText.Render("(no output)"))
	default:
		lines = append(lines, "")
	}
	if out.exited {
		lines = append(lines, m.exitLine(out.code))
	}
	return m.fill(lines)
}
