package ui

import (
	"fmt"
	"strings"

	"github.com/five82/kadai/internal/share"
)

// renderShare renders the current step of the share workflow.
func (m Model) renderShare() string {
	styles := m.theme.Styles()
	if m.shr == nil {
		return m.fill(nil)
	}
	flow := m.shr.flow
	n := len(flow.Actions())
	lines := []string{styles.Logo.Render(fmt.Sprintf("Share %d new %s", n, plural(n, "action", "actions")))}

	if m.shr.publishing {
		lines = append(lines, styles.MutedText.Render(m.spinner.View()+" Publishing…"))
		return m.fill(lines)
	}

	switch flow.Step() {
	case share.StepTestRun:
		if cur, ok := flow.Current(); ok {
			lines = append(lines,
				styles.Text.Render(fmt.Sprintf("Test run %s? (%d/%d)", cur.Action.Title(), cur.Index+1, cur.Total)),
				styles.MutedText.Render("enter runs it, s skips the remaining test runs"))
		}

	case share.StepTestRunOutput:
		cur, ok := flow.Current()
		if !ok {
			break
		}
		head := styles.AccentText.Render("▶ " + cur.Action.Title())
		if cur.Running {
			head += "  " + styles.AccentText.Render(m.spinner.View()) + styles.MutedText.Render(" running")
		}
		lines = append(lines, head)
		room := 0
		if h := m.contentHeight(); h > 0 {
			room = max(h-len(lines)-1, 1)
		}
		lines = append(lines, lastLines(cur.Lines, room)...)
		if cur.Exited {
			lines = append(lines, m.exitLine(cur.ExitCode))
		}

	case share.StepPickDestination:
		lines = append(lines, styles.Text.Render("Where should they go?"))
		lines = append(lines, m.renderOptions(flow.DestinationChoices(), flow.Selected(), "")...)

	case share.StepPickPath:
		dest := "this project"
		if d := flow.Destination(); d != nil {
			dest = d.Repo
		}
		lines = append(lines, styles.Text.Render("Which directory in "+dest+"?"))
		lines = append(lines, m.renderOptions(flow.PathChoices(), flow.Selected(), flow.Custom())...)
	}
	return m.fill(lines)
}

func (m Model) renderOptions(opts []share.Option, selected int, custom string) []string {
	styles := m.theme.Styles()
	rows := make([]string, 0, len(opts))
	for i, opt := range opts {
		cursor := "  "
		if i == selected {
			cursor = styles.AccentText.Render("❯ ")
		}
		label := opt.Label
		if opt.Value == share.CustomValue {
			label = "Custom path: " + custom
			if i == selected {
				label += "█"
			}
		}
		if i == selected {
			rows = append(rows, cursor+styles.Selected.Render(label))
		} else {
			rows = append(rows, cursor+styles.Text.Render(strings.TrimSpace(label)))
		}
	}
	return rows
}
