package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/nav"
)

// contentHeight is the number of rows between the header and command bar.
// Zero means the terminal size is not known yet.
func (m Model) contentHeight() int {
	if m.height <= 0 {
		return 0
	}
	return max(m.height-2, 1)
}

// renderMenu renders the search line and the visible window of items.
func (m Model) renderMenu(vm nav.ViewModel) string {
	styles := m.theme.Styles()
	var lines []string

	if vm.Searching || vm.Query != "" {
		line := styles.AccentText.Render("/") + " " + styles.Text.Render(vm.Query)
		if vm.Searching {
			line += styles.AccentText.Render("█")
		}
		lines = append(lines, line)
	}

	if len(vm.Items) == 0 {
		lines = append(lines, styles.MutedText.Render(vm.Empty))
		return m.fill(lines)
	}

	byID := make(map[string]action.Action, len(m.nav.Actions()))
	for _, a := range m.nav.Actions() {
		byID[a.ID] = a
	}

	labelWidth := 0
	for _, it := range vm.Items {
		if it.Type != action.ItemSeparator {
			labelWidth = max(labelWidth, lipgloss.Width(itemLabel(it)))
		}
	}

	rows := make([]string, len(vm.Items))
	for i, it := range vm.Items {
		rows[i] = m.renderItem(it, byID[it.Value], i == vm.Selected, labelWidth)
	}

	avail := m.contentHeight() - len(lines)
	if m.contentHeight() == 0 {
		avail = 0
	}
	start, end := window(len(rows), vm.Selected, avail)
	lines = append(lines, rows[start:end]...)
	return m.fill(lines)
}

func itemLabel(it action.MenuItem) string {
	switch it.Type {
	case action.ItemCategory:
		return "▸ " + it.Label + "/"
	case action.ItemAction:
		emoji := it.Emoji
		if emoji == "" {
			emoji = "•"
		}
		return emoji + " " + it.Label
	}
	return it.Label
}

func (m Model) renderItem(it action.MenuItem, a action.Action, selected bool, labelWidth int) string {
	styles := m.theme.Styles()

	switch it.Type {
	case action.ItemSeparator:
		if it.Value == action.DividerValue {
			return "  " + styles.FaintText.Render(strings.Repeat("─", max(labelWidth, 12)))
		}
		return "  " + styles.Separator.Render("── "+it.Label+" ──")
	}

	cursor := "  "
	if selected {
		cursor = styles.AccentText.Render("❯ ")
	}

	label := padRight(itemLabel(it), labelWidth)
	switch {
	case selected:
		label = styles.Selected.Render(label)
	case it.Type == action.ItemCategory:
		label = styles.AccentText.Render(label)
	default:
		label = styles.Text.Render(label)
	}

	row := cursor + label
	if it.Type == action.ItemAction {
		if a.Runtime != "" {
			row += " " + styles.RuntimeStyle(a.Runtime).Render(string(a.Runtime))
		}
		if it.IsNew {
			row += " " + styles.SuccessText.Render("new")
		}
		if a.Meta.Confirm {
			row += " " + styles.WarningText.Render("!")
		}
		if !m.hideDesc && it.Description != "" {
			room := m.lineWidth() - lipgloss.Width(row) - 3
			if room > 8 {
				row += "  " + styles.MutedText.Render(truncate(it.Description, room))
			}
		}
	}
	return row
}

// window returns the slice of n rows to show so that selected is visible.
// A height of zero shows everything.
func window(n, selected, height int) (start, end int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start = selected - height/2
	start = max(0, min(start, n-height))
	return start, start + height
}

// fill pads content to the content height so the command bar stays at the
// bottom.
func (m Model) fill(lines []string) string {
	if h := m.contentHeight(); h > 0 {
		for len(lines) < h {
			lines = append(lines, "")
		}
		if len(lines) > h {
			lines = lines[:h]
		}
	}
	return strings.Join(lines, "\n")
}

// renderConfirm asks before running an action marked confirm.
func (m Model) renderConfirm(vm nav.ViewModel) string {
	if vm.Err != nil {
		return m.fill(m.lookupError(vm.Screen.ActionID))
	}
	styles := m.theme.Styles()
	a := vm.Action

	var body []string
	body = append(body, styles.WarningText.Bold(true).Render("Run "+a.Title()+"?"))
	if a.Meta.Description != "" {
		body = append(body, styles.MutedText.Render(a.Meta.Description))
	}
	body = append(body, "", styles.FaintText.Render(a.FilePath))
	body = append(body, "", styles.AccentText.Render("enter")+styles.MutedText.Render(" to run · ")+
		styles.AccentText.Render("esc")+styles.MutedText.Render(" to cancel"))

	return m.fill([]string{styles.Panel.Render(strings.Join(body, "\n"))})
}

func (m Model) lookupError(id string) []string {
	styles := m.theme.Styles()
	return []string{
		styles.DangerText.Render("Action not found: " + id),
		styles.MutedText.Render("press esc to go back"),
	}
}
