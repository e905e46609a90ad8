package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var helpTitles = []string{"Navigation", "Sources", "Output", "General"}

func newHelp(theme Theme) help.Model {
	h := help.New()
	styles := theme.Styles()
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning)).Width(10)
	h.Styles.FullDesc = styles.Text
	h.Styles.FullSeparator = styles.FaintText
	h.Styles.ShortKey = styles.AccentText
	h.Styles.ShortDesc = styles.MutedText
	h.Styles.ShortSeparator = styles.FaintText
	return h
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	groups := m.keys.FullHelp()
	for i, group := range groups {
		if i < len(helpTitles) {
			b.WriteString(styles.AccentText.Bold(true).Render(helpTitles[i]))
			b.WriteString("\n")
		}
		// One column per group keeps the overlay narrow.
		b.WriteString(m.help.FullHelpView([][]key.Binding{group}))
		if i < len(groups)-1 {
			b.WriteString("\n\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	if m.width == 0 || m.height == 0 {
		return modal.Render(b.String())
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal.Render(b.String()))
}
