package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/kadai/internal/nav"
	"github.com/five82/kadai/internal/share"
)

const defaultWidth = 80

func (m Model) lineWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

// renderHeader renders the breadcrumb trail and the source sync status.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	width := m.lineWidth() - 2 // Header padding

	right := m.syncStatus()
	crumbs := m.nav.View().Breadcrumbs
	trail := strings.Join(crumbs[1:], " › ")
	room := max(width-len("kadai")-3-lipgloss.Width(right)-1, 8)
	left := bg.Render("kadai", styles.Logo)
	if trail != "" {
		left += bg.Render(" › ", styles.FaintText) + bg.Render(truncateLeft(trail, room), styles.Text)
	}

	return styles.Header.Width(m.lineWidth()).Render(bg.Spread(left, right, width))
}

// syncStatus summarises remote sources: a spinner while syncing, otherwise
// the time of the last successful sync, plus the number of failing sources.
func (m Model) syncStatus() string {
	if len(m.cfg.Sources) == 0 && len(m.snapshot.Sources) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var parts []string
	switch {
	case m.snapshot.Syncing:
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Render(" syncing…", styles.MutedText))
	case !m.snapshot.LastSynced.IsZero():
		ago := humanize.RelTime(m.snapshot.LastSynced, m.now(), "ago", "from now")
		parts = append(parts, bg.Render("synced "+ago, styles.MutedText))
	default:
		parts = append(parts, bg.Render("not synced", styles.FaintText))
	}
	if n := m.snapshot.ErrorCount(); n > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d source %s", n, plural(n, "error", "errors")), styles.DangerText))
	}
	return bg.Join(parts, 2)
}

type hint struct{ key, desc string }

func (m Model) hints() []hint {
	top := m.nav.Top()
	switch top.Kind {
	case nav.KindConfirm:
		return []hint{{"enter", "Run"}, {"esc", "Cancel"}}
	case nav.KindOutput:
		if m.out != nil && m.out.running {
			return []hint{{"esc", "Stop"}, {"j/k", "Scroll"}, {"y", "Copy"}}
		}
		return []hint{{"esc", "Back"}, {"j/k", "Scroll"}, {"y", "Copy"}}
	case nav.KindShare:
		return m.shareHints()
	}
	if m.nav.Searching() {
		return []hint{{"type", "Filter"}, {"enter", "Open"}, {"↑/↓", "Move"}, {"esc", "Clear"}}
	}
	hs := []hint{{"enter", "Open"}, {"/", "Search"}}
	if m.nav.Depth() > 1 {
		hs = append(hs, hint{"esc", "Back"})
	}
	if len(m.cfg.Sources) > 0 {
		hs = append(hs, hint{"r", "Sync"})
	}
	return append(hs, hint{"s", "Share"}, hint{"?", "Help"}, hint{"q", "Quit"})
}

func (m Model) shareHints() []hint {
	if m.shr == nil {
		return nil
	}
	switch m.shr.flow.Step() {
	case share.StepTestRun:
		return []hint{{"enter", "Test run"}, {"s", "Skip"}}
	case share.StepTestRunOutput:
		if cur, ok := m.shr.flow.Current(); ok && cur.Exited {
			return []hint{{"enter", "Next"}, {"s", "Skip rest"}}
		}
		return []hint{{"s", "Stop and skip"}}
	case share.StepPickDestination:
		return []hint{{"j/k", "Move"}, {"enter", "Choose"}, {"esc", "Cancel"}}
	default:
		if m.shr.flow.OnCustom() {
			return []hint{{"type", "Path"}, {"enter", "Share"}, {"↑", "Back to list"}, {"esc", "Back"}}
		}
		return []hint{{"j/k", "Move"}, {"enter", "Share"}, {"esc", "Back"}}
	}
}

// renderCommandBar renders key hints followed by any one-shot notice.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	colon := bg.Render(":", styles.FaintText)

	var segments []string
	for _, h := range m.hints() {
		segments = append(segments, bg.Render(h.key, styles.AccentText)+colon+bg.Render(h.desc, styles.MutedText))
	}

	switch {
	case m.flash != "":
		style := styles.WarningText
		if m.flashErr {
			style = styles.DangerText
		}
		segments = append(segments, bg.Render(m.flash, style))
	case m.nav.Notice() != "":
		segments = append(segments, bg.Render(m.nav.Notice(), styles.WarningText))
	case m.nav.Top().Kind == nav.KindMenu && !m.nav.Searching():
		segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
	}

	return styles.Header.Width(m.lineWidth()).Render(bg.Join(segments, 2))
}
