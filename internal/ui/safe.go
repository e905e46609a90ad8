package ui

import (
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/five82/kadai/internal/nav"
)

// safeModel keeps a panic in Update or View from leaving the terminal in raw
// mode. A panic in Update kills running actions and returns to the root
// menu.
type safeModel struct {
	m      Model
	logger *log.Logger
}

func wrapSafe(m Model, logger *log.Logger) safeModel {
	return safeModel{m: m, logger: logger}
}

func (s safeModel) Init() tea.Cmd {
	return s.m.Init()
}

func (s safeModel) Update(msg tea.Msg) (tm tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered", "where", "update", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			s.m.shutdown()
			s.m.showHelp = false
			s.m.nav = nav.New(s.m.snapshot.Actions, nav.Options{Now: s.m.now, NewWindow: s.m.cfg.NewWindow})
			s.m.setFlash("Unexpected error (see kadai logs)", true)
			cmd = nil
			if s.m.altScreen {
				s.m.altScreen = false
				cmd = tea.ExitAltScreen
			}
			tm = s
		}
	}()

	inner, c := s.m.Update(msg)
	if mm, ok := inner.(Model); ok {
		s.m = mm
	}
	return s, c
}

func (s safeModel) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered", "where", "view", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			out = "Unexpected error (see kadai logs)"
		}
	}()
	return s.m.View()
}

var _ tea.Model = safeModel{}
