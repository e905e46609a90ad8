package ui

import (
	"errors"
	"os/exec"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/nav"
	"github.com/five82/kadai/internal/runner"
	"github.com/five82/kadai/internal/share"
)

// maxOutputLines bounds the lines kept for one run.
const maxOutputLines = 10000

// eventBatch is how many already-queued events one message may carry.
const eventBatch = 256

// Runner events are tagged with the Seq of the screen that started the run
// (and the share workflow's run id) so output from a run whose screen has
// been left is dropped.
type runEventsMsg struct {
	seq    uint64
	runID  int
	events []runner.Event
	closed bool
}

// execDoneMsg reports a component action that owned the terminal.
type execDoneMsg struct {
	seq  uint64
	code int
	err  error
}

// waitForRunEvent blocks for the next event and then takes whatever else is
// already queued, up to eventBatch.
func waitForRunEvent(seq uint64, runID int, ch <-chan runner.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return runEventsMsg{seq: seq, runID: runID, closed: true}
		}
		msg := runEventsMsg{seq: seq, runID: runID, events: []runner.Event{ev}}
		for len(msg.events) < eventBatch {
			select {
			case ev, ok := <-ch:
				if !ok {
					msg.closed = true
					return msg
				}
				msg.events = append(msg.events, ev)
			default:
				return msg
			}
		}
		return msg
	}
}

// outputState is the run behind an output screen.
type outputState struct {
	seq      uint64
	action   action.Action
	handle   *runner.Handle
	lines    []string
	running  bool
	exited   bool
	code     int
	attached bool
	viewport viewport.Model
}

func (o *outputState) append(lines ...string) {
	follow := o.viewport.AtBottom()
	o.lines = append(o.lines, lines...)
	if extra := len(o.lines) - maxOutputLines; extra > 0 {
		o.lines = append([]string(nil), o.lines[extra:]...)
	}
	o.viewport.SetContent(joinLines(o.lines))
	if follow {
		o.viewport.GotoBottom()
	}
}

// shareState is the workflow behind a share screen.
type shareState struct {
	seq        uint64
	flow       *share.Workflow
	handle     *runner.Handle
	runID      int
	publishing bool
}

func (m *Model) runnerOptions() runner.Options {
	return runner.Options{
		Dir:          m.cfg.Root,
		Env:          m.cfg.Env,
		Interpreters: m.cfg.Interpreters,
		Logger:       m.logger,
	}
}

// reconcile brings running processes in line with the top of the stack:
// leaving a screen kills what it started, arriving on an output or share
// screen sets it up, and the alternate screen follows the current action.
func (m *Model) reconcile() tea.Cmd {
	top := m.nav.Top()
	var cmds []tea.Cmd

	if m.out != nil && m.out.seq != top.Seq {
		m.stopOutput()
	}
	if m.shr != nil && m.shr.seq != top.Seq {
		m.stopShare()
	}

	switch top.Kind {
	case nav.KindOutput:
		if m.out == nil {
			cmds = append(cmds, m.startOutput(top))
		}
	case nav.KindShare:
		if m.shr == nil {
			m.openShare(top)
		}
	}

	want := m.wantsAltScreen()
	if want != m.altScreen {
		m.altScreen = want
		if want {
			cmds = append(cmds, tea.EnterAltScreen)
		} else {
			cmds = append(cmds, tea.ExitAltScreen)
		}
	}
	if cmd := m.startSpinner(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) wantsAltScreen() bool {
	if m.out == nil {
		return false
	}
	return m.out.action.Meta.Fullscreen || m.out.action.Runtime.OwnsTerminal()
}

func (m *Model) startOutput(top nav.Screen) tea.Cmd {
	a, err := action.Find(m.nav.Actions(), top.ActionID)
	if err != nil {
		// The view renders the lookup error; there is nothing to run.
		m.logger.Warn("output screen for unknown action", "id", top.ActionID)
		return nil
	}
	out := &outputState{seq: top.Seq, action: a, running: true}
	out.viewport = viewport.New(m.lineWidth(), m.outputHeight())
	m.out = out
	m.logger.Info("running action", "id", a.ID, "runtime", a.Runtime)

	if a.Runtime.OwnsTerminal() {
		out.attached = true
		cmd, err := runner.Build(a, m.runnerOptions())
		if err != nil {
			m.finishOutput(runner.SpawnFailedCode, "failed to start: "+err.Error())
			return nil
		}
		seq := top.Seq
		return tea.ExecProcess(cmd, func(err error) tea.Msg {
			code, err := execExitCode(err)
			return execDoneMsg{seq: seq, code: code, err: err}
		})
	}

	out.handle = m.start(m.ctx, a, m.runnerOptions())
	return waitForRunEvent(top.Seq, 0, out.handle.Events())
}

func execExitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return runner.SpawnFailedCode, err
}

func (m *Model) finishOutput(code int, lines ...string) {
	if m.out == nil {
		return
	}
	if len(lines) > 0 {
		m.out.append(lines...)
	}
	m.out.running = false
	m.out.exited = true
	m.out.code = code
	m.logger.Info("action finished", "id", m.out.action.ID, "code", code)
}

func (m *Model) stopOutput() {
	if m.out == nil {
		return
	}
	if m.out.handle != nil && m.out.running {
		m.logger.Debug("killing action on screen exit", "id", m.out.action.ID)
		m.out.handle.Kill()
	}
	m.out = nil
}

func (m *Model) openShare(top nav.Screen) {
	vm := m.nav.View()
	flow := share.New(vm.Actions, m.cfg.Sources, m.cfg.Org, m.cfg.User, share.ExistingDirs(m.cfg.ActionsDir))
	m.shr = &shareState{seq: top.Seq, flow: flow}
}

func (m *Model) stopShare() {
	if m.shr == nil {
		return
	}
	if m.shr.handle != nil {
		m.shr.handle.Kill()
	}
	m.shr = nil
}

// applyShareEffect carries out what the workflow asked for after a key.
func (m *Model) applyShareEffect(eff share.Effect) tea.Cmd {
	if m.shr == nil {
		return nil
	}
	if eff.StopRun && m.shr.handle != nil {
		m.shr.handle.Kill()
		m.shr.handle = nil
	}
	if eff.StartRun != nil {
		if m.shr.handle != nil {
			m.shr.handle.Kill()
		}
		m.shr.runID = eff.RunID
		m.shr.handle = m.start(m.ctx, *eff.StartRun, m.runnerOptions())
		return tea.Batch(waitForRunEvent(m.shr.seq, eff.RunID, m.shr.handle.Events()), m.startSpinner())
	}
	if eff.Done {
		if eff.Result == nil {
			m.nav.FinishShare()
			return m.reconcile()
		}
		m.shr.publishing = true
		return publishCmd(*eff.Result, m.cfg)
	}
	return nil
}

// handleRunEvents routes a batch to the output or share screen it belongs
// to, or drops it.
func (m *Model) handleRunEvents(msg runEventsMsg) tea.Cmd {
	switch {
	case m.out != nil && msg.runID == 0 && msg.seq == m.out.seq:
		for _, ev := range msg.events {
			if ev.Exit {
				m.finishOutput(ev.Code)
				continue
			}
			m.out.append(ev.Line)
		}
		if msg.closed && m.out.running {
			// The stream ended without an exit event.
			m.finishOutput(m.out.handle.Wait())
		}
		if msg.closed || !m.out.running {
			return nil
		}
		return waitForRunEvent(msg.seq, 0, m.out.handle.Events())

	case m.shr != nil && msg.runID != 0 && msg.seq == m.shr.seq && msg.runID == m.shr.runID:
		for _, ev := range msg.events {
			if ev.Exit {
				m.shr.flow.Finish(msg.runID, ev.Code)
				m.shr.handle = nil
				continue
			}
			m.shr.flow.AppendLine(msg.runID, ev.Line)
		}
		if msg.closed && m.shr.handle != nil {
			m.shr.flow.Finish(msg.runID, m.shr.handle.Wait())
			m.shr.handle = nil
		}
		if msg.closed || m.shr.handle == nil {
			return nil
		}
		return waitForRunEvent(msg.seq, msg.runID, m.shr.handle.Events())
	}
	return nil
}

func (m *Model) handleExecDone(msg execDoneMsg) {
	if m.out == nil || m.out.seq != msg.seq {
		return
	}
	if msg.err != nil {
		m.finishOutput(msg.code, "failed to start: "+msg.err.Error())
		return
	}
	m.finishOutput(msg.code)
}

// shutdown kills anything still running.
func (m *Model) shutdown() {
	m.stopOutput()
	m.stopShare()
}
