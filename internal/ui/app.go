package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/keys"
	"github.com/five82/kadai/internal/nav"
	"github.com/five82/kadai/internal/prefs"
	"github.com/five82/kadai/internal/runner"
	"github.com/five82/kadai/internal/share"
	"github.com/five82/kadai/internal/state"
)

// StartFunc launches an action. runner.Start is the default.
type StartFunc func(ctx context.Context, a action.Action, opts runner.Options) *runner.Handle

// Options configures the UI.
type Options struct {
	Context context.Context
	Store   *state.Store
	Config  config.Config
	Logger  *log.Logger

	ThemeName        string
	HideDescriptions bool
	PrefsPath        string

	// Refresh rescans local actions and starts a source sync. It must not
	// block.
	Refresh func()
	Start   StartFunc
	Now     func() time.Time

	// Input overrides the keyboard source. Run picks a keypress splitter
	// for piped stdin when this is nil.
	Input  io.Reader
	Output io.Writer
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	store     *state.Store
	cfg       config.Config
	logger    *log.Logger
	prefsPath string
	refresh   func()
	start     StartFunc
	now       func() time.Time

	keys     keyMap
	help     help.Model
	theme    Theme
	hideDesc bool
	width    int
	height   int
	showHelp bool

	nav      *nav.Machine
	snapshot state.Snapshot
	updates  <-chan struct{}

	out       *outputState
	shr       *shareState
	altScreen bool

	spinner  spinner.Model
	spinning bool

	flash    string
	flashErr bool
}

// New creates the model and applies the configured auto-navigation.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	start := opts.Start
	if start == nil {
		start = runner.Start
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Store
	if store == nil {
		store = state.NewStore(opts.Config.SourceKeys())
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(opts.ThemeName)
	snap := store.Snapshot()
	machine := nav.New(snap.Actions, nav.Options{Now: now, NewWindow: opts.Config.NewWindow})
	if len(opts.Config.AutoNavigate) > 0 && !machine.AutoNavigate(opts.Config.AutoNavigate) {
		logger.Warn("auto_navigate path not found", "path", strings.Join(opts.Config.AutoNavigate, "/"))
	}

	return Model{
		ctx:       ctx,
		store:     store,
		cfg:       opts.Config,
		logger:    logger,
		prefsPath: prefsPath,
		refresh:   opts.Refresh,
		start:     start,
		now:       now,
		keys:      DefaultKeyMap(),
		help:      newHelp(theme),
		theme:     theme,
		hideDesc:  opts.HideDescriptions,
		nav:       machine,
		snapshot:  snap,
		updates:   store.Subscribe(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Messages

type startupMsg struct{}

type storeChangedMsg struct{}

type publishedMsg struct {
	dest  string
	count int
	err   error
}

type copiedMsg struct {
	lines int
	err   error
}

// Commands

func waitForStore(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func publishCmd(res share.Result, cfg config.Config) tea.Cmd {
	return func() tea.Msg {
		dest, err := share.Publish(res, cfg)
		return publishedMsg{dest: dest, count: len(res.Actions), err: err}
	}
}

func copyCmd(lines []string) tea.Cmd {
	text := strings.Join(lines, "\n")
	return func() tea.Msg {
		return copiedMsg{lines: len(lines), err: clipboard.WriteAll(text)}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return startupMsg{} },
		waitForStore(m.updates),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.out != nil {
			m.out.viewport.Width = msg.Width
			m.out.viewport.Height = m.outputHeight()
		}
		return m, nil

	case startupMsg:
		return m, m.reconcile()

	case storeChangedMsg:
		m.snapshot = m.store.Snapshot()
		m.nav.SetActions(m.snapshot.Actions)
		return m, tea.Batch(waitForStore(m.updates), m.startSpinner())

	case runEventsMsg:
		return m, m.handleRunEvents(msg)

	case execDoneMsg:
		m.handleExecDone(msg)
		return m, nil

	case publishedMsg:
		return m.handlePublished(msg)

	case copiedMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("Copy failed: %v", msg.err), true)
		} else {
			m.setFlash(fmt.Sprintf("Copied %d lines", msg.lines), false)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	return b.String()
}

func (m Model) renderContent() string {
	vm := m.nav.View()
	switch vm.Screen.Kind {
	case nav.KindConfirm:
		return m.renderConfirm(vm)
	case nav.KindOutput:
		return m.renderOutput(vm)
	case nav.KindShare:
		return m.renderShare()
	default:
		return m.renderMenu(vm)
	}
}

// keyFromMsg converts a bubbletea key into the navigation key vocabulary.
func keyFromMsg(msg tea.KeyMsg) nav.Key {
	switch msg.Type {
	case tea.KeyRunes:
		return nav.Text(string(msg.Runes))
	case tea.KeySpace:
		return nav.Text(" ")
	default:
		return nav.Named(msg.String())
	}
}

// textEntry reports whether printable keys are being typed into a field
// and must not trigger shortcuts.
func (m Model) textEntry() bool {
	switch m.nav.Top().Kind {
	case nav.KindMenu:
		return m.nav.Searching()
	case nav.KindShare:
		return m.shr != nil && m.shr.flow.OnCustom()
	}
	return false
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""

	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if !m.textEntry() && key.Matches(msg, m.keys.Help) {
		m.showHelp = true
		return m, nil
	}

	switch m.nav.Top().Kind {
	case nav.KindMenu:
		if !m.nav.Searching() {
			switch {
			case key.Matches(msg, m.keys.CycleTheme):
				m.cycleTheme()
				return m, nil
			case key.Matches(msg, m.keys.ToggleDesc):
				m.hideDesc = !m.hideDesc
				m.savePrefs()
				return m, nil
			}
		}
	case nav.KindOutput:
		if m.out != nil {
			switch {
			case key.Matches(msg, m.keys.Copy):
				if len(m.out.lines) == 0 {
					m.setFlash("Nothing to copy", false)
					return m, nil
				}
				return m, copyCmd(m.out.lines)
			case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown),
				key.Matches(msg, m.keys.Top):
				var cmd tea.Cmd
				if key.Matches(msg, m.keys.Top) {
					m.out.viewport.GotoTop()
				} else {
					m.out.viewport, cmd = m.out.viewport.Update(msg)
				}
				return m, cmd
			case key.Matches(msg, m.keys.Bottom):
				m.out.viewport.GotoBottom()
				return m, nil
			}
		}
	case nav.KindShare:
		if m.shr == nil || m.shr.publishing {
			return m, nil
		}
		eff := m.shr.flow.HandleKey(keyFromMsg(msg))
		return m, m.applyShareEffect(eff)
	}

	switch m.nav.HandleKey(keyFromMsg(msg)) {
	case nav.EffectQuit:
		return m.quit()
	case nav.EffectRefresh:
		return m, m.requestRefresh()
	}
	return m, m.reconcile()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.shutdown()
	if m.altScreen {
		m.altScreen = false
		return m, tea.Sequence(tea.ExitAltScreen, tea.Quit)
	}
	return m, tea.Quit
}

func (m *Model) requestRefresh() tea.Cmd {
	if m.refresh == nil {
		m.setFlash("Nothing to sync", false)
		return nil
	}
	m.logger.Info("manual refresh requested")
	m.refresh()
	m.setFlash("Syncing…", false)
	return nil
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.help = newHelp(m.theme)
	m.help.Width = m.width
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, HideDescriptions: m.hideDesc}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", "err", err)
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m Model) handlePublished(msg publishedMsg) (tea.Model, tea.Cmd) {
	if m.shr != nil {
		m.shr.publishing = false
	}
	if msg.err != nil {
		m.logger.Error("share failed", "err", msg.err)
		m.setFlash(fmt.Sprintf("Share failed: %v", msg.err), true)
	} else {
		m.logger.Info("shared actions", "count", msg.count, "dest", msg.dest)
		m.setFlash(fmt.Sprintf("Shared %d %s to %s", msg.count, plural(msg.count, "action", "actions"), msg.dest), false)
		if m.refresh != nil {
			m.refresh()
		}
	}
	m.nav.FinishShare()
	return m, m.reconcile()
}

func (m *Model) busy() bool {
	if m.snapshot.Syncing {
		return true
	}
	if m.out != nil && m.out.running {
		return true
	}
	return m.shr != nil && m.shr.handle != nil
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
		opts.Context = ctx
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if input := inputFor(opts.Input, os.Stdin); input != nil {
		programOpts = append(programOpts, tea.WithInput(input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(wrapSafe(m, logger), programOpts...).Run()
	if sm, ok := final.(safeModel); ok {
		sm.m.shutdown()
	}
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// inputFor returns the reader to use instead of bubbletea's default TTY
// input. Piped stdin arrives in arbitrary chunks, so it goes through the
// keypress splitter.
func inputFor(explicit io.Reader, stdin *os.File) io.Reader {
	if explicit != nil {
		return explicit
	}
	if stdin == nil || isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd()) {
		return nil
	}
	return keys.NewReader(stdin)
}
