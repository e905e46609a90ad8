package nav

import (
	"time"
	"unicode/utf8"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/search"
)

// Effect tells the caller what to do after a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectQuit ends the program.
	EffectQuit
	// EffectRefresh asks for a background source refresh.
	EffectRefresh
)

// Options tune a Machine.
type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// NewWindow is how long an action counts as new. Zero disables the
	// "New" section.
	NewWindow time.Duration
}

// Machine owns the screen stack and the search state of the menu on top of
// it. It is not safe for concurrent use; the UI event loop is its only
// writer.
type Machine struct {
	actions []action.Action
	stack   []Screen
	seq     uint64

	searching bool
	query     string
	selected  int

	now    func() time.Time
	window time.Duration
	notice string

	version uint64
	cache   itemCache
}

// itemCache holds the filtered rows of the top menu until the actions, the
// top screen or the query change.
type itemCache struct {
	valid   bool
	version uint64
	seq     uint64
	query   string
	items   []action.MenuItem
}

// New returns a machine showing the root menu.
func New(actions []action.Action, opts Options) *Machine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Machine{actions: actions, now: opts.Now, window: opts.NewWindow}
	m.stack = []Screen{m.screen(Screen{Kind: KindMenu})}
	m.clamp()
	return m
}

func (m *Machine) screen(s Screen) Screen {
	m.seq++
	s.Seq = m.seq
	return s
}

// Top returns the screen on top of the stack.
func (m *Machine) Top() Screen {
	return m.stack[len(m.stack)-1]
}

// Depth returns the stack size. It is never below one.
func (m *Machine) Depth() int {
	return len(m.stack)
}

// Stack returns a copy of the stack, root first.
func (m *Machine) Stack() []Screen {
	return append([]Screen(nil), m.stack...)
}

// Actions returns the list the machine currently navigates.
func (m *Machine) Actions() []action.Action {
	return m.actions
}

// SetActions swaps in a new action list. The stack is left alone so a
// background refresh never moves the user; only the selection is clamped.
func (m *Machine) SetActions(actions []action.Action) {
	m.actions = actions
	m.version++
	m.clamp()
}

func (m *Machine) Searching() bool { return m.searching }
func (m *Machine) Query() string   { return m.query }
func (m *Machine) Selected() int   { return m.selected }

// Notice returns a one-shot message for the status line. It is cleared by
// the next key.
func (m *Machine) Notice() string { return m.notice }

// Items returns the rows of the menu on top of the stack after filtering. It
// is empty when the top screen is not a menu.
func (m *Machine) Items() []action.MenuItem {
	top := m.Top()
	if top.Kind != KindMenu {
		return nil
	}
	c := &m.cache
	if c.valid && c.version == m.version && c.seq == top.Seq && c.query == m.query {
		return c.items
	}
	items := action.BuildMenuItems(m.actions, top.Path, m.now(), m.window)
	if m.query != "" {
		items = search.Filter(items, m.query)
	}
	*c = itemCache{valid: true, version: m.version, seq: top.Seq, query: m.query, items: items}
	return items
}

// Push puts s on top of the stack and resets the search state.
func (m *Machine) Push(s Screen) Screen {
	s = m.screen(s)
	m.stack = append(m.stack, s)
	m.reset()
	return s
}

// Replace swaps the top of the stack for s.
func (m *Machine) Replace(s Screen) Screen {
	s = m.screen(s)
	m.stack[len(m.stack)-1] = s
	m.reset()
	return s
}

// Pop removes the top screen. Popping the root menu quits instead.
func (m *Machine) Pop() Effect {
	if len(m.stack) == 1 {
		return EffectQuit
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.reset()
	return EffectNone
}

func (m *Machine) reset() {
	m.searching = false
	m.query = ""
	m.selected = 0
	m.clamp()
}

// HandleKey applies one keypress to the screen on top of the stack.
func (m *Machine) HandleKey(k Key) Effect {
	m.notice = ""
	switch m.Top().Kind {
	case KindMenu:
		if m.searching {
			return m.searchKey(k)
		}
		return m.menuKey(k)
	case KindConfirm:
		switch {
		case k.Is(KeyEnter):
			m.Replace(Screen{Kind: KindOutput, ActionID: m.Top().ActionID})
		case k.Is(KeyEsc):
			return m.Pop()
		}
	case KindOutput:
		if k.Is(KeyEsc) {
			return m.Pop()
		}
	case KindShare:
		// The share workflow consumes its own keys and pops via FinishShare.
	}
	return EffectNone
}

func (m *Machine) menuKey(k Key) Effect {
	switch {
	case k.Is(KeyUp, "k"):
		m.move(-1)
	case k.Is(KeyDown, "j"):
		m.move(1)
	case k.Is(KeyHome, "g"):
		m.selected = 0
		m.clamp()
	case k.Is(KeyEnd, "G"):
		m.selected = len(m.Items()) - 1
		m.clampBackward()
	case k.Is(KeyEnter):
		m.choose()
	case k.Is("/"):
		m.searching = true
	case k.Is(KeyEsc):
		return m.Pop()
	case k.Is("q"):
		return EffectQuit
	case k.Is("r"):
		return EffectRefresh
	case k.Is("s"):
		m.openShare()
	}
	return EffectNone
}

func (m *Machine) searchKey(k Key) Effect {
	switch {
	case k.Is(KeyEsc):
		m.searching = false
		m.query = ""
		m.selected = 0
		m.clamp()
	case k.Is(KeyEnter):
		m.choose()
	case k.Is(KeyUp):
		m.move(-1)
	case k.Is(KeyDown):
		m.move(1)
	case k.Is(KeyBackspace):
		if m.query != "" {
			_, size := utf8.DecodeLastRuneInString(m.query)
			m.query = m.query[:len(m.query)-size]
		}
		m.selected = 0
		m.clamp()
	case k.Name == "" && k.Text != "":
		m.query += k.Text
		m.selected = 0
		m.clamp()
	}
	return EffectNone
}

// move steps the selection by delta, skipping separator rows. The index
// stays put when no selectable row exists in that direction.
func (m *Machine) move(delta int) {
	items := m.Items()
	for i := m.selected + delta; i >= 0 && i < len(items); i += delta {
		if items[i].Type != action.ItemSeparator {
			m.selected = i
			return
		}
	}
}

// clamp keeps the selection inside the filtered list and off separators.
func (m *Machine) clamp() {
	items := m.Items()
	if len(items) == 0 {
		m.selected = 0
		return
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected > len(items)-1 {
		m.selected = len(items) - 1
	}
	if items[m.selected].Type != action.ItemSeparator {
		return
	}
	for i := m.selected; i < len(items); i++ {
		if items[i].Type != action.ItemSeparator {
			m.selected = i
			return
		}
	}
	m.clampBackward()
}

func (m *Machine) clampBackward() {
	items := m.Items()
	if len(items) == 0 {
		m.selected = 0
		return
	}
	if m.selected > len(items)-1 {
		m.selected = len(items) - 1
	}
	for i := m.selected; i >= 0; i-- {
		if items[i].Type != action.ItemSeparator {
			m.selected = i
			return
		}
	}
	m.selected = 0
}

func (m *Machine) choose() {
	items := m.Items()
	if m.selected < 0 || m.selected >= len(items) {
		return
	}
	item := items[m.selected]
	switch item.Type {
	case action.ItemCategory:
		path := append(append([]string(nil), m.Top().Path...), item.Value)
		m.Push(Screen{Kind: KindMenu, Path: path})
	case action.ItemAction:
		m.open(item.Value)
	}
}

// open pushes the confirm or output screen for id. Unknown ids still get an
// output screen so the lookup failure is rendered inline.
func (m *Machine) open(id string) {
	a, err := action.Find(m.actions, id)
	if err == nil && a.Meta.Confirm {
		m.Push(Screen{Kind: KindConfirm, ActionID: id})
		return
	}
	m.Push(Screen{Kind: KindOutput, ActionID: id})
}

// NewLocal returns the ids of local actions added within the recency window.
func (m *Machine) NewLocal() []string {
	now := m.now()
	var ids []string
	for _, a := range m.actions {
		if a.Local() && a.IsNew(now, m.window) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (m *Machine) openShare() {
	ids := m.NewLocal()
	if len(ids) == 0 {
		m.notice = "No new actions to share"
		return
	}
	m.Push(Screen{Kind: KindShare, ActionIDs: ids})
}

// FinishShare pops the share screen once its workflow has completed or been
// cancelled.
func (m *Machine) FinishShare() {
	if m.Top().Kind == KindShare {
		m.Pop()
	}
}

// AutoNavigate opens the deepest existing menu along path. When the whole
// path names an action, that action is opened as if it had been selected.
// It reports whether anything was pushed.
func (m *Machine) AutoNavigate(path []string) bool {
	if len(path) == 0 {
		return false
	}
	if a, err := action.Find(m.actions, action.JoinID(path[:len(path)-1], path[len(path)-1])); err == nil {
		for i := 1; i <= len(a.Category); i++ {
			m.Push(Screen{Kind: KindMenu, Path: append([]string(nil), a.Category[:i]...)})
		}
		m.open(a.ID)
		return true
	}
	pushed := false
	for i := 1; i <= len(path); i++ {
		if !m.categoryExists(path[:i]) {
			break
		}
		m.Push(Screen{Kind: KindMenu, Path: append([]string(nil), path[:i]...)})
		pushed = true
	}
	return pushed
}

func (m *Machine) categoryExists(path []string) bool {
	for _, a := range m.actions {
		if len(a.Category) < len(path) {
			continue
		}
		match := true
		for i, seg := range path {
			if a.Category[i] != seg {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
