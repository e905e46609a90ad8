package nav

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/five82/kadai/internal/action"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func act(id, name string, category ...string) action.Action {
	return action.Action{ID: id, Meta: action.Meta{Name: name}, Category: category, Runtime: action.RuntimeBash}
}

func sample() []action.Action {
	reset := act("database/reset", "Reset", "database")
	reset.Meta.Confirm = true
	return []action.Action{
		act("hello", "Hello"),
		reset,
		act("database/seed", "Seed", "database"),
	}
}

func newMachine(actions []action.Action) *Machine {
	return New(actions, Options{Now: func() time.Time { return testNow }, NewWindow: action.DefaultNewWindow})
}

func keys(m *Machine, ks ...Key) Effect {
	var eff Effect
	for _, k := range ks {
		eff = m.HandleKey(k)
	}
	return eff
}

func typeText(m *Machine, s string) {
	for _, r := range s {
		m.HandleKey(Text(string(r)))
	}
}

func TestNavigateIntoCategory(t *testing.T) {
	m := newMachine(sample())
	root := m.Items()
	if len(root) != 2 || root[0].Value != "database" || root[1].Value != "hello" {
		t.Fatalf("root items = %#v", root)
	}

	keys(m, Named(KeyEnter))
	top := m.Top()
	if top.Kind != KindMenu || len(top.Path) != 1 || top.Path[0] != "database" {
		t.Fatalf("top = %v, want menu(database)", top)
	}
	items := m.Items()
	if len(items) != 2 {
		t.Fatalf("database items = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Type != action.ItemAction {
			t.Fatalf("unexpected %v row %q in database", it.Type, it.Label)
		}
	}
}

func TestSelectActionConfirmAndOutput(t *testing.T) {
	m := newMachine(sample())
	keys(m, Named(KeyEnter), Named(KeyEnter))
	if top := m.Top(); top.Kind != KindConfirm || top.ActionID != "database/reset" {
		t.Fatalf("top = %v, want confirm(database/reset)", top)
	}
	depth := m.Depth()

	keys(m, Named(KeyEnter))
	if top := m.Top(); top.Kind != KindOutput || top.ActionID != "database/reset" {
		t.Fatalf("top = %v, want output(database/reset)", top)
	}
	if m.Depth() != depth {
		t.Fatalf("confirm should be replaced, depth %d -> %d", depth, m.Depth())
	}

	keys(m, Named(KeyEsc))
	if top := m.Top(); top.Kind != KindMenu || top.Path[0] != "database" {
		t.Fatalf("top after esc = %v, want menu(database)", top)
	}
}

func TestConfirmCancelPops(t *testing.T) {
	m := newMachine(sample())
	keys(m, Named(KeyEnter), Named(KeyEnter), Named(KeyEsc))
	if top := m.Top(); top.Kind != KindMenu {
		t.Fatalf("top = %v, want menu", top)
	}
}

func TestActionWithoutConfirmGoesStraightToOutput(t *testing.T) {
	m := newMachine(sample())
	keys(m, Named(KeyDown), Named(KeyEnter))
	if top := m.Top(); top.Kind != KindOutput || top.ActionID != "hello" {
		t.Fatalf("top = %v, want output(hello)", top)
	}
}

func TestPopAtRootQuits(t *testing.T) {
	m := newMachine(sample())
	if eff := keys(m, Named(KeyEsc)); eff != EffectQuit {
		t.Fatalf("esc at root = %v, want EffectQuit", eff)
	}
	if m.Depth() != 1 {
		t.Fatalf("depth = %d, want 1", m.Depth())
	}
	if eff := keys(m, Text("q")); eff != EffectQuit {
		t.Fatalf("q = %v, want EffectQuit", eff)
	}
	if eff := keys(m, Text("r")); eff != EffectRefresh {
		t.Fatalf("r = %v, want EffectRefresh", eff)
	}
}

func TestVimKeysAndClamping(t *testing.T) {
	m := newMachine(sample())
	keys(m, Text("k"), Text("k"))
	if m.Selected() != 0 {
		t.Fatalf("selected = %d, want 0", m.Selected())
	}
	keys(m, Text("j"), Text("j"), Text("j"))
	if m.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", m.Selected())
	}
}

func TestSearchMode(t *testing.T) {
	m := newMachine(sample())
	keys(m, Text("/"))
	if !m.Searching() {
		t.Fatal("expected search mode")
	}
	typeText(m, "hel")
	items := m.Items()
	if len(items) == 0 || items[0].Value != "hello" {
		t.Fatalf("items = %#v, want hello first", items)
	}

	// q is text while searching.
	if eff := keys(m, Text("q")); eff != EffectNone {
		t.Fatalf("q while searching = %v", eff)
	}
	if m.Query() != "helq" {
		t.Fatalf("query = %q, want helq", m.Query())
	}
	keys(m, Named(KeyBackspace))
	if m.Query() != "hel" {
		t.Fatalf("query = %q, want hel", m.Query())
	}

	keys(m, Named(KeyEsc))
	if m.Searching() || m.Query() != "" || m.Depth() != 1 {
		t.Fatalf("esc should clear search without popping: searching=%v query=%q depth=%d", m.Searching(), m.Query(), m.Depth())
	}
}

func TestSearchEnterSelectsFilteredItem(t *testing.T) {
	m := newMachine(sample())
	keys(m, Text("/"))
	typeText(m, "hello")
	keys(m, Named(KeyEnter))
	if top := m.Top(); top.Kind != KindOutput || top.ActionID != "hello" {
		t.Fatalf("top = %v, want output(hello)", top)
	}
	if m.Searching() || m.Query() != "" {
		t.Fatal("search state should reset on push")
	}
	keys(m, Named(KeyEsc))
	if m.Searching() || m.Query() != "" || m.Selected() != 0 {
		t.Fatal("search state should reset on pop")
	}
}

func TestHiddenActionsAreListedAndSearchable(t *testing.T) {
	secret := act("secret", "Secret Thing")
	secret.Meta.Hidden = true
	m := newMachine(append(sample(), secret))
	listed := false
	for _, it := range m.Items() {
		if it.Value == "secret" {
			listed = true
		}
	}
	if !listed {
		t.Fatal("hidden action missing from menu")
	}
	keys(m, Text("/"))
	typeText(m, "secret")
	items := m.Items()
	if len(items) != 1 || items[0].Value != "secret" {
		t.Fatalf("items = %#v, want secret", items)
	}
}

func TestItemsFollowActionsAndQuery(t *testing.T) {
	m := newMachine(sample())
	before := len(m.Items())
	if again := len(m.Items()); again != before {
		t.Fatalf("repeated Items() = %d rows, want %d", again, before)
	}

	m.SetActions(append(sample(), act("zzz-extra", "Zzz Extra")))
	items := m.Items()
	if len(items) != before+1 || items[len(items)-1].Value != "zzz-extra" {
		t.Fatalf("items after SetActions = %#v, want zzz-extra appended", items)
	}

	keys(m, Text("/"))
	typeText(m, "zzz")
	items = m.Items()
	if len(items) != 1 || items[0].Value != "zzz-extra" {
		t.Fatalf("filtered items = %#v, want zzz-extra", items)
	}
	keys(m, Named(KeyBackspace), Named(KeyBackspace), Named(KeyBackspace))
	if got := len(m.Items()); got != before+1 {
		t.Fatalf("items after clearing query = %d, want %d", got, before+1)
	}
}

func TestSelectionNeverExceedsItems(t *testing.T) {
	m := newMachine(sample())
	rng := rand.New(rand.NewSource(1))
	ops := []Key{Named(KeyUp), Named(KeyDown), Named(KeyBackspace), Text("e"), Text("x"), Text("s"), Text("z")}
	keys(m, Text("/"))
	for i := 0; i < 500; i++ {
		m.HandleKey(ops[rng.Intn(len(ops))])
		n := len(m.Items())
		if n == 0 && m.Selected() != 0 {
			t.Fatalf("step %d: selected = %d with empty list", i, m.Selected())
		}
		if n > 0 && m.Selected() > n-1 {
			t.Fatalf("step %d: selected = %d, items = %d", i, m.Selected(), n)
		}
	}
}

func TestSetActionsKeepsStackAndClamps(t *testing.T) {
	m := newMachine(sample())
	keys(m, Named(KeyEnter), Named(KeyDown))
	if m.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", m.Selected())
	}
	before := m.Top()

	m.SetActions([]action.Action{act("database/seed", "Seed", "database")})
	if m.Top().Seq != before.Seq {
		t.Fatalf("refresh moved the user: %v -> %v", before, m.Top())
	}
	if m.Selected() != 0 {
		t.Fatalf("selected = %d, want clamp to 0", m.Selected())
	}

	m.SetActions(nil)
	if m.Selected() != 0 {
		t.Fatalf("selected = %d on empty list", m.Selected())
	}
	if vm := m.View(); vm.Empty != "No actions found" {
		t.Fatalf("empty message = %q", vm.Empty)
	}
}

func TestSelectionSkipsSeparators(t *testing.T) {
	fresh := act("fresh", "Fresh")
	fresh.AddedAt = testNow.Add(-time.Hour)
	old := act("old", "Old")
	old.AddedAt = testNow.Add(-30 * 24 * time.Hour)
	m := newMachine([]action.Action{fresh, old})

	items := m.Items()
	if items[0].Type != action.ItemSeparator {
		t.Fatalf("items[0] = %#v, want New separator", items[0])
	}
	if m.Selected() != 1 {
		t.Fatalf("selected = %d, want first action under New", m.Selected())
	}
	keys(m, Named(KeyDown))
	if items[m.Selected()].Type == action.ItemSeparator {
		t.Fatalf("selection landed on separator at %d", m.Selected())
	}
	keys(m, Named(KeyUp), Named(KeyUp), Named(KeyUp))
	if m.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", m.Selected())
	}
}

func TestShare(t *testing.T) {
	m := newMachine(sample())
	keys(m, Text("s"))
	if m.Top().Kind != KindMenu || m.Notice() == "" {
		t.Fatalf("expected notice without share, got top=%v notice=%q", m.Top(), m.Notice())
	}

	fresh := act("new-script", "New Script")
	fresh.AddedAt = testNow.Add(-time.Hour)
	remote := act("team/new", "Remote New", "team")
	remote.AddedAt = testNow.Add(-time.Hour)
	remote.Source = "team"
	m.SetActions(append(sample(), fresh, remote))

	keys(m, Text("s"))
	top := m.Top()
	if top.Kind != KindShare || len(top.ActionIDs) != 1 || top.ActionIDs[0] != "new-script" {
		t.Fatalf("top = %v, want share(new-script)", top)
	}
	if eff := keys(m, Named(KeyEsc)); eff != EffectNone || m.Top().Kind != KindShare {
		t.Fatal("nav must leave share keys to the workflow")
	}
	m.FinishShare()
	if m.Top().Kind != KindMenu {
		t.Fatalf("top = %v after FinishShare", m.Top())
	}
}

func TestAutoNavigate(t *testing.T) {
	t.Run("category", func(t *testing.T) {
		m := newMachine(sample())
		if !m.AutoNavigate([]string{"database"}) {
			t.Fatal("expected navigation")
		}
		if top := m.Top(); top.Kind != KindMenu || top.Path[0] != "database" {
			t.Fatalf("top = %v", top)
		}
	})
	t.Run("action", func(t *testing.T) {
		m := newMachine(sample())
		m.AutoNavigate([]string{"database", "seed"})
		if top := m.Top(); top.Kind != KindOutput || top.ActionID != "database/seed" {
			t.Fatalf("top = %v, want output(database/seed)", top)
		}
		if m.Depth() != 3 {
			t.Fatalf("depth = %d, want 3", m.Depth())
		}
	})
	t.Run("missing", func(t *testing.T) {
		m := newMachine(sample())
		if m.AutoNavigate([]string{"nope", "deeper"}) {
			t.Fatal("expected no navigation")
		}
		if m.Depth() != 1 {
			t.Fatalf("depth = %d", m.Depth())
		}
	})
}

func TestViewLookupError(t *testing.T) {
	m := newMachine(sample())
	m.Push(Screen{Kind: KindOutput, ActionID: "ghost"})
	vm := m.View()
	if !errors.Is(vm.Err, action.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", vm.Err)
	}
	if vm.Action != nil {
		t.Fatal("action should be nil")
	}
}

func TestSeqIsUniquePerScreen(t *testing.T) {
	m := newMachine(sample())
	seen := map[uint64]bool{m.Top().Seq: true}
	keys(m, Named(KeyEnter), Named(KeyEnter))
	for _, s := range m.Stack() {
		if s.Seq == 0 {
			t.Fatalf("screen %v has zero seq", s)
		}
	}
	out := m.Replace(Screen{Kind: KindOutput, ActionID: "database/reset"})
	for _, s := range m.Stack()[:m.Depth()-1] {
		seen[s.Seq] = true
	}
	if seen[out.Seq] {
		t.Fatalf("seq %d reused", out.Seq)
	}
}
