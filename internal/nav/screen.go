package nav

import "strings"

// Kind tags a Screen variant.
type Kind int

const (
	KindMenu Kind = iota
	KindConfirm
	KindOutput
	KindShare
)

func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindConfirm:
		return "confirm"
	case KindOutput:
		return "output"
	case KindShare:
		return "share"
	default:
		return "unknown"
	}
}

// Screen is one entry of the navigation stack.
type Screen struct {
	Kind      Kind
	Path      []string // menu
	ActionID  string   // confirm, output
	ActionIDs []string // share
	// Seq is unique per pushed or replaced screen. Asynchronous work bound
	// to a screen carries its Seq so late results can be recognised as
	// stale.
	Seq uint64
}

// Runs reports whether a process is attached to this screen while it is on
// top of the stack.
func (s Screen) Runs() bool {
	return s.Kind == KindOutput || s.Kind == KindShare
}

func (s Screen) String() string {
	switch s.Kind {
	case KindMenu:
		return "menu(" + strings.Join(s.Path, "/") + ")"
	case KindShare:
		return "share(" + strings.Join(s.ActionIDs, ",") + ")"
	default:
		return s.Kind.String() + "(" + s.ActionID + ")"
	}
}

// Key is one discrete keypress. Named keys (up, down, enter, esc, backspace,
// ctrl+c, ...) set Name; printable input sets Text.
type Key struct {
	Name string
	Text string
}

const (
	KeyUp        = "up"
	KeyDown      = "down"
	KeyEnter     = "enter"
	KeyEsc       = "esc"
	KeyBackspace = "backspace"
	KeyHome      = "home"
	KeyEnd       = "end"
)

// Named builds a named key.
func Named(name string) Key { return Key{Name: name} }

// Text builds a printable key.
func Text(s string) Key { return Key{Text: s} }

// Is reports whether the key is the named key or the single rune text.
func (k Key) Is(names ...string) bool {
	for _, n := range names {
		if k.Name == n || (k.Name == "" && k.Text == n) {
			return true
		}
	}
	return false
}
