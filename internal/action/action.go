package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound reports that an action id is not present in the registry.
var ErrNotFound = errors.New("action not found")

// Runtime is the execution strategy inferred from an action file's extension.
type Runtime string

const (
	RuntimeBash       Runtime = "bash"
	RuntimePython     Runtime = "python"
	RuntimeNode       Runtime = "node"
	RuntimeBun        Runtime = "bun"
	RuntimeExecutable Runtime = "executable"
	// RuntimeComponent actions are interactive programs that own the
	// terminal while they run instead of streaming text into kadai.
	RuntimeComponent Runtime = "component"
)

// OwnsTerminal reports whether actions of this runtime take over the terminal.
func (r Runtime) OwnsTerminal() bool {
	return r == RuntimeComponent
}

// Meta is the metadata parsed from an action file's leading comment lines.
type Meta struct {
	Name        string `json:"name"`
	Emoji       string `json:"emoji,omitempty"`
	Description string `json:"description,omitempty"`
	Confirm     bool   `json:"confirm,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
	Fullscreen  bool   `json:"fullscreen,omitempty"`
	Shebang     string `json:"shebang,omitempty"`
}

// Action is one discoverable, runnable script. Actions are values; a refresh
// replaces the whole list rather than editing entries in place.
type Action struct {
	ID       string    `json:"id"`
	Meta     Meta      `json:"meta"`
	FilePath string    `json:"file_path"`
	Category []string  `json:"category"`
	Runtime  Runtime   `json:"runtime"`
	AddedAt  time.Time `json:"added_at,omitempty"`
	// Source is the key of the remote source this action came from; empty
	// for actions discovered in the local actions directory.
	Source string `json:"source,omitempty"`
}

// Name returns the display name.
func (a Action) Name() string {
	return a.Meta.Name
}

// Local reports whether the action lives in the project's own actions dir.
func (a Action) Local() bool {
	return a.Source == ""
}

// Title returns the emoji-prefixed display name.
func (a Action) Title() string {
	if a.Meta.Emoji == "" {
		return a.Meta.Name
	}
	return a.Meta.Emoji + " " + a.Meta.Name
}

// IsNew reports whether the action was added within window of now.
func (a Action) IsNew(now time.Time, window time.Duration) bool {
	if a.AddedAt.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(a.AddedAt) < window
}

// JoinID builds an action id from its category path and file stem.
func JoinID(category []string, stem string) string {
	parts := make([]string, 0, len(category)+1)
	parts = append(parts, category...)
	parts = append(parts, stem)
	return strings.Join(parts, "/")
}

// Find looks up an action by id.
func Find(actions []Action, id string) (Action, error) {
	for _, a := range actions {
		if a.ID == id {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Clone returns an independent copy of the list.
func Clone(actions []Action) []Action {
	if len(actions) == 0 {
		return nil
	}
	dup := make([]Action, len(actions))
	for i, a := range actions {
		a.Category = append([]string(nil), a.Category...)
		dup[i] = a
	}
	return dup
}
