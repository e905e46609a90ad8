package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/five82/kadai/internal/action"
)

var defaultInterpreters = map[action.Runtime][]string{
	action.RuntimeBash:      {"bash"},
	action.RuntimePython:    {"python3"},
	action.RuntimeNode:      {"node"},
	action.RuntimeBun:       {"bun", "run"},
	action.RuntimeComponent: {"bun", "run"},
}

// Command returns the argv that runs a. overrides maps a runtime name to a
// command line that replaces the default interpreter for that runtime.
func Command(a action.Action, overrides map[string]string) ([]string, error) {
	if line := strings.TrimSpace(overrides[string(a.Runtime)]); line != "" {
		argv, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("parse interpreter for %s: %w", a.Runtime, err)
		}
		if len(argv) > 0 {
			return append(argv, a.FilePath), nil
		}
	}

	switch a.Runtime {
	case action.RuntimeExecutable:
		return []string{a.FilePath}, nil
	case action.RuntimeBash:
		if argv := shebang(a.Meta.Shebang); len(argv) > 0 {
			return append(argv, a.FilePath), nil
		}
	}

	base, ok := defaultInterpreters[a.Runtime]
	if !ok {
		return nil, fmt.Errorf("unsupported runtime %q", a.Runtime)
	}
	argv := append([]string(nil), base...)
	return append(argv, a.FilePath), nil
}

func shebang(line string) []string {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#!"))
	if line == "" {
		return nil
	}
	argv, err := shlex.Split(line)
	if err != nil {
		return nil
	}
	return argv
}

// Env returns base with overrides applied. Variables named in overrides
// replace any same-named entry in base.
func Env(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[name]; ok {
			continue
		}
		out = append(out, kv)
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, name+"="+overrides[name])
	}
	return out
}
