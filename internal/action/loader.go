package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

var runtimes = map[string]Runtime{
	".sh":   RuntimeBash,
	".bash": RuntimeBash,
	".zsh":  RuntimeBash,
	".py":   RuntimePython,
	".js":   RuntimeNode,
	".mjs":  RuntimeNode,
	".cjs":  RuntimeNode,
	".ts":   RuntimeBun,
	".mts":  RuntimeBun,
	".tsx":  RuntimeComponent,
	".jsx":  RuntimeComponent,
	"":      RuntimeExecutable,
	".exe":  RuntimeExecutable,
}

// RuntimeFor maps a file name to its runtime. ok is false for unsupported
// extensions.
func RuntimeFor(name string) (Runtime, bool) {
	rt, ok := runtimes[strings.ToLower(filepath.Ext(name))]
	return rt, ok
}

// LoadOptions tune a registry scan.
type LoadOptions struct {
	// IDPrefix is prepended to every action's category, which namespaces
	// actions loaded from a remote source under its label.
	IDPrefix []string
	// Source is recorded on every loaded action.
	Source string
	Logger *log.Logger
}

// Load walks root depth-first and returns every recognised action. A missing
// root yields an empty list. Files that cannot be read are logged and
// skipped. When two files map to the same id the first one in lexical walk
// order wins.
func Load(ctx context.Context, root string, opts LoadOptions) ([]Action, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat actions dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("actions dir %s is not a directory", root)
	}

	var actions []Action
	seen := make(map[string]string)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn("skipping unreadable entry", "path", path, "err", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if ignored(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		a, ok, err := loadFile(root, path, d, opts)
		if err != nil {
			logger.Warn("skipping action", "path", path, "err", err)
			return nil
		}
		if !ok {
			return nil
		}
		if first, dup := seen[a.ID]; dup {
			logger.Warn("duplicate action id", "id", a.ID, "kept", first, "dropped", path)
			return nil
		}
		seen[a.ID] = path
		actions = append(actions, a)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan actions: %w", walkErr)
	}
	return actions, nil
}

func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func loadFile(root, path string, d fs.DirEntry, opts LoadOptions) (Action, bool, error) {
	rt, ok := RuntimeFor(d.Name())
	if !ok {
		return Action{}, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Action{}, false, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return Action{}, false, nil
	}

	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return Action{}, false, fmt.Errorf("relative path: %w", err)
	}
	category := append([]string(nil), opts.IDPrefix...)
	if rel != "." {
		category = append(category, strings.Split(filepath.ToSlash(rel), "/")...)
	}

	file, err := os.Open(path)
	if err != nil {
		return Action{}, false, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = file.Close() }()

	meta, err := ParseMetadata(d.Name(), file)
	if err != nil {
		return Action{}, false, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))

	return Action{
		ID:       JoinID(category, stem),
		Meta:     meta,
		FilePath: abs,
		Category: category,
		Runtime:  rt,
		AddedAt:  addedAt(path, info),
		Source:   opts.Source,
	}, true, nil
}
