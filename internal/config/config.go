package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// DirName is the project-local directory kadai looks for.
const DirName = ".kadai"

// ErrNoProject is returned when no .kadai directory exists at or above the
// working directory.
var ErrNoProject = errors.New("no .kadai directory found")

// Source is one remote collection of actions.
type Source struct {
	// Repo is "owner/name".
	Repo  string `toml:"repo"`
	Label string `toml:"label"`
	Ref   string `toml:"ref"`
	// Path is the actions directory inside the repository.
	Path string `toml:"path"`
}

// Key identifies the source in the cache and in action ids.
func (s Source) Key() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Repo
}

// Config is the resolved project configuration.
type Config struct {
	// Root is the project root, the parent of ProjectDir.
	Root         string
	ProjectDir   string
	ActionsDir   string
	Env          map[string]string
	Sources      []Source
	AutoNavigate []string
	NewWindow    time.Duration
	Org          string
	User         string
	// Interpreters maps a runtime name to the command line used instead of
	// its default interpreter.
	Interpreters map[string]string
	RefreshEvery time.Duration
	CacheDir     string
}

const (
	configFile        = "config.toml"
	defaultActionsDir = "actions"
	defaultCacheDir   = "~/.cache/kadai"
	defaultLogPath    = "~/.local/state/kadai/kadai.log"
	defaultRef        = "main"
	defaultSourcePath = ".kadai/actions"
	defaultNewDays    = 7
)

// FindProjectDir walks up from start looking for a .kadai directory.
func FindProjectDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s)", ErrNoProject, start)
		}
		dir = parent
	}
}

// Load parses <projectDir>/config.toml, falling back to defaults when the
// file is missing.
func Load(projectDir string) (Config, error) {
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve project dir: %w", err)
	}

	cfg := Config{
		Root:       filepath.Dir(projectDir),
		ProjectDir: projectDir,
		ActionsDir: filepath.Join(projectDir, defaultActionsDir),
		NewWindow:  defaultNewDays * 24 * time.Hour,
		User:       os.Getenv("USER"),
		CacheDir:   mustExpand(defaultCacheDir),
	}

	file, err := os.Open(filepath.Join(projectDir, configFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ActionsDir     string            `toml:"actions_dir"`
		Env            map[string]string `toml:"env"`
		Sources        []Source          `toml:"sources"`
		AutoNavigate   string            `toml:"auto_navigate"`
		NewWindowDays  *int              `toml:"new_window_days"`
		Org            string            `toml:"org"`
		User           string            `toml:"user"`
		Interpreters   map[string]string `toml:"interpreters"`
		RefreshMinutes int               `toml:"refresh_minutes"`
		CacheDir       string            `toml:"cache_dir"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if dir := strings.TrimSpace(raw.ActionsDir); dir != "" {
		if !filepath.IsAbs(dir) && !strings.HasPrefix(dir, "~") {
			dir = filepath.Join(projectDir, dir)
		}
		cfg.ActionsDir = mustExpand(dir)
	}
	cfg.Env = raw.Env
	cfg.Interpreters = raw.Interpreters
	cfg.Org = strings.TrimPrefix(strings.TrimSpace(raw.Org), "@")
	if user := strings.TrimSpace(raw.User); user != "" {
		cfg.User = user
	}
	if nav := strings.Trim(strings.TrimSpace(raw.AutoNavigate), "/"); nav != "" {
		cfg.AutoNavigate = strings.Split(nav, "/")
	}
	if raw.NewWindowDays != nil {
		if *raw.NewWindowDays < 0 {
			return Config{}, fmt.Errorf("new_window_days must not be negative")
		}
		cfg.NewWindow = time.Duration(*raw.NewWindowDays) * 24 * time.Hour
	}
	if raw.RefreshMinutes < 0 {
		return Config{}, fmt.Errorf("refresh_minutes must not be negative")
	}
	cfg.RefreshEvery = time.Duration(raw.RefreshMinutes) * time.Minute
	if dir := strings.TrimSpace(raw.CacheDir); dir != "" {
		cfg.CacheDir = mustExpand(dir)
	}

	sources, err := normalizeSources(raw.Sources)
	if err != nil {
		return Config{}, err
	}
	cfg.Sources = sources

	return cfg, nil
}

func normalizeSources(raw []Source) ([]Source, error) {
	seen := make(map[string]bool)
	out := make([]Source, 0, len(raw))
	for i, src := range raw {
		src.Repo = strings.Trim(strings.TrimSpace(src.Repo), "/")
		owner, name, ok := strings.Cut(src.Repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("sources[%d]: repo %q must be owner/name", i, src.Repo)
		}
		src.Label = strings.TrimSpace(src.Label)
		if src.Label == "" {
			src.Label = name
		}
		if strings.ContainsAny(src.Label, `/\`) || src.Label == "." || src.Label == ".." {
			return nil, fmt.Errorf("sources[%d]: label %q is not usable as a directory name", i, src.Label)
		}
		if src.Ref = strings.TrimSpace(src.Ref); src.Ref == "" {
			src.Ref = defaultRef
		}
		if src.Path = strings.Trim(strings.TrimSpace(src.Path), "/"); src.Path == "" {
			src.Path = defaultSourcePath
		}
		if seen[src.Key()] {
			return nil, fmt.Errorf("sources[%d]: duplicate source %q", i, src.Key())
		}
		seen[src.Key()] = true
		out = append(out, src)
	}
	return out, nil
}

// SourceKeys returns the source keys in configured order.
func (c Config) SourceKeys() []string {
	keys := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		keys[i] = s.Key()
	}
	return keys
}

// LogPath returns the kadai log file, honouring KADAI_LOG.
func LogPath() string {
	if p := strings.TrimSpace(os.Getenv("KADAI_LOG")); p != "" {
		return mustExpand(p)
	}
	return mustExpand(defaultLogPath)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
