package share

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/kadai/internal/config"
)

// ExistingDirs lists the visible directories directly below actionsDir.
func ExistingDirs(actionsDir string) []string {
	entries, err := os.ReadDir(actionsDir)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)
	return dirs
}

// relPath validates a chosen path and returns it relative to "actions".
func relPath(p string) (string, error) {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" || path.IsAbs(p) {
		return "", fmt.Errorf("invalid target path %q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("target path %q escapes the actions dir", p)
		}
	}
	clean := path.Clean(p)
	if clean == "actions" {
		return "", nil
	}
	return strings.TrimPrefix(clean, "actions/"), nil
}

// Publish carries out res and returns the directory the files ended up in.
// Keeping actions local moves them below cfg.ActionsDir. A remote
// destination stages copies under <CacheDir>/outbox/<source>/ laid out as
// they should appear in the destination repository.
func Publish(res Result, cfg config.Config) (string, error) {
	rel, err := relPath(res.Path)
	if err != nil {
		return "", err
	}

	var dest string
	if res.Destination == nil {
		dest = filepath.Join(cfg.ActionsDir, filepath.FromSlash(rel))
	} else {
		dest = filepath.Join(cfg.CacheDir, "outbox", res.Destination.Key(),
			filepath.FromSlash(res.Destination.Path), filepath.FromSlash(rel))
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}

	for _, a := range res.Actions {
		target := filepath.Join(dest, filepath.Base(a.FilePath))
		if filepath.Clean(a.FilePath) == target {
			continue
		}
		if _, err := os.Stat(target); err == nil {
			return "", fmt.Errorf("%s already exists", target)
		}
		if res.Destination == nil {
			err = os.Rename(a.FilePath, target)
		} else {
			err = copyFile(a.FilePath, target)
		}
		if err != nil {
			return "", fmt.Errorf("publish %s: %w", a.ID, err)
		}
	}
	return dest, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}
