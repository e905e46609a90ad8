package app

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/logging"
)

type stubFetcher struct {
	archive []byte
	err     error
}

func (f stubFetcher) FetchArchive(context.Context, string, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.archive)), nil
}

func opsTarball(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"ops-main/.kadai/actions/deploy.sh": "#!/bin/sh\n# kadai:name Deploy\n",
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), ModTime: time.Now(), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := io.WriteString(tw, body); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func project(t *testing.T, sources ...config.Source) config.Config {
	t.Helper()
	root := t.TempDir()
	actions := filepath.Join(root, ".kadai", "actions")
	if err := os.MkdirAll(filepath.Join(actions, "db"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, body := range map[string]string{
		"hello.sh":   "#!/bin/sh\necho hi\n",
		"db/seed.sh": "#!/bin/sh\necho seed\n",
	} {
		if err := os.WriteFile(filepath.Join(actions, name), []byte(body), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	cfg, err := config.Load(filepath.Join(root, ".kadai"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Sources = sources
	cfg.CacheDir = filepath.Join(root, "cache")
	return cfg
}

func ids(s *Session) []string {
	var out []string
	for _, a := range s.Actions() {
		out = append(out, a.ID)
	}
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var opsSource = config.Source{Repo: "acme/ops", Label: "ops", Ref: "main", Path: ".kadai/actions"}

func TestOpenSession_LocalOnly(t *testing.T) {
	cfg := project(t)
	s, err := OpenSession(context.Background(), SessionOptions{Config: cfg, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer s.Close()

	if s.Syncs() {
		t.Fatal("session without sources should not sync")
	}
	if got, want := ids(s), []string{"db/seed", "hello"}; !equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync without sources: %v", err)
	}
}

func TestSession_SyncMergesSources(t *testing.T) {
	cfg := project(t, opsSource)
	s, err := OpenSession(context.Background(), SessionOptions{
		Config:  cfg,
		Fetcher: stubFetcher{archive: opsTarball(t)},
	})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer s.Close()

	if !s.Syncs() {
		t.Fatal("expected sync to be enabled")
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got, want := ids(s), []string{"db/seed", "hello", "ops/deploy"}; !equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	if snap := s.Store.Snapshot(); snap.LastSynced.IsZero() {
		t.Fatal("LastSynced not recorded")
	}
}

func TestSession_CachedSourcesSurviveRestart(t *testing.T) {
	cfg := project(t, opsSource)
	first, err := OpenSession(context.Background(), SessionOptions{Config: cfg, Fetcher: stubFetcher{archive: opsTarball(t)}})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := first.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	offline := errors.New("offline")
	second, err := OpenSession(context.Background(), SessionOptions{Config: cfg, Fetcher: stubFetcher{err: offline}})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer second.Close()

	if got, want := ids(second), []string{"db/seed", "hello", "ops/deploy"}; !equal(got, want) {
		t.Fatalf("cached ids = %v, want %v", got, want)
	}
	if err := second.Sync(context.Background()); !errors.Is(err, offline) {
		t.Fatalf("Sync err = %v, want offline", err)
	}
	snap := second.Store.Snapshot()
	if snap.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", snap.ErrorCount())
	}
	if got, want := ids(second), []string{"db/seed", "hello", "ops/deploy"}; !equal(got, want) {
		t.Fatalf("ids after failed sync = %v, want %v", got, want)
	}
}

func TestOpenSession_NoSyncSkipsCache(t *testing.T) {
	cfg := project(t, opsSource)
	s, err := OpenSession(context.Background(), SessionOptions{Config: cfg, NoSync: true})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer s.Close()

	if s.Syncs() {
		t.Fatal("NoSync session should not sync")
	}
	if _, err := os.Stat(cfg.CacheDir); !os.IsNotExist(err) {
		t.Fatalf("cache dir created with NoSync: %v", err)
	}
}

func TestSession_RefreshPicksUpNewLocalActions(t *testing.T) {
	cfg := project(t)
	s, err := OpenSession(context.Background(), SessionOptions{Config: cfg})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer s.Close()

	if err := os.WriteFile(filepath.Join(cfg.ActionsDir, "build.sh"), []byte("echo build\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got, want := ids(s), []string{"build", "db/seed", "hello"}; !equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

func TestRun_NilSession(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil session")
	}
}
