// Package sources keeps remote action sources cached on disk and refreshes
// them in the background.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/remote"
	"github.com/five82/kadai/internal/state"
)

// Sink receives snapshots and sync status. *state.Store implements it.
type Sink interface {
	SetExternal(key string, snap state.SourceSnapshot, fresh bool)
	SetSyncing(bool)
	RecordSyncError(key string, err error)
}

var _ Sink = (*state.Store)(nil)

// maxParallel bounds concurrent downloads.
const maxParallel = 4

// Syncer refreshes configured sources into a Cache.
type Syncer struct {
	Cache   *Cache
	Fetcher remote.ArchiveFetcher
	Sources []config.Source
	Logger  *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Syncer) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// PublishCached sends every configured source's cached snapshot to sink
// without touching the network.
func (s *Syncer) PublishCached(ctx context.Context, sink Sink) {
	for _, src := range s.Sources {
		snap, ok, err := s.Cache.Load(ctx, src.Key())
		if err != nil {
			s.logger().Warn("cached source unreadable", "source", src.Key(), "err", err)
			continue
		}
		if ok {
			sink.SetExternal(src.Key(), snap, false)
		}
	}
}

// Run publishes cached snapshots, then refreshes every source in parallel.
// The syncing flag is set for the duration. A failed source keeps its cached
// snapshot and has its error recorded; the other sources are unaffected.
// The returned error joins the per-source failures.
func (s *Syncer) Run(ctx context.Context, sink Sink) error {
	s.PublishCached(ctx, sink)
	if len(s.Sources) == 0 {
		return nil
	}

	sink.SetSyncing(true)
	defer sink.SetSyncing(false)

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for _, src := range s.Sources {
		g.Go(func() error {
			snap, err := s.Refresh(ctx, src)
			if err != nil {
				s.logger().Warn("source refresh failed", "source", src.Key(), "repo", src.Repo, "err", err)
				sink.RecordSyncError(src.Key(), err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.Key(), err))
				mu.Unlock()
				return nil
			}
			s.logger().Info("source refreshed", "source", src.Key(), "actions", len(snap.Actions))
			sink.SetExternal(src.Key(), snap, true)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Refresh downloads src, swaps in the new checkout and saves its snapshot.
// On failure the previous checkout and snapshot stay in place.
func (s *Syncer) Refresh(ctx context.Context, src config.Source) (state.SourceSnapshot, error) {
	key := src.Key()
	body, err := s.Fetcher.FetchArchive(ctx, src.Repo, src.Ref)
	if err != nil {
		return state.SourceSnapshot{}, err
	}
	defer body.Close()

	staging, err := os.MkdirTemp(s.Cache.stagingRoot(), ".tmp-"+key+"-")
	if err != nil {
		return state.SourceSnapshot{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	mtimes, err := extract(body, src.Path, staging)
	if err != nil {
		return state.SourceSnapshot{}, err
	}

	final := s.Cache.CheckoutDir(key)
	restore, err := swapDir(staging, final)
	if err != nil {
		return state.SourceSnapshot{}, err
	}

	actions, err := action.Load(ctx, final, action.LoadOptions{
		IDPrefix: []string{key},
		Source:   key,
		Logger:   s.logger().With("source", key),
	})
	if err != nil {
		restore()
		return state.SourceSnapshot{}, err
	}
	for i, a := range actions {
		if rel, err := filepath.Rel(final, a.FilePath); err == nil {
			if mt, ok := mtimes[filepath.ToSlash(rel)]; ok {
				actions[i].AddedAt = mt
			}
		}
	}

	snap := state.SourceSnapshot{Key: key, Repo: src.Repo, FetchedAt: s.now(), Actions: actions}
	if err := s.Cache.Save(ctx, snap); err != nil {
		restore()
		return state.SourceSnapshot{}, err
	}
	commit(final)
	return snap, nil
}

// swapDir moves staging into place at final, keeping the old final aside.
// restore puts the old directory back.
func swapDir(staging, final string) (restore func(), err error) {
	backup := final + ".old"
	_ = os.RemoveAll(backup)
	hadOld := false
	if _, err := os.Stat(final); err == nil {
		if err := os.Rename(final, backup); err != nil {
			return nil, fmt.Errorf("move old checkout: %w", err)
		}
		hadOld = true
	}
	if err := os.Rename(staging, final); err != nil {
		if hadOld {
			_ = os.Rename(backup, final)
		}
		return nil, fmt.Errorf("install checkout: %w", err)
	}
	return func() {
		_ = os.RemoveAll(final)
		if hadOld {
			_ = os.Rename(backup, final)
		}
	}, nil
}

func commit(final string) {
	_ = os.RemoveAll(final + ".old")
}
