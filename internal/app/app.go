package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/kadai/internal/action"
	"github.com/five82/kadai/internal/config"
	"github.com/five82/kadai/internal/logging"
	"github.com/five82/kadai/internal/prefs"
	"github.com/five82/kadai/internal/remote"
	"github.com/five82/kadai/internal/sources"
	"github.com/five82/kadai/internal/state"
	"github.com/five82/kadai/internal/ui"
)

// ArchiveHostEnv overrides remote.DefaultBaseURL.
const ArchiveHostEnv = "KADAI_ARCHIVE_URL"

// SessionOptions configure OpenSession.
type SessionOptions struct {
	Config config.Config
	Logger *log.Logger
	// NoSync skips the source cache entirely.
	NoSync bool
	// Fetcher replaces the HTTP archive client.
	Fetcher remote.ArchiveFetcher
}

// Session holds the shared store and everything that feeds it.
type Session struct {
	Config config.Config
	Store  *state.Store
	Logger *log.Logger

	cache  *sources.Cache
	syncer *sources.Syncer
}

// OpenSession scans local actions and publishes cached source snapshots. It
// does not touch the network; call Sync for that.
func OpenSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Session{
		Config: opts.Config,
		Store:  state.NewStore(opts.Config.SourceKeys()),
		Logger: logger,
	}

	if err := s.ScanLocal(ctx); err != nil {
		return nil, err
	}

	if opts.NoSync || len(opts.Config.Sources) == 0 {
		return s, nil
	}

	cache, err := sources.OpenCache(opts.Config.CacheDir)
	if err != nil {
		// Without a cache the project's own actions still work.
		logger.Warn("source cache unavailable", "dir", opts.Config.CacheDir, "err", err)
		return s, nil
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		client, err := remote.NewClient(os.Getenv(ArchiveHostEnv))
		if err != nil {
			_ = cache.Close()
			return nil, fmt.Errorf("init archive client: %w", err)
		}
		fetcher = client
	}
	s.cache = cache
	s.syncer = &sources.Syncer{
		Cache:   cache,
		Fetcher: fetcher,
		Sources: opts.Config.Sources,
		Logger:  logger,
	}
	s.syncer.PublishCached(ctx, s.Store)
	return s, nil
}

// ScanLocal reloads the project's actions directory into the store.
func (s *Session) ScanLocal(ctx context.Context) error {
	actions, err := action.Load(ctx, s.Config.ActionsDir, action.LoadOptions{Logger: s.Logger})
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	s.Store.SetLocal(actions)
	s.Logger.Debug("local actions loaded", "dir", s.Config.ActionsDir, "count", len(actions))
	return nil
}

// Syncs reports whether remote sources are refreshed in this session.
func (s *Session) Syncs() bool {
	return s.syncer != nil
}

// Sync refreshes every configured source. It is a no-op without sources.
func (s *Session) Sync(ctx context.Context) error {
	if s.syncer == nil {
		return nil
	}
	return s.syncer.Run(ctx, s.Store)
}

// Refresh rescans local actions and then syncs sources.
func (s *Session) Refresh(ctx context.Context) error {
	localErr := s.ScanLocal(ctx)
	if localErr != nil {
		s.Logger.Warn("local rescan failed", "err", localErr)
	}
	return errors.Join(localErr, s.Sync(ctx))
}

// Actions returns the current merged action list.
func (s *Session) Actions() []action.Action {
	return s.Store.Snapshot().Actions
}

// Close releases the source cache.
func (s *Session) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Options configure the interactive application.
type Options struct {
	Session   *Session
	PrefsPath string // empty uses default ~/.config/kadai/prefs.toml
	Input     io.Reader
	Output    io.Writer
	Now       func() time.Time
}

// Run boots the kadai TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	s := opts.Session
	if s == nil {
		return errors.New("app: nil session")
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		s.Logger.Warn("preferences unreadable, using defaults", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The first pass runs right away so cached sources are replaced as soon
	// as fresh archives arrive.
	trigger := StartSourceRefresh(ctx, s.Refresh, s.Config.RefreshEvery, s.Logger)

	return ui.Run(ui.Options{
		Context:          ctx,
		Store:            s.Store,
		Config:           s.Config,
		Logger:           s.Logger,
		ThemeName:        userPrefs.Theme,
		HideDescriptions: userPrefs.HideDescriptions,
		PrefsPath:        opts.PrefsPath,
		Refresh:          trigger,
		Now:              opts.Now,
		Input:            opts.Input,
		Output:           opts.Output,
	})
}
