package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/five82/kadai/internal/state"
)

// Cache persists source snapshots in sqlite and keeps each source's
// extracted files under <dir>/sources/<key>.
type Cache struct {
	db   *sql.DB
	dir  string
	path string
}

// OpenCache opens (creating if needed) the cache rooted at dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "sources"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(dir, "sources.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open source cache: %w", err)
	}
	// Sources refresh in parallel; one connection serialises writers.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, dir: dir, path: path}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			source_key TEXT PRIMARY KEY,
			repo TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL,
			actions_json TEXT NOT NULL
		);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("source cache migration failed: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CheckoutDir is where the extracted files of source key live.
func (c *Cache) CheckoutDir(key string) string {
	return filepath.Join(c.dir, "sources", key)
}

func (c *Cache) stagingRoot() string {
	return filepath.Join(c.dir, "sources")
}

// Load returns the cached snapshot for key. ok is false when none exists.
func (c *Cache) Load(ctx context.Context, key string) (snap state.SourceSnapshot, ok bool, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT source_key, repo, fetched_at, actions_json FROM snapshots WHERE source_key = ?`, key)
	snap, err = scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return state.SourceSnapshot{}, false, nil
	}
	if err != nil {
		return state.SourceSnapshot{}, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return snap, true, nil
}

// All returns every cached snapshot ordered by key.
func (c *Cache) All(ctx context.Context) ([]state.SourceSnapshot, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT source_key, repo, fetched_at, actions_json FROM snapshots ORDER BY source_key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []state.SourceSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Save stores snap under snap.Key, replacing any previous snapshot.
func (c *Cache) Save(ctx context.Context, snap state.SourceSnapshot) error {
	payload, err := json.Marshal(snap.Actions)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Key, err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO snapshots (source_key, repo, fetched_at, actions_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			repo = excluded.repo,
			fetched_at = excluded.fetched_at,
			actions_json = excluded.actions_json`,
		snap.Key, snap.Repo, snap.FetchedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Key, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (state.SourceSnapshot, error) {
	var (
		snap      state.SourceSnapshot
		fetchedAt string
		payload   string
	)
	if err := row.Scan(&snap.Key, &snap.Repo, &fetchedAt, &payload); err != nil {
		return state.SourceSnapshot{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return state.SourceSnapshot{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	snap.FetchedAt = t
	if err := json.Unmarshal([]byte(payload), &snap.Actions); err != nil {
		return state.SourceSnapshot{}, fmt.Errorf("decode actions: %w", err)
	}
	return snap, nil
}
