package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/five82/kadai/internal/action"
)

// SourceSnapshot is the set of actions fetched from one remote source.
type SourceSnapshot struct {
	Key       string          `json:"key"`
	Repo      string          `json:"repo"`
	FetchedAt time.Time       `json:"fetched_at"`
	Actions   []action.Action `json:"actions"`
}

// SourceStatus describes one source for the status bar.
type SourceStatus struct {
	Key       string
	Repo      string
	Count     int
	FetchedAt time.Time
	// Fresh is true once the source was refreshed during this session;
	// false while only the on-disk cache has been loaded.
	Fresh bool
	Err   error
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Actions    []action.Action
	Syncing    bool
	LastSynced time.Time
	Errors     map[string]error
	Sources    []SourceStatus
	// Version increases on every write.
	Version uint64
}

// ErrorCount returns how many sources failed their last refresh.
func (s Snapshot) ErrorCount() int {
	return len(s.Errors)
}

// Store coordinates the action list shared by the registry scan and the
// background source refresh. Every write rebuilds the merged list as a new
// slice so readers never observe a partial update.
type Store struct {
	mu sync.RWMutex

	order      []string
	local      []action.Action
	external   map[string]SourceSnapshot
	fresh      map[string]bool
	errs       map[string]error
	syncing    bool
	lastSynced time.Time

	merged  []action.Action
	version uint64
	subs    []chan struct{}
}

// NewStore returns a store that merges sources in the given key order.
// Sources not named in order are merged after them, sorted by key.
func NewStore(order []string) *Store {
	return &Store{order: append([]string(nil), order...)}
}

// SetLocal replaces the actions scanned from the project's actions dir.
func (s *Store) SetLocal(actions []action.Action) {
	s.write(func() {
		s.local = action.Clone(actions)
	})
}

// SetExternal replaces the snapshot for one source. fresh marks a snapshot
// fetched during this session rather than loaded from cache.
func (s *Store) SetExternal(key string, snap SourceSnapshot, fresh bool) {
	s.write(func() {
		if s.external == nil {
			s.external = make(map[string]SourceSnapshot)
			s.fresh = make(map[string]bool)
		}
		snap.Key = key
		snap.Actions = action.Clone(snap.Actions)
		s.external[key] = snap
		if fresh {
			s.fresh[key] = true
			delete(s.errs, key)
			if snap.FetchedAt.After(s.lastSynced) {
				s.lastSynced = snap.FetchedAt
			}
		}
	})
}

// RecordSyncError notes a failed refresh. The source's previous snapshot is
// kept.
func (s *Store) RecordSyncError(key string, err error) {
	if err == nil {
		return
	}
	s.write(func() {
		if s.errs == nil {
			s.errs = make(map[string]error)
		}
		s.errs[key] = err
	})
}

// SetSyncing toggles the syncing indicator.
func (s *Store) SetSyncing(syncing bool) {
	s.write(func() {
		s.syncing = syncing
	})
}

func (s *Store) write(fn func()) {
	s.mu.Lock()
	fn()
	s.merged = Merge(s.local, s.orderedSnapshots())
	s.version++
	subs := append([]chan struct{}(nil), s.subs...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) orderedKeys() []string {
	keys := make([]string, 0, len(s.external))
	seen := make(map[string]bool)
	for _, k := range s.order {
		if _, ok := s.external[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range s.external {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (s *Store) orderedSnapshots() []SourceSnapshot {
	keys := s.orderedKeys()
	snaps := make([]SourceSnapshot, 0, len(keys))
	for _, k := range keys {
		snaps = append(snaps, s.external[k])
	}
	return snaps
}

// Merge combines local actions with source snapshots. Local actions keep
// their scan order and come first; each source follows in the given order
// with its actions sorted by name then id. An id already present is dropped.
// The result does not depend on the order in which sources finished
// refreshing.
func Merge(local []action.Action, sources []SourceSnapshot) []action.Action {
	n := len(local)
	for _, src := range sources {
		n += len(src.Actions)
	}
	merged := make([]action.Action, 0, n)
	seen := make(map[string]bool, n)
	add := func(a action.Action) {
		if seen[a.ID] {
			return
		}
		seen[a.ID] = true
		merged = append(merged, a)
	}
	for _, a := range local {
		add(a)
	}
	for _, src := range sources {
		sorted := append([]action.Action(nil), src.Actions...)
		sort.SliceStable(sorted, func(i, j int) bool {
			li, lj := strings.ToLower(sorted[i].Name()), strings.ToLower(sorted[j].Name())
			if li != lj {
				return li < lj
			}
			return sorted[i].ID < sorted[j].ID
		})
		for _, a := range sorted {
			add(a)
		}
	}
	return merged
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Actions:    action.Clone(s.merged),
		Syncing:    s.syncing,
		LastSynced: s.lastSynced,
		Version:    s.version,
	}
	if len(s.errs) > 0 {
		snap.Errors = make(map[string]error, len(s.errs))
		for k, err := range s.errs {
			snap.Errors[k] = fmt.Errorf("%w", err)
		}
	}
	for _, k := range s.orderedKeys() {
		ext := s.external[k]
		snap.Sources = append(snap.Sources, SourceStatus{
			Key:       k,
			Repo:      ext.Repo,
			Count:     len(ext.Actions),
			FetchedAt: ext.FetchedAt,
			Fresh:     s.fresh[k],
			Err:       s.errs[k],
		})
	}
	return snap
}

// Subscribe returns a channel that receives a value after writes. Bursts of
// writes coalesce into one notification; read Snapshot for the data.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
