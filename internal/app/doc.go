// Package app provides the orchestration layer for kadai.
//
// # Overview
//
// This package wires together configuration, the action registry, remote
// sources, shared state and the UI. It is the composition root: commands in
// internal/cli open a Session and either render it (the TUI) or query it
// (list, run).
//
// # Session
//
// OpenSession builds everything a command needs without touching the
// network:
//
//  1. Create a state.Store ordered by the configured sources
//  2. Scan the project's actions directory into the store
//  3. Open the sqlite source cache and publish cached snapshots
//
// Sync and Refresh bring remote sources up to date. A failed source keeps its
// cached snapshot and its error is recorded in the store.
//
// # Data Flow
//
//	┌──────────────┐
//	│ OpenSession()│ Local scan + cached sources
//	└──────┬───────┘
//	       │
//	       ├─────> action.Load()           .kadai/actions
//	       ├─────> sources.OpenCache()     ~/.cache/kadai/sources.db
//	       └─────> Syncer.PublishCached()  store.SetExternal(stale)
//
//	┌──────────────┐
//	│    Run()     │ Interactive session
//	└──────┬───────┘
//	       │
//	       ├─────> prefs.Load()            theme, descriptions
//	       ├─────> StartSourceRefresh()    background goroutine
//	       └─────> ui.Run()                TUI (blocks)
//
//	Background Refresh Loop:
//	┌─────────────────────────────────────────┐
//	│ StartSourceRefresh() goroutine          │
//	│  ├─> Session.ScanLocal()                │
//	│  ├─> Syncer.Run()  (parallel fetch)     │
//	│  └─> store notifies subscribers         │
//	│      └─> UI re-renders the menu         │
//	└─────────────────────────────────────────┘
//
// # Refresh Behavior
//
// The loop refreshes once at startup, then every refresh_minutes when that
// is configured. Consecutive failures double the delay up to 30 minutes.
// Pressing r in the menu, or publishing shared actions, triggers an
// immediate pass.
package app
