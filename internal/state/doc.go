// Package state holds the action list shared between the registry scan, the
// background source refresh, and the UI.
//
// # Update Semantics
//
// Writers never edit the list in place. Each write (SetLocal, SetExternal,
// RecordSyncError, SetSyncing) rebuilds the merged list under the write lock
// and bumps Version:
//
//	store.SetLocal(scanned)             // local actions, scan order
//	store.SetExternal("team", snap, ok) // one source's snapshot
//	store.RecordSyncError("team", err)  // previous snapshot kept
//
// Snapshot returns copies, so the UI can hold a Snapshot across frames
// without locking.
//
// # Notifications
//
// Subscribe hands out a one-slot channel. Writes do a non-blocking send, so a
// slow reader sees a single pending notification no matter how many writes
// happened since it last looked.
package state
