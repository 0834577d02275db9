// Package state holds the data shared between albumkeeper's background
// workers and the TUI.
//
// Producers (the repository poller, upload batches, the Pages watcher) write
// into a Store; the UI reads a Snapshot on every render. Snapshots are deep
// enough copies that the UI can sort or mutate them freely.
//
// A failed repository refresh keeps the previous list and records the error.
// Two failures in a row mark the snapshot offline.
package state
