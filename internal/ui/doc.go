// Package ui is albumkeeper's terminal interface, built on Bubble Tea.
//
// The Model renders five views over the shared state.Store snapshot:
//
//   - Repositories: the gallery repositories with visibility, Pages status and size
//   - Images: the photos of the open repository and whether each has a thumbnail
//   - Upload: live per-file progress of the current batch
//   - Pages: the watched build, last known status per repository and transitions
//   - Logs: the session log parsed by logtail, filterable by level and text
//
// Everything that talks to GitHub goes through the Backend interface and runs
// inside a tea.Cmd. Callbacks from background work (upload progress, Pages
// updates) are queued on an internal channel and delivered to Update one at a
// time, so they arrive in the order they were produced.
//
// Forms and confirmations are Modal values; while one is open it receives
// every key.
package ui
