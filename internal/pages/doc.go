// Package pages watches a GitHub Pages build until it settles.
//
// # State machine
//
// A watch moves through
//
//	not-started -> building -> completed | failed
//	not-started | building -> timed-out
//
// and never leaves a terminal state. Once building has been observed, a later
// not-started reading is treated as building, so the status never regresses.
//
// # Polling
//
// The first poll is issued as soon as Start is called; later polls follow
// every Interval. Raw payloads are mapped through a Mapper, which defaults to
// GitHub's documented values and can be overridden from configuration.
// Unknown raw values are logged and treated as building.
//
// Network errors, 5xx and rate-limit responses are transient. Up to
// MaxTransientFailures consecutive transient failures leave the status
// unchanged and emit nothing; the next one ends the watch as failed with the
// error attached.
// Authentication and validation errors fail the watch immediately.
//
// StartFrom takes a Baseline, the commit and request time of a publish.
// GitHub keeps reporting the previous build as latest until the new one is
// queued, so a build older than the baseline counts as building.
//
// When Timeout elapses exactly one timed-out update is emitted, cancelling any
// poll still in flight.
//
// # Stopping
//
// Stop is idempotent and safe from any goroutine, including the update
// callback. After Stop returns no further poll is made and the result of an
// in-flight poll is discarded. A callback already handed its update when Stop
// was called may still be running. Done and Wait expose loop termination.
package pages
