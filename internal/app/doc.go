// Package app is albumkeeper's composition root.
//
// New loads the configuration, opens the session log, resolves the GitHub
// token and wires the services that share one HTTP client and one cache:
//
//	config.Load ─> logging.Setup ─> ResolveToken
//	    │
//	    ├─> github.Client ─┬─> catalog.Service ─> publish.Publisher
//	    │                  ├─> upload.Orchestrator
//	    │                  └─> pages.Poller
//	    └─> state.Store (read by the UI)
//
// App methods are what the TUI and the CLI call. Each one records its outcome
// in the store, so the UI renders from snapshots rather than from return
// values.
//
// Run is the TUI entry point. It performs one refresh before the interface
// starts (failing fast only on authentication errors), then keeps the
// repository list current with StartPoller. Refresh failures back off
// exponentially up to five minutes; the store counts them so the header can
// show an offline state.
package app
