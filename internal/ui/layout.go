package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutUpdatedWidth is the minimum width to show updated timestamps.
	LayoutUpdatedWidth = 120
)

// Log display limits.
const (
	// LogTailLimit is the number of parsed entries kept for the log view.
	LogTailLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the shared store.
	DefaultUIInterval = time.Second

	// flashTTL is how long a status message stays in the footer.
	flashTTL = 6 * time.Second
)
