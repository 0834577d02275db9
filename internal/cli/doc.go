// Package cli is albumkeeper's command line, built with cobra.
//
// The root command opens the TUI. Subcommands (repos, images, upload,
// publish, status, version) wire the same app.App for one operation, print
// plain tables and exit non-zero with a readable message on failure.
package cli
