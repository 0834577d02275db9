// Package logging opens the per-session log file and builds the charm logger
// every other package writes to.
//
// Each run writes to <log_dir>/app_YYYYMMDD_HHMMSS.log in logfmt. The terminal
// UI never logs to the terminal itself; the CLI additionally copies warn and
// error records to stderr. Leveled adapts the logger for the retrying HTTP
// transport used by the GitHub client.
package logging
