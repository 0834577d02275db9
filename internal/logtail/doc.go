// Package logtail reads back albumkeeper's session logs for the log view.
//
// Session logs are logfmt files named app_<timestamp>.log; Latest picks the
// newest one. Read returns raw trailing lines. Tail parses each line with
// go-logfmt and keeps the last N entries that pass a Filter (minimum level
// plus a case-insensitive substring), using memory proportional to N rather
// than the file size.
package logtail
