package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// FilePrefix and FileLayout name session log files app_YYYYMMDD_HHMMSS.log.
const (
	FilePrefix = "app_"
	FileLayout = "20060102_150405"
)

// Options configures Setup.
type Options struct {
	Dir   string
	Level string
	// Stderr, when set, also receives warn and error records.
	Stderr io.Writer
	Now    func() time.Time
}

// Session is an open log file and the logger writing to it.
type Session struct {
	Logger *log.Logger
	Path   string
	file   *os.File
}

// Close flushes and closes the log file.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Setup creates the log directory, opens a timestamped log file and returns a
// logfmt logger writing to it.
func Setup(opts Options) (*Session, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, fmt.Errorf("log directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	path := filepath.Join(dir, FilePrefix+now().Format(FileLayout)+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = file
	if opts.Stderr != nil {
		w = io.MultiWriter(file, &severeOnly{w: opts.Stderr})
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
	return &Session{Logger: logger, Path: path, file: file}, nil
}

// ParseLevel maps a configured level name to a log level. Empty means info.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return log.InfoLevel, nil
	case "warning":
		return log.WarnLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// severeOnly forwards logfmt records at warn level and above.
type severeOnly struct {
	w io.Writer
}

func (s *severeOnly) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=warn")) ||
		bytes.Contains(p, []byte("level=error")) ||
		bytes.Contains(p, []byte("level=fatal")) {
		if _, err := s.w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
