package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestSetup_CreatesTimestampedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fixed := time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local)

	session, err := Setup(Options{Dir: dir, Level: "debug", Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	want := filepath.Join(dir, "app_20240309_140506.log")
	if session.Path != want {
		t.Fatalf("Path = %q, want %q", session.Path, want)
	}
	session.Logger.Info("hello", "repo", "summer")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(string(data), "repo=summer") {
		t.Fatalf("log contents = %q, want logfmt record", data)
	}
}

func TestSetup_TeesOnlySevereRecordsToStderr(t *testing.T) {
	var stderr bytes.Buffer
	session, err := Setup(Options{Dir: t.TempDir(), Level: "info", Stderr: &stderr})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	session.Logger.Info("routine")
	session.Logger.Warn("careful")
	if strings.Contains(stderr.String(), "routine") {
		t.Fatalf("stderr = %q, want info records filtered", stderr.String())
	}
	if !strings.Contains(stderr.String(), "careful") {
		t.Fatalf("stderr = %q, want warn record", stderr.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]log.Level{
		"":        log.InfoLevel,
		"INFO":    log.InfoLevel,
		"debug":   log.DebugLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel(loud) error = nil, want error")
	}
}

func TestLeveled_DemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	l := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel, Formatter: log.LogfmtFormatter})
	adapter := Leveled(l)
	adapter.Info("performing request", "attempt", 1)
	if buf.Len() != 0 {
		t.Fatalf("info output = %q, want nothing at info level", buf.String())
	}
	adapter.Warn("retrying", "attempt", 2)
	if !strings.Contains(buf.String(), "retrying") {
		t.Fatalf("warn output = %q, want record", buf.String())
	}
}
