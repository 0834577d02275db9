package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-logfmt/logfmt"

	"github.com/lifetime-memories/albumkeeper/internal/logging"
)

// Entry is one parsed log line.
type Entry struct {
	Raw     string
	Time    time.Time
	Level   log.Level
	Prefix  string
	Message string
	Fields  []Field
}

// Field is a key/value pair beyond the standard ones.
type Field struct {
	Key   string
	Value string
}

// Filter selects entries. The zero Filter matches info and above; set
// MinLevel to log.DebugLevel to include debug lines.
type Filter struct {
	MinLevel log.Level
	// Query matches case-insensitively against the raw line.
	Query string
}

// Match reports whether e passes f.
func (f Filter) Match(e Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Raw), strings.ToLower(q))
}

// Latest returns the newest session log in dir, or "" when there is none.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.FilePrefix+"*.log"))
	if err != nil {
		return "", fmt.Errorf("list logs: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// Read returns at most maxLines from the end of the file at path. maxLines
// <= 0 returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	var lines []string
	err := scan(path, maxLines, func(line string) bool {
		lines = append(lines, line)
		return true
	}, func(keep int) {
		lines = lines[len(lines)-keep:]
	})
	return lines, err
}

// Tail returns the last maxLines entries of the file at path that pass f.
func Tail(path string, maxLines int, f Filter) ([]Entry, error) {
	var entries []Entry
	err := scan(path, maxLines, func(line string) bool {
		e := Parse(line)
		if !f.Match(e) {
			return false
		}
		entries = append(entries, e)
		return true
	}, func(keep int) {
		entries = entries[len(entries)-keep:]
	})
	return entries, err
}

// scan feeds lines to accept and trims the accepted tail to maxLines as it
// goes, so memory stays bounded on long logs.
func scan(path string, maxLines int, accept func(string) bool, trim func(keep int)) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		if !accept(scanner.Text()) {
			continue
		}
		count++
		if maxLines > 0 && count >= 2*maxLines {
			trim(maxLines)
			count = maxLines
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if maxLines > 0 && count > maxLines {
		trim(maxLines)
	}
	return nil
}

// Parse decodes a logfmt line as written by the logging package. Lines that
// are not logfmt come back with only Raw and Message set, at info level.
func Parse(line string) Entry {
	e := Entry{Raw: line, Level: log.InfoLevel}
	dec := logfmt.NewDecoder(strings.NewReader(line))
	if !dec.ScanRecord() {
		e.Message = line
		return e
	}
	structured := false
	for dec.ScanKeyval() {
		key, value := string(dec.Key()), string(dec.Value())
		switch key {
		case "time", "ts":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				e.Time = t
				structured = true
			}
		case "level", "lvl":
			if lvl, err := log.ParseLevel(value); err == nil {
				e.Level = lvl
				structured = true
			}
		case "prefix":
			e.Prefix = value
		case "msg":
			e.Message = value
			structured = true
		default:
			e.Fields = append(e.Fields, Field{Key: key, Value: value})
		}
	}
	if dec.Err() != nil || !structured {
		return Entry{Raw: line, Level: log.InfoLevel, Message: line}
	}
	return e
}
