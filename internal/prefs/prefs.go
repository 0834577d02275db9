// Package prefs persists albumkeeper's interactive preferences in
// ~/.config/albumkeeper/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/lifetime-memories/albumkeeper/internal/config"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
)

// Prefs holds what the TUI remembers between sessions.
type Prefs struct {
	Theme    string `toml:"theme"`
	Layout   string `toml:"layout"`
	LastRepo string `toml:"last_repo,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/albumkeeper/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Default returns the preferences of a first run.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, Layout: string(publish.LayoutJustified)}
}

// GalleryLayout returns the saved layout, or justified when it is unknown.
func (p Prefs) GalleryLayout() publish.Layout {
	layout, err := publish.ParseLayout(p.Layout)
	if err != nil {
		return publish.LayoutJustified
	}
	return layout
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.Layout = string(p.GalleryLayout())
	p.LastRepo = strings.TrimSpace(p.LastRepo)
	return p
}

// Load reads preferences from path, or the default location when path is
// empty. A missing file yields Default. A file that cannot be read or parsed
// also yields Default, together with the error so the caller can report it.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read prefs: %w", err)
	}

	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	return p.normalized(), nil
}

// Save writes p to path through a temporary file, so a crash never leaves a
// truncated file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("prefs path: %w", err)
	}
	return resolved, nil
}
