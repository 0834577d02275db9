package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lifetime-memories/albumkeeper/internal/publish"
)

func writePrefs(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Default() {
		t.Fatalf("Load = %+v, want %+v", p, Default())
	}
}

func TestLoad_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writePrefs(t, filepath.Join(home, ".config", "albumkeeper", "prefs.toml"), "theme = \"Slate\"\nlayout = \"masonry\"\n")

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" || p.GalleryLayout() != publish.LayoutMasonry {
		t.Fatalf("Load = %+v, want Slate with masonry", p)
	}
}

func TestLoad_Normalizes(t *testing.T) {
	cases := map[string]struct {
		body string
		want Prefs
	}{
		"unknown layout": {
			body: "layout = \"carousel\"\nlast_repo = \" reunion \"\n",
			want: Prefs{Theme: defaultTheme, Layout: "justified", LastRepo: "reunion"},
		},
		"empty theme": {
			body: "theme = \"\"\nlayout = \" Grid \"\n",
			want: Prefs{Theme: defaultTheme, Layout: "grid"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prefs.toml")
			writePrefs(t, path, tc.body)
			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if p != tc.want {
				t.Fatalf("Load = %+v, want %+v", p, tc.want)
			}
		})
	}
}

func TestLoad_InvalidTOMLReportsAndFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	writePrefs(t, path, "not valid toml {{{\n")

	p, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse prefs") {
		t.Fatalf("Load error = %v, want parse error", err)
	}
	if p != Default() {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}

func TestSave_RoundTripsAndCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "prefs.toml")

	p := Prefs{Theme: "Slate", Layout: "grid", LastRepo: "summer-2024"}
	if err := Save(path, p); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded != p {
		t.Fatalf("Load = %+v, want %+v", loaded, p)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("prefs dir has %d entries, want only prefs.toml", len(entries))
	}
}
