package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lifetime-memories/albumkeeper/internal/github"
)

type recorder struct {
	mu       sync.Mutex
	requests []string
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req.Method+" "+req.URL.Path)
}

func (r *recorder) has(entry string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.requests {
		if got == entry {
			return true
		}
	}
	return false
}

// runCLI executes args against a fake GitHub served by handler.
func runCLI(t *testing.T, handler http.HandlerFunc, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	body := "org = \"smith-family\"\napi_base = \"" + srv.URL + "\"\nlog_dir = \"" + filepath.Join(dir, "logs") + "\"\n\n[http]\nretries = 0\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "test-token")

	root := NewRootCommand("1.2.3")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args,
		"--config", cfgPath,
		"--env-file", filepath.Join(dir, "absent.env"),
		"--prefs", filepath.Join(dir, "prefs.toml"),
	))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	root := NewRootCommand("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "albumkeeper 1.2.3" {
		t.Fatalf("version output = %q, want albumkeeper 1.2.3", got)
	}
}

func TestReposList(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orgs/smith-family/repos" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode([]github.Repository{
			{Name: "summer", HasPages: true, SizeKB: 2048},
			{Name: "autumn", Private: true},
		})
	}, "repos", "list")
	if err != nil {
		t.Fatalf("repos list returned error: %v", err)
	}
	for _, want := range []string{"NAME", "autumn", "summer", "private", "enabled", "2.1 MB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "autumn") > strings.Index(out, "summer") {
		t.Fatalf("repositories not sorted:\n%s", out)
	}
}

func TestReposCreate_RejectsInvalidNameLocally(t *testing.T) {
	rec := &recorder{}
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
	}, "repos", "create", "bad/name")
	if github.KindOf(err) != github.KindValidation {
		t.Fatalf("create error = %v, want validation", err)
	}
	if len(rec.requests) != 0 {
		t.Fatalf("requests = %v, want none", rec.requests)
	}
}

func TestReposDelete_AsksFirst(t *testing.T) {
	orig := confirm
	t.Cleanup(func() { confirm = orig })

	var asked string
	confirm = func(message string) (bool, error) {
		asked = message
		return false, nil
	}
	rec := &recorder{}
	handler := func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusNoContent)
	}

	_, err := runCLI(t, handler, "repos", "delete", "summer")
	if !errors.Is(err, errCancelled) {
		t.Fatalf("delete error = %v, want cancelled", err)
	}
	if !strings.Contains(asked, "summer") || rec.has("DELETE /repos/smith-family/summer") {
		t.Fatalf("declined delete still ran (asked %q)", asked)
	}

	out, err := runCLI(t, handler, "repos", "delete", "summer", "--yes")
	if err != nil {
		t.Fatalf("delete --yes returned error: %v", err)
	}
	if !rec.has("DELETE /repos/smith-family/summer") || !strings.Contains(out, "Deleted summer") {
		t.Fatalf("requests = %v, output = %q", rec.requests, out)
	}
}

func TestUpload_ReportsFailures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.jpg")
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, "upload", "summer", missing)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Fatalf("upload error = %v, want failure count", err)
	}
	if !strings.Contains(out, "missing.jpg") || !strings.Contains(out, "0 uploaded, 1 failed") {
		t.Fatalf("output = %q", out)
	}
}

func TestStatus_OneShot(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/smith-family/summer/pages":
			_ = json.NewEncoder(w).Encode(github.PagesSite{Status: "built", HTMLURL: "https://smith-family.github.io/summer/"})
		case "/repos/smith-family/summer/pages/builds/latest":
			_ = json.NewEncoder(w).Encode(github.PagesBuild{Status: "built"})
		default:
			http.NotFound(w, r)
		}
	}, "status", "summer")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if !strings.Contains(out, "summer  completed (built)") {
		t.Fatalf("status output = %q", out)
	}
}

func TestPublish_RejectsUnknownLayout(t *testing.T) {
	rec := &recorder{}
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
	}, "publish", "summer", "--layout", "carousel")
	if err == nil || !strings.Contains(err.Error(), "carousel") {
		t.Fatalf("publish error = %v, want unknown layout", err)
	}
	if len(rec.requests) != 0 {
		t.Fatalf("requests = %v, want none", rec.requests)
	}
}

func TestErrorText(t *testing.T) {
	if got := errorText(errors.New("accepts 1 arg(s), received 0"), "albumkeeper images"); got != "accepts 1 arg(s), received 0" {
		t.Fatalf("errorText(plain) = %q", got)
	}
	got := errorText(&github.APIError{Kind: github.KindAuth, Status: 401}, "albumkeeper repos list")
	if !strings.HasPrefix(got, "Authentication failed") || !strings.Contains(got, "albumkeeper repos list") {
		t.Fatalf("errorText(auth) = %q", got)
	}
}

func TestImages_ShowsThumbnailsAndUploadDates(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/smith-family/summer/contents":
			_ = json.NewEncoder(w).Encode([]github.ContentEntry{
				{Type: "file", Name: "lake.jpg", Path: "lake.jpg", Size: 3_000_000, SHA: "abcdef0123456789"},
				{Type: "dir", Name: "thumbnails", Path: "thumbnails"},
			})
		case "/repos/smith-family/summer/contents/thumbnails":
			_ = json.NewEncoder(w).Encode([]github.ContentEntry{
				{Type: "file", Name: "lake.jpg", Path: "thumbnails/lake.jpg", Size: 12_000},
			})
		case "/repos/smith-family/summer/commits":
			if r.URL.Query().Get("path") != "thumbnails/lake.jpg" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(`[{"sha":"c1","commit":{"committer":{"date":"2024-07-01T09:30:00Z"}}}]`))
		default:
			http.NotFound(w, r)
		}
	}, "images", "summer")
	if err != nil {
		t.Fatalf("images returned error: %v", err)
	}
	uploaded := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC).Local().Format("2006-01-02 15:04")
	for _, want := range []string{"UPLOADED", "lake.jpg", "3.0 MB", "12 kB", "abcdef0", uploaded, "1 photo, 3.0 MB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
