package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/logging"
)

type fakeAPI struct {
	mu       sync.Mutex
	puts     map[string]github.FileUpload
	failPath string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeAPI) PutFile(ctx context.Context, repo string, file github.FileUpload) (*github.ContentEntry, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if file.Path == f.failPath {
		return nil, &github.APIError{Kind: github.KindAuth, Status: 403, Message: "Resource not accessible"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[string]github.FileUpload{}
	}
	f.puts[file.Path] = file
	return &github.ContentEntry{Path: file.Path, SHA: "sha-" + file.Path}, nil
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for x := 0; x < 320; x++ {
		img.Set(x, x%240, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newTestOrchestrator(t *testing.T, api API, c *cache.Cache) *Orchestrator {
	t.Helper()
	return New(api, Options{Fanout: 2, Branch: "main", Cache: c, Logger: logging.Discard()})
}

func TestUpload_OneInvalidFileDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("photo%d.jpg", i)
		if i == 3 {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte("definitely not a photo"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			files = append(files, path)
			continue
		}
		files = append(files, writeJPEG(t, dir, name))
	}

	api := &fakeAPI{}
	var progress atomic.Int32
	report := newTestOrchestrator(t, api, nil).Upload(context.Background(), "album", files, func(Result) {
		progress.Add(1)
	})

	if len(report.Results) != 5 {
		t.Fatalf("results = %d, want 5", len(report.Results))
	}
	if progress.Load() != 5 {
		t.Fatalf("progress callbacks = %d, want 5", progress.Load())
	}
	byName := report.ByFilename()
	if len(byName) != 5 {
		t.Fatalf("ByFilename size = %d, want 5", len(byName))
	}
	bad := byName["photo3.jpg"]
	if bad.OK() || bad.Reason != ReasonValidation || bad.State != Failed {
		t.Fatalf("photo3 = %+v, want validation failure", bad)
	}
	if got := len(report.Succeeded()); got != 4 {
		t.Fatalf("succeeded = %d, want 4", got)
	}
	for i, res := range report.Results {
		if want := fmt.Sprintf("photo%d.jpg", i+1); res.Filename != want {
			t.Fatalf("Results[%d] = %s, want %s (sorted)", i, res.Filename, want)
		}
	}
	if report.BatchID == "" {
		t.Fatalf("BatchID empty")
	}
	if err := report.Err(); err == nil || !strings.Contains(err.Error(), "photo3.jpg: validation") {
		t.Fatalf("Err = %v, want photo3 validation summary", err)
	}

	if _, ok := api.puts["photo1.jpg"]; !ok {
		t.Fatalf("original not uploaded to repo root: %v", keys(api.puts))
	}
	thumb, ok := api.puts["thumbnails/photo1.jpg"]
	if !ok {
		t.Fatalf("thumbnail not uploaded: %v", keys(api.puts))
	}
	if !thumb.Overwrite || thumb.Branch != "main" {
		t.Fatalf("thumbnail upload = %+v, want overwrite on main", thumb)
	}
	if _, ok := api.puts["photo3.jpg"]; ok {
		t.Fatalf("invalid file was uploaded")
	}
	if api.peak.Load() > 2 {
		t.Fatalf("peak in-flight uploads = %d, want <= fanout 2", api.peak.Load())
	}
}

func TestUpload_UploadFailureCarriesKind(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeJPEG(t, dir, "a.jpg"), writeJPEG(t, dir, "b.jpg")}
	api := &fakeAPI{failPath: "thumbnails/b.jpg"}

	report := newTestOrchestrator(t, api, nil).Upload(context.Background(), "album", files, nil)

	b := report.ByFilename()["b.jpg"]
	if b.Reason != ReasonUpload || b.Kind != github.KindAuth {
		t.Fatalf("b.jpg = %+v, want upload failure of kind auth", b)
	}
	if !errors.Is(b.Err, github.ErrAuth) {
		t.Fatalf("b.jpg Err = %v, want wrapped auth error", b.Err)
	}
	if !report.ByFilename()["a.jpg"].OK() {
		t.Fatalf("a.jpg failed, want uploaded")
	}
}

func TestUpload_DuplicateNames(t *testing.T) {
	root := t.TempDir()
	one := filepath.Join(root, "one")
	two := filepath.Join(root, "two")
	for _, d := range []string{one, two} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	files := []string{writeJPEG(t, one, "same.jpg"), writeJPEG(t, two, "same.jpg")}

	report := newTestOrchestrator(t, &fakeAPI{}, nil).Upload(context.Background(), "album", files, nil)

	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Reason != ReasonDuplicate || failed[0].LocalPath != files[1] {
		t.Fatalf("failed = %+v, want second file rejected as duplicate", failed)
	}
	if !report.ByFilename()["same.jpg"].OK() {
		t.Fatalf("ByFilename prefers the duplicate, want the uploaded file")
	}
}

func TestUpload_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeJPEG(t, dir, "a.jpg"), writeJPEG(t, dir, "b.jpg")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := newTestOrchestrator(t, &fakeAPI{}, nil).Upload(ctx, "album", files, nil)

	for _, res := range report.Results {
		if res.Reason != ReasonCanceled {
			t.Fatalf("%s reason = %q, want canceled", res.Filename, res.Reason)
		}
	}
}

func TestUpload_InvalidatesRepoCacheOnSuccess(t *testing.T) {
	opts := cache.DefaultOptions()
	opts.JanitorInterval = -1
	opts.Logger = logging.Discard()
	c := cache.New(opts)
	t.Cleanup(c.Close)
	c.Set(cache.ContentsKey("album", ""), []github.ContentEntry{}, 0)
	c.Set(cache.ContentsKey("other", ""), []github.ContentEntry{}, 0)

	files := []string{writeJPEG(t, t.TempDir(), "a.jpg")}
	report := newTestOrchestrator(t, &fakeAPI{}, c).Upload(context.Background(), "album", files, nil)
	if len(report.Succeeded()) != 1 {
		t.Fatalf("succeeded = %d, want 1", len(report.Succeeded()))
	}
	if _, ok := c.Get(cache.ContentsKey("album", "")); ok {
		t.Fatalf("album listing still cached after upload")
	}
	if _, ok := c.Get(cache.ContentsKey("other", "")); !ok {
		t.Fatalf("other repo listing dropped")
	}
}

func keys(m map[string]github.FileUpload) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
