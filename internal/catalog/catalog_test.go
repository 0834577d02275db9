package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/logging"
)

type fakeAPI struct {
	mu          sync.Mutex
	repos       []github.Repository
	contents    map[string][]github.ContentEntry
	listCalls   int
	dirCalls    map[string]int
	commits     map[string]time.Time
	commitCalls map[string]int
	created     []github.CreateRepositoryRequest
	deleted     []string
	createErr   error
}

func (f *fakeAPI) ListRepositories(ctx context.Context) ([]github.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]github.Repository(nil), f.repos...), nil
}

func (f *fakeAPI) CreateRepository(ctx context.Context, req github.CreateRepositoryRequest) (*github.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	repo := github.Repository{Name: req.Name}
	f.repos = append(f.repos, repo)
	return &repo, nil
}

func (f *fakeAPI) DeleteRepository(ctx context.Context, repo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, repo)
	return nil
}

func (f *fakeAPI) ListContents(ctx context.Context, repo, dir string) ([]github.ContentEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirCalls == nil {
		f.dirCalls = map[string]int{}
	}
	f.dirCalls[dir]++
	entries, ok := f.contents[dir]
	if !ok {
		return nil, &github.APIError{Kind: github.KindNotFound, Status: 404}
	}
	return entries, nil
}

func (f *fakeAPI) ListCommits(ctx context.Context, repo, path string, perPage int) ([]github.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitCalls == nil {
		f.commitCalls = map[string]int{}
	}
	f.commitCalls[path]++
	date, ok := f.commits[path]
	if !ok {
		return nil, &github.APIError{Kind: github.KindTransient, Status: 502}
	}
	var c github.Commit
	c.SHA = "c-" + path
	c.Commit.Committer.Date = date
	return []github.Commit{c}, nil
}

func (f *fakeAPI) GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error) {
	return github.PagesStatus{Enabled: true, SiteStatus: "built"}, nil
}

func newTestService(t *testing.T, api API) (*Service, *cache.Cache) {
	t.Helper()
	opts := cache.DefaultOptions()
	opts.JanitorInterval = -1
	opts.Logger = logging.Discard()
	c := cache.New(opts)
	t.Cleanup(c.Close)
	return NewService(api, c, logging.Discard()), c
}

func TestValidateRepoName(t *testing.T) {
	valid := []string{"summer-2023", "Grandma_Photos", "1990s", "  trimmed  "}
	for _, name := range valid {
		if _, err := ValidateRepoName(name); err != nil {
			t.Fatalf("ValidateRepoName(%q) returned error: %v", name, err)
		}
	}
	invalid := []string{
		"",
		"   ",
		"-leading-dash",
		".hidden",
		"a..b",
		"tilde~",
		"caret^",
		"colon:",
		"back\\slash",
		"for/ward",
		"what?",
		"star*",
		"[bracket]",
		"has space",
		"CON",
		"lpt7",
		strings.Repeat("a", 101),
	}
	for _, name := range invalid {
		_, err := ValidateRepoName(name)
		if !errors.Is(err, ErrInvalidName) {
			t.Fatalf("ValidateRepoName(%q) = %v, want ErrInvalidName", name, err)
		}
		if github.KindOf(err) != github.KindValidation {
			t.Fatalf("KindOf(%q) = %q, want validation", name, github.KindOf(err))
		}
	}
}

func TestService_RepositoriesReadThrough(t *testing.T) {
	api := &fakeAPI{repos: []github.Repository{{Name: "zoo"}, {Name: "Attic"}}}
	svc, _ := newTestService(t, api)
	ctx := context.Background()

	repos, err := svc.Repositories(ctx, false)
	if err != nil {
		t.Fatalf("Repositories returned error: %v", err)
	}
	if repos[0].Name != "Attic" || repos[1].Name != "zoo" {
		t.Fatalf("order = %v, want case-insensitive sort", repos)
	}
	if _, err := svc.Repositories(ctx, false); err != nil {
		t.Fatalf("Repositories returned error: %v", err)
	}
	if api.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1 (second read cached)", api.listCalls)
	}
	if _, err := svc.Repositories(ctx, true); err != nil {
		t.Fatalf("Repositories returned error: %v", err)
	}
	if api.listCalls != 2 {
		t.Fatalf("list calls = %d, want 2 after refresh", api.listCalls)
	}
}

func TestService_CreateInvalidatesList(t *testing.T) {
	api := &fakeAPI{}
	svc, c := newTestService(t, api)
	ctx := context.Background()

	if _, err := svc.Repositories(ctx, false); err != nil {
		t.Fatalf("Repositories returned error: %v", err)
	}
	if _, err := svc.Create(ctx, " summer-2023 ", ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, ok := c.Get(cache.RepoListKey); ok {
		t.Fatalf("repo list still cached after Create")
	}
	req := api.created[0]
	if req.Name != "summer-2023" || req.Description != DefaultDescription || !req.AutoInit || req.Private {
		t.Fatalf("create request = %+v", req)
	}
}

func TestService_CreateRejectsLocallyWithoutCallingAPI(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newTestService(t, api)
	if _, err := svc.Create(context.Background(), "bad name", ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Create = %v, want ErrInvalidName", err)
	}
	if len(api.created) != 0 {
		t.Fatalf("API called for invalid name")
	}
}

func TestService_CreateDuplicateIsValidation(t *testing.T) {
	api := &fakeAPI{createErr: &github.APIError{Kind: github.KindValidation, Status: 422, Message: "name already exists on this account"}}
	svc, _ := newTestService(t, api)

	_, err := svc.Create(context.Background(), "summer-2023", "")
	var apiErr *github.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != github.KindValidation {
		t.Fatalf("Create = %v, want validation *APIError", err)
	}
}

func TestService_DeleteDropsRepoCache(t *testing.T) {
	api := &fakeAPI{contents: map[string][]github.ContentEntry{"": {}}}
	svc, c := newTestService(t, api)
	ctx := context.Background()

	c.Set(cache.ContentsKey("album", ""), []github.ContentEntry{}, 0)
	c.Set(cache.PagesKey("album"), "x", 0)
	c.Set(cache.ContentsKey("other", ""), []github.ContentEntry{}, 0)
	c.Set(cache.RepoListKey, []github.Repository{}, 0)

	if err := svc.Delete(ctx, "album"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	for _, key := range []string{cache.ContentsKey("album", ""), cache.PagesKey("album"), cache.RepoListKey} {
		if _, ok := c.Get(key); ok {
			t.Fatalf("%s still cached after Delete", key)
		}
	}
	if _, ok := c.Get(cache.ContentsKey("other", "")); !ok {
		t.Fatalf("other repo's cache dropped")
	}
}

func TestService_ImagesJoinsThumbnails(t *testing.T) {
	api := &fakeAPI{contents: map[string][]github.ContentEntry{
		"": {
			{Type: "file", Name: "b.png", Path: "b.png", Size: 20, SHA: "b1"},
			{Type: "file", Name: "a.jpg", Path: "a.jpg", Size: 10, SHA: "a1"},
			{Type: "file", Name: "README.md", Path: "README.md"},
			{Type: "file", Name: "index.html", Path: "index.html"},
			{Type: "dir", Name: "thumbnails", Path: "thumbnails"},
		},
		ThumbnailDir: {
			{Type: "file", Name: "a.jpg", Path: "thumbnails/a.jpg", Size: 3, DownloadURL: "https://raw/thumbnails/a.jpg"},
		},
	}}
	svc, _ := newTestService(t, api)

	images, err := svc.Images(context.Background(), "album", false)
	if err != nil {
		t.Fatalf("Images returned error: %v", err)
	}
	if len(images) != 2 || images[0].Name != "a.jpg" || images[1].Name != "b.png" {
		t.Fatalf("images = %+v, want a.jpg and b.png", images)
	}
	if !images[0].HasThumbnail() || images[0].ThumbnailURL == "" {
		t.Fatalf("a.jpg thumbnail missing: %+v", images[0])
	}
	if images[0].ThumbnailSize != 3 {
		t.Fatalf("a.jpg ThumbnailSize = %d, want 3", images[0].ThumbnailSize)
	}
	if images[1].HasThumbnail() {
		t.Fatalf("b.png has unexpected thumbnail")
	}

	if _, err := svc.Images(context.Background(), "album", false); err != nil {
		t.Fatalf("Images returned error: %v", err)
	}
	if api.dirCalls[""] != 1 || api.dirCalls[ThumbnailDir] != 1 {
		t.Fatalf("dir calls = %v, want cached second read", api.dirCalls)
	}
}

func TestService_ImagesMissingThumbnailsIsEmpty(t *testing.T) {
	api := &fakeAPI{contents: map[string][]github.ContentEntry{
		"": {{Type: "file", Name: "README.md", Path: "README.md"}},
	}}
	svc, _ := newTestService(t, api)

	images, err := svc.Images(context.Background(), "fresh", false)
	if err != nil {
		t.Fatalf("Images returned error: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("images = %v, want empty", images)
	}
}

func TestService_ImagesUploadDates(t *testing.T) {
	uploaded := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	api := &fakeAPI{
		contents: map[string][]github.ContentEntry{
			"": {
				{Type: "file", Name: "a.jpg", Path: "a.jpg"},
				{Type: "file", Name: "b.png", Path: "b.png"},
				{Type: "file", Name: "c.jpg", Path: "c.jpg"},
			},
			ThumbnailDir: {
				{Type: "file", Name: "a.jpg", Path: "thumbnails/a.jpg"},
				{Type: "file", Name: "c.jpg", Path: "thumbnails/c.jpg"},
			},
		},
		commits: map[string]time.Time{
			"thumbnails/a.jpg": uploaded,
			"b.png":            uploaded.Add(time.Hour),
		},
	}
	svc, c := newTestService(t, api)

	images, err := svc.Images(context.Background(), "album", false)
	if err != nil {
		t.Fatalf("Images returned error: %v", err)
	}
	if !images[0].UploadedAt.Equal(uploaded) {
		t.Fatalf("a.jpg UploadedAt = %v, want %v", images[0].UploadedAt, uploaded)
	}
	if !images[1].UploadedAt.Equal(uploaded.Add(time.Hour)) {
		t.Fatalf("b.png UploadedAt = %v, want the original's commit date", images[1].UploadedAt)
	}
	if !images[2].UploadedAt.IsZero() {
		t.Fatalf("c.jpg UploadedAt = %v, want zero after a failed lookup", images[2].UploadedAt)
	}

	if _, err := svc.Images(context.Background(), "album", false); err != nil {
		t.Fatalf("Images returned error: %v", err)
	}
	if api.commitCalls["thumbnails/a.jpg"] != 1 {
		t.Fatalf("commit lookups for a.jpg = %d, want cached second read", api.commitCalls["thumbnails/a.jpg"])
	}
	if api.commitCalls["thumbnails/c.jpg"] != 2 {
		t.Fatalf("commit lookups for c.jpg = %d, want a retry after failure", api.commitCalls["thumbnails/c.jpg"])
	}

	svc.Forget("album")
	if _, ok := c.Get(cache.CommitDateKey("album", "thumbnails/a.jpg")); ok {
		t.Fatalf("upload date still cached after Forget")
	}
}
