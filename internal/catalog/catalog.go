package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// ThumbnailDir holds generated thumbnails; originals live at the root.
const ThumbnailDir = "thumbnails"

// dateLookups bounds the concurrent commit lookups of one Images call.
const dateLookups = 4

// DefaultDescription is used when a repository is created without one.
const DefaultDescription = "Image repository created by albumkeeper"

// API is the part of the GitHub client the catalog reads and mutates.
type API interface {
	ListRepositories(ctx context.Context) ([]github.Repository, error)
	CreateRepository(ctx context.Context, req github.CreateRepositoryRequest) (*github.Repository, error)
	DeleteRepository(ctx context.Context, repo string) error
	ListContents(ctx context.Context, repo, dir string) ([]github.ContentEntry, error)
	ListCommits(ctx context.Context, repo, path string, perPage int) ([]github.Commit, error)
	GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error)
}

// RemoteImage is an uploaded photo as seen in the repository.
type RemoteImage struct {
	Name          string
	Path          string
	ThumbnailPath string
	Size          int64
	SHA           string
	DownloadURL   string
	ThumbnailURL  string
	ThumbnailSize int64
	// UploadedAt is the date of the last commit touching the thumbnail, or
	// the original when there is none. Zero when unknown.
	UploadedAt time.Time
}

// HasThumbnail reports whether a thumbnail was found for the image.
func (r RemoteImage) HasThumbnail() bool {
	return r.ThumbnailPath != ""
}

// ShortSHA is the abbreviated blob sha shown in listings.
func (r RemoteImage) ShortSHA() string {
	if len(r.SHA) > 7 {
		return r.SHA[:7]
	}
	return r.SHA
}

// Service is a read-through cache over the repository and contents APIs.
type Service struct {
	api    API
	cache  *cache.Cache
	logger *log.Logger
}

// NewService wires api and c. A nil cache disables caching.
func NewService(api API, c *cache.Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{api: api, cache: c, logger: logger.WithPrefix("catalog")}
}

// Repositories lists gallery repositories, from cache unless refresh is set.
func (s *Service) Repositories(ctx context.Context, refresh bool) ([]github.Repository, error) {
	if !refresh {
		if repos, ok := cache.Lookup[[]github.Repository](s.cache, cache.RepoListKey); ok {
			return cloneRepos(repos), nil
		}
	}
	repos, err := s.api.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	sort.SliceStable(repos, func(i, j int) bool {
		return strings.ToLower(repos[i].Name) < strings.ToLower(repos[j].Name)
	})
	s.cache.Set(cache.RepoListKey, cloneRepos(repos), 0)
	s.logger.Debug("loaded repositories", "count", len(repos))
	return repos, nil
}

// Create validates name and creates a public, auto-initialised repository.
func (s *Service) Create(ctx context.Context, name, description string) (*github.Repository, error) {
	name, err := ValidateRepoName(name)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = DefaultDescription
	}
	repo, err := s.api.CreateRepository(ctx, github.CreateRepositoryRequest{
		Name:        name,
		Description: description,
		Private:     false,
		HasIssues:   false,
		HasProjects: false,
		HasWiki:     false,
		AutoInit:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("create repository %s: %w", name, err)
	}
	s.cache.Invalidate(cache.RepoListKey)
	s.logger.Info("created repository", "repo", name)
	return repo, nil
}

// Delete removes the repository and everything cached about it.
func (s *Service) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := s.api.DeleteRepository(ctx, name); err != nil {
		return fmt.Errorf("delete repository %s: %w", name, err)
	}
	s.Forget(name)
	s.logger.Info("deleted repository", "repo", name)
	return nil
}

// Forget drops every cached entry for repo and the repository list.
func (s *Service) Forget(repo string) {
	s.cache.InvalidatePrefix(cache.RepoPrefix(repo))
	s.cache.Invalidate(cache.RepoListKey)
}

// Images joins the originals at the repository root with their thumbnails.
func (s *Service) Images(ctx context.Context, repo string, refresh bool) ([]RemoteImage, error) {
	root, err := s.listing(ctx, repo, "", refresh)
	if err != nil {
		return nil, fmt.Errorf("list images of %s: %w", repo, err)
	}
	thumbs, err := s.listing(ctx, repo, ThumbnailDir, refresh)
	if err != nil {
		return nil, fmt.Errorf("list thumbnails of %s: %w", repo, err)
	}

	byName := make(map[string]github.ContentEntry, len(thumbs))
	for _, t := range thumbs {
		if t.IsFile() {
			byName[t.Name] = t
		}
	}
	images := make([]RemoteImage, 0, len(root))
	for _, entry := range root {
		if !entry.IsFile() || !IsImageName(entry.Name) {
			continue
		}
		img := RemoteImage{
			Name:        entry.Name,
			Path:        entry.Path,
			Size:        entry.Size,
			SHA:         entry.SHA,
			DownloadURL: entry.DownloadURL,
		}
		if thumb, ok := byName[entry.Name]; ok {
			img.ThumbnailPath = thumb.Path
			img.ThumbnailURL = thumb.DownloadURL
			img.ThumbnailSize = thumb.Size
		}
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	if err := s.uploadDates(ctx, repo, images, refresh); err != nil {
		return nil, fmt.Errorf("list images of %s: %w", repo, err)
	}
	return images, nil
}

// uploadDates fills UploadedAt from the commit history, one path at a time
// and from cache where possible. A failed lookup leaves the date unset.
func (s *Service) uploadDates(ctx context.Context, repo string, images []RemoteImage, refresh bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dateLookups)
	for i := range images {
		p := images[i].ThumbnailPath
		if p == "" {
			p = images[i].Path
		}
		key := cache.CommitDateKey(repo, p)
		if !refresh {
			if date, ok := cache.Lookup[time.Time](s.cache, key); ok {
				images[i].UploadedAt = date
				continue
			}
		}
		g.Go(func() error {
			commits, err := s.api.ListCommits(gctx, repo, p, 1)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Debug("upload date unavailable", "repo", repo, "path", p, "err", err)
				return nil
			}
			if len(commits) == 0 {
				return nil
			}
			images[i].UploadedAt = commits[0].Date()
			s.cache.Set(key, images[i].UploadedAt, 0)
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) listing(ctx context.Context, repo, dir string, refresh bool) ([]github.ContentEntry, error) {
	key := cache.ContentsKey(repo, dir)
	if !refresh {
		if entries, ok := cache.Lookup[[]github.ContentEntry](s.cache, key); ok {
			return entries, nil
		}
	}
	entries, err := s.api.ListContents(ctx, repo, dir)
	if err != nil {
		if !errors.Is(err, github.ErrNotFound) {
			return nil, err
		}
		entries = nil
	}
	s.cache.Set(key, entries, 0)
	return entries, nil
}

// PagesStatus reads the live Pages status. It is never cached.
func (s *Service) PagesStatus(ctx context.Context, repo string) (github.PagesStatus, error) {
	status, err := s.api.GetPagesStatus(ctx, repo)
	if err != nil {
		return github.PagesStatus{}, fmt.Errorf("pages status of %s: %w", repo, err)
	}
	return status, nil
}

// IsImageName reports whether name has a JPEG or PNG extension.
func IsImageName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func cloneRepos(in []github.Repository) []github.Repository {
	if in == nil {
		return nil
	}
	out := make([]github.Repository, len(in))
	copy(out, in)
	return out
}
