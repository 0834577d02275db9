package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
)

// IndexPath is where the gallery page is committed.
const IndexPath = "index.html"

// ErrNoImages is wrapped when a repository has nothing to publish.
var ErrNoImages = errors.New("repository has no images to publish")

// Catalog lists the images already in a repository.
type Catalog interface {
	Images(ctx context.Context, repo string, refresh bool) ([]catalog.RemoteImage, error)
}

// API is the part of the GitHub client used to publish.
type API interface {
	PutFile(ctx context.Context, repo string, file github.FileUpload) (*github.ContentEntry, error)
	EnablePages(ctx context.Context, repo, branch string) error
	RequestPagesBuild(ctx context.Context, repo string) error
}

// Watcher follows the Pages build after publishing, ignoring builds older
// than base.
type Watcher interface {
	StartFrom(ctx context.Context, repo string, base pages.Baseline, onUpdate func(pages.Update)) error
}

// Options controls one publish.
type Options struct {
	Layout      Layout
	Title       string
	Description string
}

// Result describes a finished publish.
type Result struct {
	SiteURL  string
	Images   int
	IndexSHA string
	// Baseline identifies the build this publish requested.
	Baseline pages.Baseline
}

// Publisher renders and deploys gallery pages.
type Publisher struct {
	catalog Catalog
	api     API
	owner   string
	branch  string
	now     func() time.Time
	logger  *log.Logger
}

// NewPublisher builds a Publisher committing to branch. owner is used to
// derive the site URL; empty leaves it to the Pages API.
func NewPublisher(cat Catalog, api API, owner, branch string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(branch) == "" {
		branch = "main"
	}
	return &Publisher{
		catalog: cat,
		api:     api,
		owner:   strings.TrimSpace(owner),
		branch:  branch,
		now:     time.Now,
		logger:  logger.WithPrefix("publish"),
	}
}

// SiteURL is the default Pages address of a repository.
func SiteURL(owner, repo string) string {
	if owner == "" || repo == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.github.io/%s/", strings.ToLower(owner), repo)
}

// Publish commits a fresh index.html, makes sure Pages is enabled and asks
// for a build.
func (p *Publisher) Publish(ctx context.Context, repo string, opts Options) (Result, error) {
	images, err := p.catalog.Images(ctx, repo, true)
	if err != nil {
		return Result{}, err
	}
	if len(images) == 0 {
		return Result{}, &github.APIError{Kind: github.KindValidation, Message: repo, Err: ErrNoImages}
	}
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = repo
	}
	html, err := Render(Page{
		Title:       title,
		Description: opts.Description,
		Layout:      opts.Layout,
		Images:      images,
		Generated:   p.now(),
	})
	if err != nil {
		return Result{}, err
	}

	entry, err := p.api.PutFile(ctx, repo, github.FileUpload{
		Path:      IndexPath,
		Content:   html,
		Message:   fmt.Sprintf("Update gallery (%d photos)", len(images)),
		Branch:    p.branch,
		Overwrite: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("commit %s: %w", IndexPath, err)
	}
	if err := p.api.EnablePages(ctx, repo, p.branch); err != nil {
		return Result{}, fmt.Errorf("enable pages: %w", err)
	}
	requested := p.now()
	if err := p.api.RequestPagesBuild(ctx, repo); err != nil {
		return Result{}, fmt.Errorf("request pages build: %w", err)
	}

	res := Result{
		SiteURL:  SiteURL(p.owner, repo),
		Images:   len(images),
		IndexSHA: entry.SHA,
		Baseline: pages.Baseline{Commit: entry.CommitSHA, Since: requested},
	}
	p.logger.Info("published gallery", "repo", repo, "images", res.Images, "layout", opts.Layout)
	return res, nil
}

// PublishAndWatch publishes and then starts w on the repository from the
// publish's baseline, forwarding its updates to onUpdate.
func (p *Publisher) PublishAndWatch(ctx context.Context, repo string, opts Options, w Watcher, onUpdate func(pages.Update)) (Result, error) {
	res, err := p.Publish(ctx, repo, opts)
	if err != nil {
		return res, err
	}
	if err := w.StartFrom(ctx, repo, res.Baseline, onUpdate); err != nil {
		return res, fmt.Errorf("watch pages build: %w", err)
	}
	return res, nil
}
