package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/config"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/imaging"
	"github.com/lifetime-memories/albumkeeper/internal/logging"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/prefs"
	"github.com/lifetime-memories/albumkeeper/internal/publish"
	"github.com/lifetime-memories/albumkeeper/internal/state"
	"github.com/lifetime-memories/albumkeeper/internal/ui"
	"github.com/lifetime-memories/albumkeeper/internal/upload"
)

// Options configure the albumkeeper application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/albumkeeper/prefs.toml
	EnvFile    string // empty uses ./.env
	LogLevel   string // overrides the configured level
	PollEvery  time.Duration
	// Version is reported in the User-Agent header.
	Version string
	// Stderr also receives warn and error records. Leave nil under the TUI.
	Stderr io.Writer
}

// App holds every wired service for one process.
type App struct {
	Config    config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *log.Logger
	LogPath   string
	Client    *github.Client
	Cache     *cache.Cache
	Catalog   *catalog.Service
	Uploader  *upload.Orchestrator
	Publisher *publish.Publisher
	Poller    *pages.Poller
	Mapper    pages.Mapper
	Store     *state.Store

	session *logging.Session
}

// New loads configuration, opens the session log and wires the services.
// Nothing talks to GitHub yet.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	session, err := logging.Setup(logging.Options{Dir: cfg.LogDir, Level: level, Stderr: opts.Stderr})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logger := session.Logger

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	token, source, err := cfg.ResolveToken(envFile)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	mapper, err := cfg.Mapper()
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	retries := cfg.HTTP.Retries
	if retries == 0 {
		retries = -1
	}
	client, err := github.NewClient(github.Options{
		BaseURL:       cfg.APIBase,
		Token:         token,
		Owner:         cfg.Org,
		UserAgent:     userAgent(opts.Version),
		Timeout:       cfg.HTTP.Timeout,
		RetryMax:      retries,
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
		Logger:        logger,
	})
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("init github client: %w", err)
	}

	c := cache.New(cache.Options{
		Enabled:    cfg.Cache.Enabled,
		DefaultTTL: cfg.Cache.TTL,
		MaxItems:   cfg.Cache.MaxItems,
		Logger:     logger,
	})
	cat := catalog.NewService(client, c, logger)

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("using default preferences", "err", err)
	}

	a := &App{
		Config:    cfg,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
		LogPath:   session.Path,
		Client:    client,
		Cache:     c,
		Catalog:   cat,
		Uploader: upload.New(client, upload.Options{
			Fanout:      cfg.Upload.Fanout,
			Branch:      cfg.Pages.Branch,
			Thumbnailer: imaging.Thumbnailer{Size: cfg.Thumbnail.Size, Quality: cfg.Thumbnail.Quality},
			Cache:       c,
			Logger:      logger,
		}),
		Publisher: publish.NewPublisher(cat, client, client.Owner(), cfg.Pages.Branch, logger),
		Poller: pages.NewPoller(client, pages.Options{
			Interval:             cfg.Pages.Interval,
			Timeout:              cfg.Pages.Timeout,
			MaxTransientFailures: cfg.Pages.MaxTransientFailures,
			Mapper:               &mapper,
			Logger:               logger,
		}),
		Mapper:  mapper,
		Store:   &state.Store{},
		session: session,
	}
	a.Store.SetOwner(client.Owner())
	logger.Info("albumkeeper started", "owner", client.Owner(), "api", cfg.APIBase, "token_source", source)
	return a, nil
}

// Close stops background work and closes the session log.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.StopWatch()
	a.Cache.Close()
	a.Logger.Info("albumkeeper stopped")
	return a.session.Close()
}

// Refresh reloads the repository list into the store, serving from cache
// when the entry is still fresh.
func (a *App) Refresh(ctx context.Context) error {
	_, err := a.Repositories(ctx, false)
	return err
}

// Repositories lists gallery repositories and records the result, the
// quota and the cache counters in the store.
func (a *App) Repositories(ctx context.Context, refresh bool) ([]github.Repository, error) {
	repos, err := a.Catalog.Repositories(ctx, refresh)
	a.Store.Update(repos, err)
	a.Store.SetRateLimit(a.Client.RateLimit())
	a.Store.SetCacheStats(a.Cache.Stats())
	return repos, err
}

// CreateRepo validates name and creates the repository.
func (a *App) CreateRepo(ctx context.Context, name, description string) (*github.Repository, error) {
	return a.Catalog.Create(ctx, name, description)
}

// DeleteRepo removes a repository and any build state kept for it.
func (a *App) DeleteRepo(ctx context.Context, name string) error {
	return a.Catalog.Delete(ctx, name)
}

// Images lists the photos of repo and records them in the store.
func (a *App) Images(ctx context.Context, repo string, refresh bool) ([]catalog.RemoteImage, error) {
	images, err := a.Catalog.Images(ctx, repo, refresh)
	if err == nil {
		a.Store.SetImages(repo, images)
	}
	a.Store.SetCacheStats(a.Cache.Stats())
	return images, err
}

// Upload runs a batch, tracking its progress in the store.
func (a *App) Upload(ctx context.Context, repo string, files []string, onProgress func(upload.Result)) upload.Report {
	batchID := uuid.NewString()
	a.Store.BeginUpload(batchID, repo, len(files))
	report := a.Uploader.UploadBatch(ctx, batchID, repo, files, func(res upload.Result) {
		a.Store.RecordUpload(batchID, res)
		if onProgress != nil {
			onProgress(res)
		}
	})
	a.Store.FinishUpload(batchID)
	a.Store.SetRateLimit(a.Client.RateLimit())
	return report
}

// Publish deploys the gallery and watches the Pages build. ctx bounds the
// watch as well, so pass a long-lived context.
func (a *App) Publish(ctx context.Context, repo string, opts publish.Options, onUpdate func(pages.Update)) (publish.Result, error) {
	a.StopWatch()
	return a.Publisher.PublishAndWatch(ctx, repo, opts, a.Poller, a.recordBuild(onUpdate))
}

// Watch follows the Pages build of repo without publishing.
func (a *App) Watch(ctx context.Context, repo string, onUpdate func(pages.Update)) error {
	a.StopWatch()
	return a.Poller.Start(ctx, repo, a.recordBuild(onUpdate))
}

// StopWatch ends the current build watch, if any, and waits for it to exit.
// Do not call it from an update callback.
func (a *App) StopWatch() {
	a.Poller.Stop()
	a.Poller.Wait()
}

// PagesStatus reads the current Pages status of repo once and records it.
func (a *App) PagesStatus(ctx context.Context, repo string) (pages.Update, error) {
	raw, err := a.Catalog.PagesStatus(ctx, repo)
	a.Store.SetRateLimit(a.Client.RateLimit())
	if err != nil {
		return pages.Update{}, err
	}
	status, known := a.Mapper.Map(raw.Raw())
	if !known {
		a.Logger.Warn("unknown pages status", "repo", repo, "raw", raw.Raw())
	}
	u := pages.Update{Repo: repo, Status: status, Raw: raw.Raw(), At: raw.CheckedAt, SiteURL: raw.HTMLURL}
	if u.At.IsZero() {
		u.At = time.Now()
	}
	if prev, ok := a.Store.Snapshot().Build(repo); ok {
		u.Previous = prev.Status
	}
	a.Store.RecordBuild(u)
	return u, nil
}

func (a *App) recordBuild(onUpdate func(pages.Update)) func(pages.Update) {
	return func(u pages.Update) {
		a.Store.RecordBuild(u)
		a.Store.SetRateLimit(a.Client.RateLimit())
		if onUpdate != nil {
			onUpdate(u)
		}
	}
}

// SavePrefs persists p and keeps it as the current preferences.
func (a *App) SavePrefs(p prefs.Prefs) error {
	a.Prefs = p
	return prefs.Save(a.PrefsPath, p)
}

func userAgent(version string) string {
	if version == "" {
		return ""
	}
	return "albumkeeper/" + version
}

// Run boots the albumkeeper TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	a, err := New(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	interval := a.Config.Refresh
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}

	// Do initial refresh to populate store before UI starts
	if err := a.Refresh(ctx); err != nil && errors.Is(err, github.ErrAuth) {
		return err
	}

	StartPoller(ctx, a, interval, a.Logger)

	return ui.Run(ui.Options{
		Context:   ctx,
		Backend:   a,
		Store:     a.Store,
		Logger:    a.Logger,
		LogPath:   a.LogPath,
		LogDir:    a.Config.LogDir,
		Prefs:     a.Prefs,
		SavePrefs: a.SavePrefs,
		Layout:    a.Config.Pages.Layout,
		PollTick:  interval,
	})
}
