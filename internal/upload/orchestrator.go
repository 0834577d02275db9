package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/imaging"
)

// DefaultFanout bounds how many files are in flight at once.
const DefaultFanout = 8

// API writes files into a repository.
type API interface {
	PutFile(ctx context.Context, repo string, file github.FileUpload) (*github.ContentEntry, error)
}

// Options configures an Orchestrator.
type Options struct {
	Fanout      int
	Branch      string
	Thumbnailer imaging.Thumbnailer
	Cache       *cache.Cache
	Logger      *log.Logger
}

// Orchestrator validates, thumbnails and uploads batches of photos.
type Orchestrator struct {
	api    API
	fanout int
	branch string
	thumbs imaging.Thumbnailer
	cache  *cache.Cache
	decode *semaphore.Weighted
	logger *log.Logger
}

// New builds an Orchestrator.
func New(api API, opts Options) *Orchestrator {
	fanout := opts.Fanout
	if fanout <= 0 {
		fanout = DefaultFanout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		api:    api,
		fanout: fanout,
		branch: opts.Branch,
		thumbs: opts.Thumbnailer,
		cache:  opts.Cache,
		decode: semaphore.NewWeighted(int64(runtime.NumCPU())),
		logger: logger.WithPrefix("upload"),
	}
}

// Upload sends every file in files to repo. Failures are per file and never
// stop the batch. onProgress, when set, receives each file's terminal result
// from a worker goroutine. Calls are serialised and should return quickly.
func (o *Orchestrator) Upload(ctx context.Context, repo string, files []string, onProgress func(Result)) Report {
	return o.UploadBatch(ctx, uuid.NewString(), repo, files, onProgress)
}

// UploadBatch is Upload with a caller-chosen batch id.
func (o *Orchestrator) UploadBatch(ctx context.Context, batchID, repo string, files []string, onProgress func(Result)) Report {
	report := Report{
		BatchID: batchID,
		Repo:    repo,
		Started: time.Now(),
	}
	logger := o.logger.With("repo", repo, "batch", report.BatchID)
	logger.Info("upload started", "files", len(files), "fanout", o.fanout)

	var mu sync.Mutex
	finish := func(res Result) {
		if res.State != Uploaded {
			res.State = Failed
		}
		if res.OK() {
			logger.Info("uploaded", "file", res.Filename, "size", res.Size)
		} else {
			logger.Warn("upload failed", "file", res.Filename, "reason", res.Reason, "err", res.Err)
		}
		mu.Lock()
		defer mu.Unlock()
		report.Results = append(report.Results, res)
		if onProgress != nil {
			onProgress(res)
		}
	}

	seen := make(map[string]string, len(files))
	var g errgroup.Group
	g.SetLimit(o.fanout)
	for _, local := range files {
		res := Result{
			Filename:  filepath.Base(local),
			LocalPath: local,
			State:     Pending,
		}
		res.RemotePath = res.Filename
		res.ThumbnailPath = path.Join(catalog.ThumbnailDir, res.Filename)

		if first, dup := seen[res.Filename]; dup {
			res.Reason = ReasonDuplicate
			res.Err = fmt.Errorf("same file name as %s", first)
			finish(res)
			continue
		}
		seen[res.Filename] = local

		if err := ctx.Err(); err != nil {
			res.Reason = ReasonCanceled
			res.Err = err
			finish(res)
			continue
		}
		g.Go(func() error {
			finish(o.uploadOne(ctx, repo, res))
			return nil
		})
	}
	_ = g.Wait()

	report.sort()
	report.Finished = time.Now()
	succeeded := len(report.Succeeded())
	if succeeded > 0 {
		o.cache.InvalidatePrefix(cache.RepoPrefix(repo))
	}
	logger.Info("upload finished", "succeeded", succeeded, "failed", len(report.Results)-succeeded,
		"elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report
}

func (o *Orchestrator) uploadOne(ctx context.Context, repo string, res Result) Result {
	fail := func(reason Reason, err error) Result {
		if ctx.Err() != nil {
			reason = ReasonCanceled
			err = ctx.Err()
		}
		res.Reason = reason
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(ReasonCanceled, err)
	}
	res.State = Processing
	if _, err := imaging.Validate(res.LocalPath); err != nil {
		return fail(ReasonValidation, err)
	}
	if info, err := os.Stat(res.LocalPath); err == nil {
		res.Size = info.Size()
	}

	if err := o.decode.Acquire(ctx, 1); err != nil {
		return fail(ReasonCanceled, err)
	}
	img, err := o.thumbs.Make(res.LocalPath)
	o.decode.Release(1)
	if err != nil {
		return fail(ReasonImage, err)
	}
	res.Width, res.Height, res.TakenAt = img.Width, img.Height, img.TakenAt

	res.State = Uploading
	entry, err := o.api.PutFile(ctx, repo, github.FileUpload{
		Path:      res.RemotePath,
		Content:   img.Original,
		Message:   "Add " + res.Filename,
		Branch:    o.branch,
		Overwrite: true,
	})
	if err != nil {
		res.Kind = github.KindOf(err)
		return fail(ReasonUpload, fmt.Errorf("upload original: %w", err))
	}
	res.SHA = entry.SHA

	if _, err := o.api.PutFile(ctx, repo, github.FileUpload{
		Path:      res.ThumbnailPath,
		Content:   img.Thumbnail,
		Message:   "Add thumbnail for " + res.Filename,
		Branch:    o.branch,
		Overwrite: true,
	}); err != nil {
		res.Kind = github.KindOf(err)
		return fail(ReasonUpload, fmt.Errorf("upload thumbnail: %w", err))
	}
	res.State = Uploaded
	return res
}

