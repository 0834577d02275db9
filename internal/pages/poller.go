package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lifetime-memories/albumkeeper/internal/github"
)

const (
	DefaultInterval             = 5 * time.Second
	DefaultTimeout              = 5 * time.Minute
	DefaultMaxTransientFailures = 3
)

var (
	// ErrAlreadyRunning is returned by Start while a watch is active.
	ErrAlreadyRunning = errors.New("pages poller already running")
	// ErrTimedOut is attached to the timed-out update.
	ErrTimedOut = errors.New("pages build did not finish in time")
)

// Fetcher reads the current Pages status of a repository.
type Fetcher interface {
	GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error)
}

// Options tunes a Poller. Zero values take the defaults.
type Options struct {
	Interval             time.Duration
	Timeout              time.Duration
	MaxTransientFailures int
	// EmitTicks also reports every repeated building observation.
	EmitTicks bool
	Mapper    *Mapper
	Logger    *log.Logger
}

// Update is delivered to the callback on every transition.
type Update struct {
	Repo     string
	Status   Status
	Previous Status
	Raw      string
	Err      error
	Attempt  int
	At       time.Time
	SiteURL  string
}

// Baseline identifies the build a watch is waiting for. Builds older than it
// are reported as building, so a republish never settles on the previous
// build. The zero Baseline accepts any build.
type Baseline struct {
	// Commit is the sha of the commit that triggered the build.
	Commit string
	// Since is when the build was requested.
	Since time.Time
}

// IsZero reports whether b accepts any build.
func (b Baseline) IsZero() bool {
	return b.Commit == "" && b.Since.IsZero()
}

// Stale reports whether s describes a build that predates b. A build of the
// baseline commit is never stale; otherwise its creation time decides, and
// a different commit with no creation time is stale.
func (b Baseline) Stale(s github.PagesStatus) bool {
	if b.IsZero() || !s.Enabled || strings.TrimSpace(s.BuildStatus) == "" {
		return false
	}
	commitKnown := b.Commit != "" && s.BuildCommit != ""
	if commitKnown && strings.EqualFold(b.Commit, s.BuildCommit) {
		return false
	}
	if !b.Since.IsZero() && !s.BuildCreatedAt.IsZero() {
		return s.BuildCreatedAt.Before(b.Since)
	}
	return commitKnown
}

// Poller watches one repository's Pages build at a time.
type Poller struct {
	fetcher Fetcher
	opts    Options
	mapper  Mapper
	logger  *log.Logger

	mu      sync.Mutex
	current *watch
}

// NewPoller builds a Poller around fetcher.
func NewPoller(fetcher Fetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTransientFailures <= 0 {
		opts.MaxTransientFailures = DefaultMaxTransientFailures
	}
	mapper := DefaultMapper()
	if opts.Mapper != nil {
		mapper = *opts.Mapper
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		fetcher: fetcher,
		opts:    opts,
		mapper:  mapper,
		logger:  logger.WithPrefix("pages"),
	}
}

// watch is one Start..Stop lifetime.
type watch struct {
	id       string
	repo     string
	base     Baseline
	onUpdate func(Update)
	cancel   context.CancelFunc
	done     chan struct{}

	// gate orders Stop against emit's stopped check. A callback that passed
	// the check before Stop took gate may still run; nothing fetched after
	// that point is delivered.
	gate    sync.Mutex
	stopped bool
}

// Start begins watching repo, accepting whatever build is latest. The first
// poll is issued immediately.
func (p *Poller) Start(ctx context.Context, repo string, onUpdate func(Update)) error {
	return p.StartFrom(ctx, repo, Baseline{}, onUpdate)
}

// StartFrom is Start for a build requested at base: older builds count as
// building.
func (p *Poller) StartFrom(ctx context.Context, repo string, base Baseline, onUpdate func(Update)) error {
	if p == nil || p.fetcher == nil {
		return fmt.Errorf("pages poller has no fetcher")
	}
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		select {
		case <-p.current.done:
		default:
			return ErrAlreadyRunning
		}
	}

	parent := ctx
	stopCtx, cancel := context.WithCancel(parent)
	w := &watch{
		id:       uuid.NewString(),
		repo:     repo,
		base:     base,
		onUpdate: onUpdate,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.current = w
	go p.run(parent, stopCtx, w)
	return nil
}

// Stop ends the active watch. It is idempotent and may be called from any
// goroutine, including from inside the update callback. Once Stop returns no
// further poll is made and no poll result is delivered; a callback already
// handed its update may still be running.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	w := p.current
	p.mu.Unlock()
	if w == nil {
		return
	}
	w.gate.Lock()
	w.stopped = true
	w.gate.Unlock()
	w.cancel()
}

// Done is closed when the active watch's loop exits. Without a watch it is
// already closed.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.current.done
}

// Wait blocks until the active watch's loop exits. Do not call it from the
// update callback.
func (p *Poller) Wait() {
	<-p.Done()
}

// Running reports whether a watch is active.
func (p *Poller) Running() bool {
	select {
	case <-p.Done():
		return false
	default:
		return true
	}
}

func (w *watch) isStopped() bool {
	w.gate.Lock()
	defer w.gate.Unlock()
	return w.stopped
}

func (w *watch) emit(u Update) bool {
	w.gate.Lock()
	if w.stopped {
		w.gate.Unlock()
		return false
	}
	w.gate.Unlock()
	w.onUpdate(u)
	return true
}

func (p *Poller) run(parent, stopCtx context.Context, w *watch) {
	defer close(w.done)
	defer w.cancel()

	ctx, cancelTimeout := context.WithTimeout(stopCtx, p.opts.Timeout)
	defer cancelTimeout()

	logger := p.logger.With("repo", w.repo, "watch", w.id)
	logger.Info("watching pages build", "interval", p.opts.Interval, "timeout", p.opts.Timeout)

	var (
		status       Status
		seenBuilding bool
		failures     int
		attempt      int
		siteURL      string
	)

	timedOut := func() {
		if parent.Err() != nil || w.isStopped() {
			return
		}
		logger.Warn("pages build timed out", "attempts", attempt, "last", status)
		w.emit(Update{
			Repo:     w.repo,
			Status:   TimedOut,
			Previous: status,
			Err:      ErrTimedOut,
			Attempt:  attempt,
			At:       time.Now(),
			SiteURL:  siteURL,
		})
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				timedOut()
			}
			return
		case <-timer.C:
		}

		attempt++
		raw, err := p.fetcher.GetPagesStatus(ctx, w.repo)
		if w.isStopped() {
			return
		}
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				timedOut()
			}
			return
		}

		next := status
		if next == "" {
			next = NotStarted
		}
		var rawStatus string
		var updateErr error
		switch {
		case err == nil:
			failures = 0
			rawStatus = raw.Raw()
			if raw.HTMLURL != "" {
				siteURL = raw.HTMLURL
			}
			if w.base.Stale(raw) {
				logger.Debug("latest pages build predates this publish", "raw", rawStatus, "commit", raw.BuildCommit, "created", raw.BuildCreatedAt)
				next = Building
				break
			}
			mapped, known := p.mapper.Map(rawStatus)
			if !known {
				logger.Warn("unknown pages status, treating as building", "raw", rawStatus)
			}
			next = mapped
			if next == Failed && raw.BuildError != "" {
				updateErr = fmt.Errorf("pages build failed: %s", raw.BuildError)
			}
		case github.IsRetryable(err):
			failures++
			logger.Warn("pages status check failed", "attempt", attempt, "failures", failures, "err", err)
			if failures <= p.opts.MaxTransientFailures {
				// Within budget the status stays where it was and nothing
				// is reported.
				timer.Reset(p.opts.Interval)
				continue
			}
			next = Failed
			updateErr = err
		default:
			logger.Error("pages status check failed", "attempt", attempt, "err", err)
			next = Failed
			updateErr = err
		}

		if next == Building {
			seenBuilding = true
		}
		if next == NotStarted && seenBuilding {
			next = Building
		}

		transition := next != status
		tick := !transition && next == Building && p.opts.EmitTicks
		if transition || tick {
			if transition {
				logger.Info("pages build status", "status", next, "previous", status, "attempt", attempt)
			}
			if !w.emit(Update{
				Repo:     w.repo,
				Status:   next,
				Previous: status,
				Raw:      rawStatus,
				Err:      updateErr,
				Attempt:  attempt,
				At:       time.Now(),
				SiteURL:  siteURL,
			}) {
				return
			}
		}
		status = next
		if status.Terminal() {
			return
		}
		timer.Reset(p.opts.Interval)
	}
}
