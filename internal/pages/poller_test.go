package pages

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/logging"
)

type step struct {
	status github.PagesStatus
	err    error
}

// scriptedFetcher replays steps in order and repeats the last one forever.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []step
	calls atomic.Int32
}

func (f *scriptedFetcher) GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error) {
	n := int(f.calls.Add(1))
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := n - 1
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	s := f.steps[idx]
	return s.status, s.err
}

func build(raw string) step {
	if raw == github.NotEnabled {
		return step{status: github.PagesStatus{}}
	}
	return step{status: github.PagesStatus{Enabled: true, BuildStatus: raw, HTMLURL: "https://lifetime-memories.github.io/album/"}}
}

func failure(kind github.Kind) step {
	return step{err: &github.APIError{Kind: kind, Status: 502}}
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) record(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func (r *recorder) count(s Status) int {
	n := 0
	for _, u := range r.snapshot() {
		if u.Status == s {
			n++
		}
	}
	return n
}

func newTestPoller(f Fetcher, mutate ...func(*Options)) *Poller {
	opts := Options{
		Interval: 5 * time.Millisecond,
		Timeout:  2 * time.Second,
		Logger:   logging.Discard(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return NewPoller(f, opts)
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("poller did not finish")
	}
}

func TestPoller_CompletedStopsPolling(t *testing.T) {
	f := &scriptedFetcher{steps: []step{build("queued"), build("building"), build("built")}}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)
	time.Sleep(30 * time.Millisecond)

	if got := f.calls.Load(); got != 3 {
		t.Fatalf("fetch count = %d, want 3", got)
	}
	if got := rec.count(Completed); got != 1 {
		t.Fatalf("completed updates = %d, want 1", got)
	}
	updates := rec.snapshot()
	last := updates[len(updates)-1]
	if last.Status != Completed || last.Previous != Building || last.Attempt != 3 {
		t.Fatalf("last update = %+v, want completed from building on attempt 3", last)
	}
	if last.SiteURL == "" {
		t.Fatalf("SiteURL empty on completed update")
	}
	if len(updates) != 2 {
		t.Fatalf("updates = %d, want building then completed", len(updates))
	}
}

func TestPoller_TimeoutEmitsOnce(t *testing.T) {
	f := &scriptedFetcher{steps: []step{build("building")}}
	p := newTestPoller(f, func(o *Options) {
		o.Timeout = 60 * time.Millisecond
		o.EmitTicks = true
	})
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)
	calls := f.calls.Load()
	time.Sleep(40 * time.Millisecond)

	if got := rec.count(TimedOut); got != 1 {
		t.Fatalf("timed-out updates = %d, want 1", got)
	}
	updates := rec.snapshot()
	last := updates[len(updates)-1]
	if last.Status != TimedOut || !errors.Is(last.Err, ErrTimedOut) {
		t.Fatalf("last update = %+v, want timed-out", last)
	}
	if got := f.calls.Load(); got != calls {
		t.Fatalf("fetch count grew after timeout: %d -> %d", calls, got)
	}
	if len(updates) != len(rec.snapshot()) {
		t.Fatalf("updates arrived after timeout")
	}
}

type blockingFetcher struct {
	calls atomic.Int32
}

func (b *blockingFetcher) GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return github.PagesStatus{Enabled: true, BuildStatus: "built"}, nil
}

func TestPoller_StopBeforeFirstPollYieldsNothing(t *testing.T) {
	f := &blockingFetcher{}
	p := newTestPoller(f)
	var callbacks atomic.Int32

	if err := p.Start(context.Background(), "album", func(Update) { callbacks.Add(1) }); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	p.Stop()
	p.Stop()
	waitDone(t, p)

	if got := callbacks.Load(); got != 0 {
		t.Fatalf("callbacks = %d, want 0", got)
	}
}

func TestPoller_TimeoutCancelsInFlightPoll(t *testing.T) {
	f := &blockingFetcher{}
	p := newTestPoller(f, func(o *Options) { o.Timeout = 30 * time.Millisecond })
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 1 || updates[0].Status != TimedOut {
		t.Fatalf("updates = %+v, want a single timed-out", updates)
	}
}

func TestPoller_TransientFailuresWithinBudget(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		build("building"),
		failure(github.KindTransient),
		failure(github.KindRateLimited),
		failure(github.KindTransient),
		build("built"),
	}}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	if rec.count(Failed) != 0 {
		t.Fatalf("got failed update within transient budget: %+v", rec.snapshot())
	}
	if rec.count(Completed) != 1 {
		t.Fatalf("completed updates = %d, want 1", rec.count(Completed))
	}
}

func TestPoller_TransientBudgetExhausted(t *testing.T) {
	f := &scriptedFetcher{steps: []step{build("building"), failure(github.KindTransient)}}
	p := newTestPoller(f, func(o *Options) { o.MaxTransientFailures = 2 })
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	last := updates[len(updates)-1]
	if last.Status != Failed || !errors.Is(last.Err, github.ErrTransient) {
		t.Fatalf("last update = %+v, want failed with transient error", last)
	}
	if got := f.calls.Load(); got != 4 {
		t.Fatalf("fetch count = %d, want 1 success + 3 failures", got)
	}
}

func TestPoller_AuthFailureIsImmediate(t *testing.T) {
	f := &scriptedFetcher{steps: []step{failure(github.KindAuth)}}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 1 || updates[0].Status != Failed || updates[0].Attempt != 1 {
		t.Fatalf("updates = %+v, want one failed on attempt 1", updates)
	}
	if !errors.Is(updates[0].Err, github.ErrAuth) {
		t.Fatalf("Err = %v, want auth", updates[0].Err)
	}
}

func TestPoller_NeverRegressesToNotStarted(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		build(github.NotEnabled),
		build("building"),
		build(github.NotEnabled),
		build("built"),
	}}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	var got []Status
	for _, u := range rec.snapshot() {
		got = append(got, u.Status)
	}
	want := []Status{NotStarted, Building, Completed}
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
}

func TestPoller_StopFromCallback(t *testing.T) {
	f := &scriptedFetcher{steps: []step{build("building")}}
	p := newTestPoller(f, func(o *Options) { o.EmitTicks = true })
	var callbacks atomic.Int32

	err := p.Start(context.Background(), "album", func(Update) {
		callbacks.Add(1)
		p.Stop()
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)
	time.Sleep(20 * time.Millisecond)

	if got := callbacks.Load(); got != 1 {
		t.Fatalf("callbacks = %d, want 1", got)
	}
}

func TestPoller_StartWhileRunning(t *testing.T) {
	f := &blockingFetcher{}
	p := newTestPoller(f)
	if err := p.Start(context.Background(), "a", nil); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := p.Start(context.Background(), "b", nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	p.Stop()
	p.Wait()
	if p.Running() {
		t.Fatalf("Running = true after Wait")
	}
	if err := p.Start(context.Background(), "b", nil); err != nil {
		t.Fatalf("Start after Stop returned error: %v", err)
	}
	p.Stop()
	p.Wait()
}

func TestPoller_EmitTicks(t *testing.T) {
	f := &scriptedFetcher{steps: []step{build("building"), build("building"), build("building"), build("built")}}
	p := newTestPoller(f, func(o *Options) { o.EmitTicks = true })
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	if got := rec.count(Building); got != 3 {
		t.Fatalf("building updates = %d, want 3", got)
	}
}

func TestPoller_CustomMapper(t *testing.T) {
	m, err := NewMapper(map[string]string{"built": "building", "deployed": "completed"})
	if err != nil {
		t.Fatalf("NewMapper returned error: %v", err)
	}
	f := &scriptedFetcher{steps: []step{build("built"), build("deployed")}}
	p := newTestPoller(f, func(o *Options) { o.Mapper = &m })
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 2 || updates[1].Status != Completed || updates[1].Raw != "deployed" {
		t.Fatalf("updates = %+v, want building then completed via deployed", updates)
	}
}

func TestMapper(t *testing.T) {
	m := DefaultMapper()
	cases := map[string]Status{
		"":                NotStarted,
		github.NotEnabled: NotStarted,
		"queued":          Building,
		"BUILDING":        Building,
		"built":           Completed,
		"errored":         Failed,
	}
	for raw, want := range cases {
		got, known := m.Map(raw)
		if got != want || !known {
			t.Fatalf("Map(%q) = %v, %v; want %v, true", raw, got, known, want)
		}
	}
	if got, known := m.Map("mystery"); got != Building || known {
		t.Fatalf("Map(mystery) = %v, %v; want building, false", got, known)
	}
	if _, err := NewMapper(map[string]string{"x": "exploded"}); err == nil {
		t.Fatalf("NewMapper accepted unknown status")
	}
}

func TestPoller_StartFromIgnoresPreviousBuild(t *testing.T) {
	requested := time.Now()
	previous := github.PagesStatus{
		Enabled:        true,
		BuildStatus:    "built",
		BuildCommit:    "0ld5ha",
		BuildCreatedAt: requested.Add(-time.Hour),
	}
	fresh := func(raw string) step {
		return step{status: github.PagesStatus{
			Enabled:        true,
			BuildStatus:    raw,
			BuildCommit:    "c0ffee",
			BuildCreatedAt: requested.Add(time.Second),
		}}
	}
	f := &scriptedFetcher{steps: []step{{status: previous}, {status: previous}, fresh("building"), fresh("built")}}
	p := newTestPoller(f)
	rec := &recorder{}

	base := Baseline{Commit: "c0ffee", Since: requested}
	if err := p.StartFrom(context.Background(), "album", base, rec.record); err != nil {
		t.Fatalf("StartFrom returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 2 || updates[0].Status != Building || updates[1].Status != Completed {
		t.Fatalf("updates = %+v, want building then completed", updates)
	}
	if updates[1].Attempt != 4 {
		t.Fatalf("completed on attempt %d, want 4", updates[1].Attempt)
	}
	if got := f.calls.Load(); got != 4 {
		t.Fatalf("fetch count = %d, want 4", got)
	}
}

func TestBaseline_Stale(t *testing.T) {
	since := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	built := func(commit string, created time.Time) github.PagesStatus {
		return github.PagesStatus{Enabled: true, BuildStatus: "built", BuildCommit: commit, BuildCreatedAt: created}
	}
	tests := []struct {
		name   string
		base   Baseline
		status github.PagesStatus
		want   bool
	}{
		{"zero baseline", Baseline{}, built("old", since.Add(-time.Hour)), false},
		{"same commit", Baseline{Commit: "new", Since: since}, built("NEW", since.Add(-time.Minute)), false},
		{"older build", Baseline{Commit: "new", Since: since}, built("old", since.Add(-time.Hour)), true},
		{"newer build of a later commit", Baseline{Commit: "new", Since: since}, built("later", since.Add(time.Minute)), false},
		{"other commit without time", Baseline{Commit: "new"}, built("old", time.Time{}), true},
		{"time only", Baseline{Since: since}, built("", since.Add(-time.Second)), true},
		{"no build yet", Baseline{Commit: "new", Since: since}, github.PagesStatus{Enabled: true, SiteStatus: "built"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.base.Stale(tt.status); got != tt.want {
				t.Errorf("Stale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPoller_TransientFirstPollEmitsNothing(t *testing.T) {
	f := &scriptedFetcher{steps: []step{failure(github.KindTransient), build("built")}}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 1 || updates[0].Status != Completed || updates[0].Err != nil {
		t.Fatalf("updates = %+v, want a single completed", updates)
	}
}

// gatedFetcher answers the first poll at once and holds later polls until
// release is closed.
type gatedFetcher struct {
	calls   atomic.Int32
	waiting chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) GetPagesStatus(ctx context.Context, repo string) (github.PagesStatus, error) {
	if g.calls.Add(1) == 1 {
		return github.PagesStatus{Enabled: true, BuildStatus: "building"}, nil
	}
	select {
	case g.waiting <- struct{}{}:
	default:
	}
	<-g.release
	return github.PagesStatus{Enabled: true, BuildStatus: "built"}, nil
}

func TestPoller_StopDiscardsResultFetchedAfterwards(t *testing.T) {
	f := &gatedFetcher{waiting: make(chan struct{}, 1), release: make(chan struct{})}
	p := newTestPoller(f)
	rec := &recorder{}

	if err := p.Start(context.Background(), "album", rec.record); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	select {
	case <-f.waiting:
	case <-time.After(3 * time.Second):
		t.Fatalf("second poll never started")
	}
	p.Stop()
	close(f.release)
	waitDone(t, p)

	updates := rec.snapshot()
	if len(updates) != 1 || updates[0].Status != Building {
		t.Fatalf("updates = %+v, want only the building update seen before Stop", updates)
	}
}
