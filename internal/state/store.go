package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lifetime-memories/albumkeeper/internal/cache"
	"github.com/lifetime-memories/albumkeeper/internal/catalog"
	"github.com/lifetime-memories/albumkeeper/internal/github"
	"github.com/lifetime-memories/albumkeeper/internal/pages"
	"github.com/lifetime-memories/albumkeeper/internal/upload"
)

// UploadProgress tracks the batch currently being uploaded.
type UploadProgress struct {
	BatchID   string
	Repo      string
	Total     int
	Succeeded int
	Failed    int
	Last      upload.Result
	Started   time.Time
	Finished  bool
}

// Done is the number of files that reached a terminal state.
func (p UploadProgress) Done() int {
	return p.Succeeded + p.Failed
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Owner       string
	Repos       []github.Repository
	ImagesRepo  string
	Images      []catalog.RemoteImage
	Upload      *UploadProgress
	Builds      map[string]pages.Update
	RateLimit   github.RateLimit
	Cache       cache.Stats
	LastUpdated time.Time
	LastError   error
	// ConsecutiveFailures counts repository refreshes that failed in a row.
	ConsecutiveFailures int
}

// IsOffline returns true when GitHub has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Build returns the latest build update seen for repo.
func (s Snapshot) Build(repo string) (pages.Update, bool) {
	u, ok := s.Builds[repo]
	return u, ok
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetOwner records the account the repositories belong to.
func (s *Store) SetOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Owner = owner
}

// Update replaces the repository list. When err is non-nil the previous data
// is kept but the error is recorded for visibility.
func (s *Store) Update(repos []github.Repository, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Repos = cloneSlice(repos)
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0

	known := make(map[string]struct{}, len(repos))
	for _, r := range repos {
		known[r.Name] = struct{}{}
	}
	for name := range s.snapshot.Builds {
		if _, ok := known[name]; !ok {
			delete(s.snapshot.Builds, name)
		}
	}
}

// SetImages stores the listing of repo, replacing any other repository's.
func (s *Store) SetImages(repo string, images []catalog.RemoteImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ImagesRepo = repo
	s.snapshot.Images = cloneSlice(images)
}

// BeginUpload starts tracking a batch.
func (s *Store) BeginUpload(batchID, repo string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Upload = &UploadProgress{BatchID: batchID, Repo: repo, Total: total, Started: time.Now()}
}

// RecordUpload counts one terminal result against the batch batchID. Results
// for any other batch are dropped.
func (s *Store) RecordUpload(batchID string, res upload.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.snapshot.Upload
	if p == nil || p.BatchID != batchID || p.Finished {
		return
	}
	if res.OK() {
		p.Succeeded++
	} else {
		p.Failed++
	}
	p.Last = res
}

// FinishUpload marks the batch complete.
func (s *Store) FinishUpload(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.snapshot.Upload; p != nil && p.BatchID == batchID {
		p.Finished = true
	}
}

// RecordBuild keeps the latest Pages update per repository.
func (s *Store) RecordBuild(u pages.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Builds == nil {
		s.snapshot.Builds = make(map[string]pages.Update)
	}
	s.snapshot.Builds[u.Repo] = u
}

// SetRateLimit records the last observed GitHub quota.
func (s *Store) SetRateLimit(rl github.RateLimit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.RateLimit = rl
}

// SetCacheStats records the cache counters.
func (s *Store) SetCacheStats(st cache.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Cache = st
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Repos = cloneSlice(s.snapshot.Repos)
	snap.Images = cloneSlice(s.snapshot.Images)
	if s.snapshot.Upload != nil {
		up := *s.snapshot.Upload
		snap.Upload = &up
	}
	if len(s.snapshot.Builds) > 0 {
		snap.Builds = make(map[string]pages.Update, len(s.snapshot.Builds))
		for k, v := range s.snapshot.Builds {
			snap.Builds[k] = v
		}
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

// BuildRepos lists the repositories with a recorded build, sorted.
func (s Snapshot) BuildRepos() []string {
	names := make([]string, 0, len(s.Builds))
	for name := range s.Builds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
