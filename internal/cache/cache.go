package cache

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxItems = 1000
	defaultJanitor  = time.Minute
)

// Options configures a Cache.
type Options struct {
	Enabled    bool
	DefaultTTL time.Duration
	MaxItems   int
	// JanitorInterval is how often expired entries are swept in the
	// background. Negative disables the janitor.
	JanitorInterval time.Duration
	Now             func() time.Time
	Logger          *log.Logger
}

// DefaultOptions returns an enabled cache with the stock limits.
func DefaultOptions() Options {
	return Options{
		Enabled:         true,
		DefaultTTL:      DefaultTTL,
		MaxItems:        DefaultMaxItems,
		JanitorInterval: defaultJanitor,
	}
}

// Entry is a stored value and the time it was written.
type Entry struct {
	Key        string
	Value      any
	InsertedAt time.Time
	TTL        time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Stats summarises the cache for display.
type Stats struct {
	Total   int
	Valid   int
	Expired int
	Max     int
	Enabled bool
	Hits    uint64
	Misses  uint64
}

// Cache is a process-local TTL cache. It is safe for concurrent use.
type Cache struct {
	store    *gocache.Cache
	enabled  bool
	ttl      time.Duration
	maxItems int
	now      func() time.Time
	logger   *log.Logger

	// mu serialises writers and expiry deletes; reads go straight to store.
	mu     sync.Mutex
	hits   atomic.Uint64
	misses atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a Cache and starts its janitor.
func New(opts Options) *Cache {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &Cache{
		store:    gocache.New(gocache.NoExpiration, 0),
		enabled:  opts.Enabled,
		ttl:      ttl,
		maxItems: maxItems,
		now:      now,
		logger:   logger.WithPrefix("cache"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	interval := opts.JanitorInterval
	if interval == 0 {
		interval = defaultJanitor
	}
	if interval > 0 && c.enabled {
		go c.janitor(interval)
	} else {
		close(c.done)
	}
	return c
}

func (c *Cache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("swept expired entries", "count", n)
			}
		}
	}
}

// Close stops the janitor. The cache stays usable.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Get returns the value under key when it has not expired. An expired entry
// is removed as a side effect.
func (c *Cache) Get(key string) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := raw.(*Entry)
	if e.expired(c.now()) {
		c.mu.Lock()
		if cur, ok := c.store.Get(key); ok && cur == raw {
			c.store.Delete(key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.Value, true
}

// Lookup is Get with a type assertion. A value of another type is a miss.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores value under key, replacing any previous entry and resetting its
// expiry. ttl <= 0 uses the default TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(key, &Entry{Key: key, Value: value, InsertedAt: c.now(), TTL: ttl}, gocache.NoExpiration)
	if c.store.ItemCount() > c.maxItems {
		c.enforceLimitLocked()
	}
}

func (c *Cache) enforceLimitLocked() {
	c.sweepLocked()
	over := c.store.ItemCount() - c.maxItems
	if over <= 0 {
		return
	}
	items := c.store.Items()
	entries := make([]*Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, it.Object.(*Entry))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InsertedAt.Before(entries[j].InsertedAt)
	})
	for _, e := range entries[:over] {
		c.store.Delete(e.Key)
	}
	c.logger.Debug("evicted oldest entries", "count", over, "max", c.maxItems)
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.store.Delete(key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			removed++
		}
	}
	return removed
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *Cache) sweepLocked() int {
	now := c.now()
	removed := 0
	for key, it := range c.store.Items() {
		if it.Object.(*Entry).expired(now) {
			c.store.Delete(key)
			removed++
		}
	}
	return removed
}

// Flush drops every entry.
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.store.Flush()
	c.mu.Unlock()
}

// Stats counts live and expired entries without removing anything.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	now := c.now()
	stats := Stats{
		Max:     c.maxItems,
		Enabled: c.enabled,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	for _, it := range c.store.Items() {
		stats.Total++
		if it.Object.(*Entry).expired(now) {
			stats.Expired++
		} else {
			stats.Valid++
		}
	}
	return stats
}
