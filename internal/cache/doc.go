// Package cache provides the process-local TTL cache that sits in front of
// GitHub reads.
//
// Values are stored in a patrickmn/go-cache map as *Entry records carrying
// their insertion time and TTL. Expiry is decided against an injectable clock
// so an entry is never returned once now - InsertedAt > TTL, regardless of
// when the background janitor last ran. Expired entries are also dropped
// lazily on Get and on demand through Sweep.
//
// MaxItems bounds the cache. When a Set pushes the count over the bound,
// expired entries are swept first and then the oldest entries by insertion
// time are evicted.
//
// A disabled cache turns every Get into a miss and every Set into a no-op.
//
// Keys are namespaced per repository (see RepoPrefix) so a mutation can drop
// everything cached about one repository with InvalidatePrefix.
package cache
