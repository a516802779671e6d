// Package modcache implements the module loader's cache: an explicit,
// non-global store of already-built module object graphs keyed by
// (libpath, version), consulted before re-reading and re-parsing source
// text. It mirrors the registry storage layer's cache/provider split
// (an interface with an in-process and a Redis-backed implementation)
// but stores parsed object graphs rather than blob descriptors.
package modcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/proofscape/pfscbuild/libpath"
	"github.com/proofscape/pfscbuild/object"
)

// memoryCacheSize bounds MemoryCache's resident entry count. A module
// graph can be sizable once built, so an unbounded in-process cache
// risks growing without limit over a long-running build server's
// lifetime; eviction under this bound is an acceptable cost since a
// dropped entry is simply rebuilt on next load. MemoryCache has no
// backing store; a RedisCache is an alternative Cache, not a second tier.
const memoryCacheSize = 2048

// Entry is one cached module build: its object graph, the source mtime it
// was built from, and the wall-clock time it was cached.
type Entry struct {
	Arena    *object.Arena
	Root     object.Handle
	SourceModTime time.Time
	CachedAt time.Time
}

// Key identifies one cached module at one version.
type Key struct {
	Libpath string
	Version string
}

// Cache is the module loader's cache port. Implementations must be safe
// for concurrent use. Numbered releases are immutable once built and are
// always eligible for caching regardless of CachePolicy; only WIP entries
// consult the policy's re-validation rule.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Put(ctx context.Context, key Key, e Entry) error
	Delete(ctx context.Context, key Key) error
	// DeleteRepo drops every cached entry whose libpath falls under
	// repoPath, used when a WIP build is torn down and rebuilt from
	// scratch (delete_full_wip_build).
	DeleteRepo(ctx context.Context, repoPath string) error
}

// ShouldUse decides, given a CachePolicy, a cached entry, and the source
// file's current modification time, whether the cached entry may be
// reused without re-reading and re-parsing. Numbered releases (non-WIP
// version) are always reused once cached, since they are immutable; for
// WIP, CacheNever always re-reads, CacheAlways always reuses, and
// CacheTime reuses unless the source's mtime is at or after the cached
// entry's build time minus a one-second grace window (filesystems may
// record mtimes at one-second resolution, so a source edited within the
// second before caching is treated as newer than the entry, which is then
// rebuilt rather than reused).
func ShouldUse(policy libpath.CachePolicy, isWIP bool, e Entry, sourceModTime time.Time) bool {
	if !isWIP {
		return true
	}
	switch policy {
	case libpath.CacheNever:
		return false
	case libpath.CacheAlways:
		return true
	case libpath.CacheTime:
		grace := e.CachedAt.Add(-time.Second)
		return sourceModTime.Before(grace)
	default:
		return false
	}
}

// MemoryCache is an in-process Cache backed by a bounded LRU, the
// module-graph analogue of the registry storage cache's memory blob-
// descriptor cache.
type MemoryCache struct {
	lru *lru.Cache
}

// NewMemoryCache returns an empty MemoryCache holding up to
// memoryCacheSize entries.
func NewMemoryCache() *MemoryCache {
	c, err := lru.New(memoryCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// memoryCacheSize never is.
		panic(err)
	}
	return &MemoryCache{lru: c}
}

func (c *MemoryCache) Get(_ context.Context, key Key) (Entry, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	return v.(Entry), true, nil
}

func (c *MemoryCache) Put(_ context.Context, key Key, e Entry) error {
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key Key) error {
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) DeleteRepo(_ context.Context, repoPath string) error {
	for _, k := range c.lru.Keys() {
		key := k.(Key)
		if key.Libpath == repoPath || libpath.IsStrictPrefix(repoPath, key.Libpath) {
			c.lru.Remove(key)
		}
	}
	return nil
}
