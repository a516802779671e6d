package modcache

import (
	"context"
	"testing"
	"time"

	"github.com/proofscape/pfscbuild/libpath"
)

func TestMemoryCacheGetPutDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	key := Key{Libpath: "gh.user.repo.mod", Version: "WIP"}

	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected miss before put")
	}
	entry := Entry{CachedAt: time.Now()}
	if err := c.Put(ctx, key, entry); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); !ok {
		t.Fatalf("expected hit after put")
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryCacheDeleteRepo(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	k1 := Key{Libpath: "gh.user.repo.a", Version: "WIP"}
	k2 := Key{Libpath: "gh.user.repo.b", Version: "WIP"}
	k3 := Key{Libpath: "gh.user.other.c", Version: "WIP"}
	for _, k := range []Key{k1, k2, k3} {
		_ = c.Put(ctx, k, Entry{})
	}
	if err := c.DeleteRepo(ctx, "gh.user.repo"); err != nil {
		t.Fatalf("delete repo error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, k1); ok {
		t.Fatalf("expected k1 evicted")
	}
	if _, ok, _ := c.Get(ctx, k2); ok {
		t.Fatalf("expected k2 evicted")
	}
	if _, ok, _ := c.Get(ctx, k3); !ok {
		t.Fatalf("expected k3 to survive, it is outside the deleted repo")
	}
}

func TestShouldUseNumberedReleaseAlwaysReused(t *testing.T) {
	if !ShouldUse(libpath.CacheNever, false, Entry{}, time.Now()) {
		t.Fatalf("numbered releases must always be reused regardless of policy")
	}
}

func TestShouldUseWIPPolicies(t *testing.T) {
	now := time.Now()
	entry := Entry{CachedAt: now}

	if ShouldUse(libpath.CacheNever, true, entry, now.Add(-time.Hour)) {
		t.Fatalf("CacheNever must never reuse a WIP entry")
	}
	if !ShouldUse(libpath.CacheAlways, true, entry, now) {
		t.Fatalf("CacheAlways must always reuse a WIP entry")
	}
	if !ShouldUse(libpath.CacheTime, true, entry, now.Add(-time.Hour)) {
		t.Fatalf("CacheTime must reuse when source predates the cache by more than the grace window")
	}
	if ShouldUse(libpath.CacheTime, true, entry, now.Add(time.Hour)) {
		t.Fatalf("CacheTime must not reuse when source is newer than the cached build")
	}
}
