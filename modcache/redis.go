package modcache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/proofscape/pfscbuild/object"
)

// redisEntry is Entry's on-the-wire shape. Entry.Arena's type, *object.
// Arena, keeps its fields unexported (entities are only ever reached
// through a Handle), so naively gob-encoding an Entry value would
// silently serialize an empty Arena; the entity slice is instead encoded
// through object.EncodeArena and carried here as plain bytes.
type redisEntry struct {
	ArenaBytes    []byte
	Root          object.Handle
	SourceModTime time.Time
	CachedAt      time.Time
}

// RedisCache is a Cache backed by a shared Redis instance, for module
// loaders that need their cache to survive process restarts or be shared
// across several builder workers. Entries are gob-encoded, keyed under a
// "pfscbuild:mod:" namespace the way the registry webapp's Redis-backed
// layer namespaces its own keys.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache wraps an already-configured redis.UniversalClient (built
// from configuration.Redis.Options the same way the webapp constructs its
// own client).
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, prefix: "pfscbuild:mod:"}
}

func (c *RedisCache) redisKey(key Key) string {
	return fmt.Sprintf("%s%s@%s", c.prefix, key.Libpath, key.Version)
}

func (c *RedisCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var w redisEntry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&w); err != nil {
		return Entry{}, false, fmt.Errorf("modcache: decoding cached entry for %s: %w", key.Libpath, err)
	}
	a, err := object.DecodeArena(w.ArenaBytes)
	if err != nil {
		return Entry{}, false, fmt.Errorf("modcache: decoding arena for %s: %w", key.Libpath, err)
	}
	return Entry{Arena: a, Root: w.Root, SourceModTime: w.SourceModTime, CachedAt: w.CachedAt}, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key Key, e Entry) error {
	arenaBytes, err := object.EncodeArena(e.Arena)
	if err != nil {
		return fmt.Errorf("modcache: encoding arena for %s: %w", key.Libpath, err)
	}
	w := redisEntry{ArenaBytes: arenaBytes, Root: e.Root, SourceModTime: e.SourceModTime, CachedAt: e.CachedAt}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return fmt.Errorf("modcache: encoding entry for %s: %w", key.Libpath, err)
	}
	return c.client.Set(ctx, c.redisKey(key), buf.Bytes(), 0).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key Key) error {
	return c.client.Del(ctx, c.redisKey(key)).Err()
}

// DeleteRepo scans for every key under repoPath's namespace and removes
// them. Redis has no prefix-delete primitive, so this uses SCAN with a
// glob match the way the legacy blob descriptor cache enumerated keys by
// pattern rather than requiring a secondary index.
func (c *RedisCache) DeleteRepo(ctx context.Context, repoPath string) error {
	var keys []string
	for _, pattern := range []string{c.prefix + repoPath + "@*", c.prefix + repoPath + ".*"} {
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
