package cli

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/proofscape/pfscbuild/builder"
	"github.com/proofscape/pfscbuild/configuration"
	"github.com/proofscape/pfscbuild/index"
	"github.com/proofscape/pfscbuild/modcache"
	"github.com/proofscape/pfscbuild/writelayer"
)

var configPath string

// resolveConfiguration reads the pfscbuild configuration from -c/--config,
// falling back to PFSCBUILD_CONFIGURATION_PATH, the same two-step lookup
// the teacher's registry/dist commands use for their own config path.
func resolveConfiguration() (*configuration.Configuration, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("PFSCBUILD_CONFIGURATION_PATH")
	}
	if path == "" {
		return nil, fmt.Errorf("configuration path unspecified")
	}

	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return config, nil
}

// newPipeline wires a builder.Pipeline from a resolved configuration: a
// filesystem write-layer backend rooted under cfg.Build.Root, an
// in-process MemStore for the index (cfg.Build.InGDB is rejected with an
// error, since no graph database client is wired), and a Redis-backed
// module cache when
// cfg.Cache.Redis is configured, falling back to the bounded in-process
// cache otherwise.
func newPipeline(cfg *configuration.Configuration) (*builder.Pipeline, error) {
	wlBackend, err := writelayer.NewFilesystemBackend(cfg.Build.Root)
	if err != nil {
		return nil, fmt.Errorf("constructing write layer: %w", err)
	}
	wl := writelayer.New(wlBackend)

	var store index.GraphStore
	if cfg.Build.InGDB {
		return nil, fmt.Errorf("configured graph database backend is not wired in this build; use an in-process store")
	}
	store = index.NewMemStore()
	idx := index.NewWriter(store)

	var cache modcache.Cache
	if len(cfg.Cache.Redis.Options.Addrs) > 0 {
		client := redis.NewUniversalClient(&cfg.Cache.Redis.Options)
		cache = modcache.NewRedisCache(client)
	} else {
		cache = modcache.NewMemoryCache()
	}

	reg := builder.NewRegistry()
	return builder.NewPipeline(reg, cache, wl, idx, store), nil
}
