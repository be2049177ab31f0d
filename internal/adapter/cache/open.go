package cache

import (
	"context"
	"fmt"

	"github.com/couchcryptid/emissions-globe-service/internal/config"
)

// Open returns the Store selected by cfg.CacheBackend and a function that
// releases it.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client, err := DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisStore(client), client.Close, nil
	case config.CacheBackendMemory:
		return NewMemoryStore(), noop, nil
	case config.CacheBackendFS, "":
		store, err := NewFSStore(cfg.CacheDir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
