package cli

import (
	"fmt"
	"log/slog"

	"pagectx/config"
	"pagectx/internal/adapter/cache"
	"pagectx/internal/adapter/embedding"
	"pagectx/internal/adapter/store"
	"pagectx/internal/port"
)

// newEmbedder creates the configured provider. Unless useCache is false it
// is wrapped with the persistent cache (when enabled) and then the
// in-process cache in front of it. The returned close function releases
// the persistent cache.
func newEmbedder(cfg *config.Config, dir string, useCache bool, logger *slog.Logger) (port.Embedder, func() error, error) {
	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	closeFn := func() error { return nil }
	if !useCache {
		return embedder, closeFn, nil
	}

	if cfg.Cache.Enabled {
		path := cfg.CachePath(dir)
		if err := config.EnsureDir(path); err != nil {
			return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		st, err := store.NewBoltEmbeddingStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		logger.Debug("embedding cache opened", "path", path)
		embedder = embedding.NewCachingEmbedder(embedder, st, logger)
		closeFn = st.Close
	}

	if cfg.Cache.MemoryEntries > 0 {
		mem := cache.NewMemoryStore(cfg.Cache.MemoryEntries, cfg.Cache.MemoryTTL)
		embedder = embedding.NewCachingEmbedder(embedder, mem, logger)
	}

	return embedder, closeFn, nil
}
