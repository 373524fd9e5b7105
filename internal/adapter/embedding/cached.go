package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"pagectx/internal/domain"
	"pagectx/internal/port"
)

// CachingEmbedder memoises another embedder's vectors in a persistent store,
// keyed by model name and a hash of the text.
type CachingEmbedder struct {
	next   port.Embedder
	store  port.EmbeddingStore
	logger *slog.Logger
}

// NewCachingEmbedder wraps next with store. A nil logger uses slog.Default().
func NewCachingEmbedder(next port.Embedder, store port.EmbeddingStore, logger *slog.Logger) *CachingEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingEmbedder{
		next:   next,
		store:  store,
		logger: logger,
	}
}

// CacheKey returns the store key for text embedded by model.
func CacheKey(model, text string) string {
	return model + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// Embed returns the stored vector when present, otherwise embeds and stores it.
// Store failures are logged and never fail the embedding.
func (e *CachingEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	key := CacheKey(e.next.ModelName(), text)

	vec, found, err := e.store.Get(key)
	if err != nil {
		e.logger.Warn("embedding store read failed", "error", err)
	} else if found {
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.store.Put(key, vec); err != nil {
		e.logger.Warn("embedding store write failed", "error", err)
	}
	return vec, nil
}

func (e *CachingEmbedder) Similarity(a, b domain.Vector) (float64, error) {
	return e.next.Similarity(a, b)
}

func (e *CachingEmbedder) Dimension() int {
	return e.next.Dimension()
}

func (e *CachingEmbedder) ModelName() string {
	return e.next.ModelName()
}

// String describes the wrapped model, for logs.
func (e *CachingEmbedder) String() string {
	return fmt.Sprintf("cached(%s)", e.next.ModelName())
}
