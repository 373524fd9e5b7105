package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"pagectx/internal/adapter/metrics"
	"pagectx/internal/domain"
	"pagectx/internal/port"
)

// Fingerprint is a fast change detector for page text. Equal text always
// yields an equal fingerprint; collisions are tolerated.
func Fingerprint(text string) uint64 {
	return xxhash.Sum64String(text)
}

// EmbeddingCache holds the segments of the last successfully embedded text
// and their vectors. It is not safe for concurrent use: the engine confines
// it to its worker goroutine.
type EmbeddingCache struct {
	segmenter port.Segmenter
	embedder  port.Embedder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	progress  port.ProgressFunc

	fingerprint uint64
	valid       bool
	segments    []domain.Segment
	vectors     []domain.Vector
}

// NewEmbeddingCache creates an empty cache.
func NewEmbeddingCache(segmenter port.Segmenter, embedder port.Embedder, logger *slog.Logger, m *metrics.Metrics) *EmbeddingCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		segmenter: segmenter,
		embedder:  embedder,
		logger:    logger,
		metrics:   m,
	}
}

// SetProgress installs a callback invoked after each embedded segment.
func (c *EmbeddingCache) SetProgress(fn port.ProgressFunc) {
	c.progress = fn
}

// EnsureEmbedded makes the cache hold the segments and vectors of text.
// Unchanged text is a no-op. Changed text is re-segmented and fully
// re-embedded; on any failure the cache is left empty so the next call
// starts over.
func (c *EmbeddingCache) EnsureEmbedded(ctx context.Context, text string) error {
	fp := Fingerprint(text)
	if c.valid && fp == c.fingerprint {
		c.metrics.CacheHit()
		return nil
	}
	c.metrics.CacheMiss()
	c.reset()

	texts := c.segmenter.Split(text)
	if len(texts) == 0 {
		return domain.ErrNoSegments
	}

	segments := domain.Segments(texts)
	vectors := make([]domain.Vector, 0, len(segments))
	for _, seg := range segments {
		vec, err := c.embedder.Embed(ctx, seg.Text)
		if err != nil {
			c.metrics.EmbedError()
			return stageError(domain.ErrEmbedding, fmt.Sprintf("segment %d", seg.Index), err)
		}
		vectors = append(vectors, vec)
		c.metrics.SegmentEmbedded()
		if c.progress != nil {
			c.progress(len(vectors), len(segments))
		}
	}

	c.segments = segments
	c.vectors = vectors
	c.fingerprint = fp
	c.valid = true
	c.logger.Debug("embedded segments", "segments", len(segments), "fingerprint", fp)
	return nil
}

// Segments returns the cached segments.
func (c *EmbeddingCache) Segments() []domain.Segment {
	return c.segments
}

// Vectors returns the cached vectors, index-aligned with Segments.
func (c *EmbeddingCache) Vectors() []domain.Vector {
	return c.vectors
}

// Valid reports whether the cache holds a complete embedded text.
func (c *EmbeddingCache) Valid() bool {
	return c.valid
}

func (c *EmbeddingCache) reset() {
	c.valid = false
	c.fingerprint = 0
	c.segments = nil
	c.vectors = nil
}

// stageError tags err with sentinel unless it already carries it.
func stageError(sentinel error, what string, err error) error {
	if errors.Is(err, sentinel) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, what, err)
}
