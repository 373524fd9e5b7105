package port

import (
	"context"

	"pagectx/internal/domain"
)

// Embedder turns text into vectors and scores vector pairs.
type Embedder interface {
	// Embed returns the embedding of a single text.
	Embed(ctx context.Context, text string) (domain.Vector, error)

	// Similarity returns the cosine similarity of two vectors (higher is closer).
	Similarity(a, b domain.Vector) (float64, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingStore persists vectors by key across process runs.
type EmbeddingStore interface {
	// Get returns the stored vector and whether it was found.
	Get(key string) (domain.Vector, bool, error)

	// Put stores a vector under key, replacing any previous value.
	Put(key string, vector domain.Vector) error

	// Count returns the number of stored vectors.
	Count() (int, error)
}

// ProgressFunc reports embedding progress of a segment list.
type ProgressFunc func(done, total int)
