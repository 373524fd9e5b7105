package domain

import "errors"

// Sentinel errors for the refine pipeline. Callers match them with errors.Is.
var (
	// ErrInitialization indicates the embedding provider could not be created.
	ErrInitialization = errors.New("embedding provider initialization failed")

	// ErrEmbedding indicates the provider failed to embed a segment or the query.
	ErrEmbedding = errors.New("embedding failed")

	// ErrSimilarity indicates the provider failed to score a vector pair.
	ErrSimilarity = errors.New("similarity failed")

	// ErrNoSegments indicates segmentation produced nothing to embed.
	ErrNoSegments = errors.New("no segments to embed")

	// ErrEngineClosed indicates a request arrived after the engine was closed.
	ErrEngineClosed = errors.New("engine closed")
)
