package embedding

import (
	"context"
	"sync"
	"sync/atomic"

	"pagectx/internal/domain"
)

// MockEmbedder produces deterministic rune-derived vectors. It counts calls
// and can be told to fail on chosen texts.
type MockEmbedder struct {
	dimension int
	calls     atomic.Int64

	mu     sync.Mutex
	failOn map[string]error
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 8
	}
	return &MockEmbedder{
		dimension: dimension,
		failOn:    make(map[string]error),
	}
}

// FailOn makes Embed return err for text. A nil err clears the failure.
func (e *MockEmbedder) FailOn(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failOn, text)
		return
	}
	e.failOn[text] = err
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	e.calls.Add(1)

	e.mu.Lock()
	err := e.failOn[text]
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vec := make(domain.Vector, e.dimension)
	for j, r := range []rune(text) {
		if j < e.dimension {
			vec[j] = float32(r) / 1000.0
		}
	}
	return vec, nil
}

func (e *MockEmbedder) Similarity(a, b domain.Vector) (float64, error) {
	return CosineSimilarity(a, b)
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
