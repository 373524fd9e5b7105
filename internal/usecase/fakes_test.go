package usecase

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"pagectx/internal/adapter/embedding"
	"pagectx/internal/domain"
)

// vocabEmbedder maps each known word to its own dimension and every unknown
// word to one shared extra dimension, so scores are easy to predict.
type vocabEmbedder struct {
	index map[string]int
	dim   int

	mu      sync.Mutex
	calls   []string
	failOn  map[string]error
	simErr  error
	gate    chan struct{}
	gatedOn string
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i
	}
	return &vocabEmbedder{
		index:  index,
		dim:    len(words) + 1,
		failOn: make(map[string]error),
	}
}

func (e *vocabEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	err := e.failOn[text]
	gate := e.gate
	gated := e.gatedOn == text
	e.mu.Unlock()

	if gated && gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	vec := make(domain.Vector, e.dim)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if i, ok := e.index[f]; ok {
			vec[i]++
		} else {
			vec[e.dim-1]++
		}
	}
	return vec, nil
}

func (e *vocabEmbedder) Similarity(a, b domain.Vector) (float64, error) {
	e.mu.Lock()
	err := e.simErr
	e.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return embedding.CosineSimilarity(a, b)
}

func (e *vocabEmbedder) Dimension() int {
	return e.dim
}

func (e *vocabEmbedder) ModelName() string {
	return "vocab"
}

func (e *vocabEmbedder) setFail(text string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failOn, text)
		return
	}
	e.failOn[text] = err
}

func (e *vocabEmbedder) setSimilarityError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.simErr = err
}

// holdOn makes Embed of text block until the returned channel is closed.
func (e *vocabEmbedder) holdOn(text string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = make(chan struct{})
	e.gatedOn = text
	return e.gate
}

func (e *vocabEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *vocabEmbedder) callLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}
