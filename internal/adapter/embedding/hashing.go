package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"pagectx/internal/domain"
)

// HashingModel is the model name reported by HashingEmbedder.
const HashingModel = "hashing-bow-v1"

// HashingEmbedder is an offline embedder. Each lowercased word is hashed
// into one of dimension buckets with a hash-derived sign; the result is
// L2-normalised. Texts sharing words score high, unrelated texts near zero.
type HashingEmbedder struct {
	dimension int
}

// NewHashingEmbedder creates a hashing embedder with the given dimension.
// model must be empty or HashingModel.
func NewHashingEmbedder(model string, dimension int) (*HashingEmbedder, error) {
	if model != "" && model != HashingModel {
		return nil, fmt.Errorf("%w: unknown hashing model %q", domain.ErrInitialization, model)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: hashing dimension must be positive, got %d", domain.ErrInitialization, dimension)
	}
	return &HashingEmbedder{dimension: dimension}, nil
}

func (e *HashingEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	vec := make(domain.Vector, e.dimension)
	for _, word := range words(text) {
		h := xxhash.Sum64String(word)
		bucket := h % uint64(e.dimension)
		if h>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *HashingEmbedder) Similarity(a, b domain.Vector) (float64, error) {
	return CosineSimilarity(a, b)
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return HashingModel
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
