package embedding

import (
	"fmt"
	"math"

	"pagectx/internal/domain"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Vectors of different or zero length cannot be compared; a zero-norm vector
// scores 0 against anything.
func CosineSimilarity(a, b domain.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimension mismatch: %d != %d", domain.ErrSimilarity, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vectors", domain.ErrSimilarity)
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// normalize scales v to unit length in place.
func normalize(v domain.Vector) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
