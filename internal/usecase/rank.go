package usecase

import (
	"context"
	"fmt"
	"sort"

	"pagectx/internal/domain"
	"pagectx/internal/port"
)

// Rank embeds query once and scores every vector against it. The result is
// ordered by score descending, ties by ascending index. Any provider failure
// aborts the ranking.
func Rank(ctx context.Context, embedder port.Embedder, query string, vectors []domain.Vector) ([]domain.RankedCandidate, error) {
	queryVec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, stageError(domain.ErrEmbedding, "query", err)
	}

	ranked := make([]domain.RankedCandidate, 0, len(vectors))
	for i, vec := range vectors {
		score, err := embedder.Similarity(queryVec, vec)
		if err != nil {
			return nil, stageError(domain.ErrSimilarity, fmt.Sprintf("segment %d", i), err)
		}
		ranked = append(ranked, domain.RankedCandidate{Index: i, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}
