package usecase

import (
	"sort"
	"strings"

	"pagectx/internal/domain"
)

// Separator joins selected segments in the refined text. No separator
// follows the last segment.
const Separator = ". "

// Select greedily accepts ranked candidates while their summed text length
// stays within budget bytes. The first candidate that would overflow ends
// the walk; smaller candidates after it are not considered. Accepted
// segments are joined in document order. Separators do not count against
// the budget.
func Select(ranked []domain.RankedCandidate, segments []domain.Segment, budget uint32) string {
	selected := make([]int, 0, len(ranked))
	var used uint64

	for _, rc := range ranked {
		size := uint64(len(segments[rc.Index].Text))
		if used+size > uint64(budget) {
			break
		}
		used += size
		selected = append(selected, rc.Index)
	}

	sort.Ints(selected)

	texts := make([]string, len(selected))
	for i, idx := range selected {
		texts[i] = segments[idx].Text
	}
	return strings.Join(texts, Separator)
}
