package domain

// Segment is one retrievable unit of page text, in document order.
type Segment struct {
	Index int
	Text  string
}

// Vector is a fixed-length embedding of a segment or a query.
type Vector []float32

// RankedCandidate pairs a segment index with its similarity to the query.
type RankedCandidate struct {
	Index int
	Score float64
}

// Segments wraps split texts into indexed segments.
func Segments(texts []string) []Segment {
	segments := make([]Segment, len(texts))
	for i, text := range texts {
		segments[i] = Segment{Index: i, Text: text}
	}
	return segments
}
