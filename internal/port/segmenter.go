package port

// Segmenter splits page text into ordered, non-empty segments.
type Segmenter interface {
	Split(text string) []string
}
