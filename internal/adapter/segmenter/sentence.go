package segmenter

import (
	"log/slog"
	"strings"
)

const (
	// Delimiter separates sentences. A period without a following space
	// ("127.0.0.1") is not a split point.
	Delimiter = ". "

	// DefaultLimit bounds the number of segments handed to the embedder.
	DefaultLimit = 300
)

// SentenceSegmenter splits text on sentence delimiters and coarsens the
// result into groups when there are more segments than the limit.
type SentenceSegmenter struct {
	limit  int
	logger *slog.Logger
}

// Option configures a SentenceSegmenter.
type Option func(*SentenceSegmenter)

// WithLimit overrides the segment count limit.
func WithLimit(limit int) Option {
	return func(s *SentenceSegmenter) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithLogger sets the logger used for segment count diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SentenceSegmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSentenceSegmenter creates a segmenter with DefaultLimit unless overridden.
func NewSentenceSegmenter(opts ...Option) *SentenceSegmenter {
	s := &SentenceSegmenter{
		limit:  DefaultLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the configured segment count limit.
func (s *SentenceSegmenter) Limit() int {
	return s.limit
}

// Split returns the non-empty, trimmed sentences of text in document order.
// It never fails; empty input yields an empty slice.
func (s *SentenceSegmenter) Split(text string) []string {
	parts := strings.Split(text, Delimiter)
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments = append(segments, part)
	}
	s.logger.Debug("split segments", "count", len(segments))

	if len(segments) <= s.limit {
		return segments
	}

	coarse := coarsen(segments, groupSize(len(segments), s.limit))
	s.logger.Debug("coarsened segments", "from", len(segments), "to", len(coarse), "limit", s.limit)
	return coarse
}

// groupSize truncates count/limit, so the group count may exceed limit for
// non-exact divisions (26 segments at limit 3 give groups of 8, i.e. 4 groups).
func groupSize(count, limit int) int {
	size := count / limit
	if size < 1 {
		size = 1
	}
	return size
}

// coarsen joins consecutive runs of size segments with single spaces.
// The final group may be shorter.
func coarsen(segments []string, size int) []string {
	groups := make([]string, 0, (len(segments)+size-1)/size)
	for start := 0; start < len(segments); start += size {
		end := min(start+size, len(segments))
		groups = append(groups, strings.Join(segments[start:end], " "))
	}
	return groups
}
