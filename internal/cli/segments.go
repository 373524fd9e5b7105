package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/domain"
	"pagectx/internal/usecase"
)

var (
	segmentsFile  string
	segmentsLimit int
	segmentsJSON  bool
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Show how page text is split into segments",
	Long: `Print the segments the engine would embed for a page, with their byte
length and the fingerprint of the whole text.

Examples:
  pagectx segments -f page.txt
  pagectx segments -f page.txt --limit 10 --json`,
	RunE: runSegments,
}

func init() {
	rootCmd.AddCommand(segmentsCmd)
	segmentsCmd.Flags().StringVarP(&segmentsFile, "file", "f", "-", "page text file (- for stdin)")
	segmentsCmd.Flags().IntVar(&segmentsLimit, "limit", 0, "segment count limit before merging (default from config)")
	segmentsCmd.Flags().BoolVar(&segmentsJSON, "json", false, "output as JSON")
}

// SegmentsOutput is the JSON form of a segmentation.
type SegmentsOutput struct {
	Fingerprint string          `json:"fingerprint"`
	Limit       int             `json:"limit"`
	Bytes       int             `json:"bytes"`
	Segments    []SegmentResult `json:"segments"`
}

type SegmentResult struct {
	Index int    `json:"index"`
	Bytes int    `json:"bytes"`
	Text  string `json:"text"`
}

func runSegments(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	text, err := readInput(segmentsFile)
	if err != nil {
		return fmt.Errorf("failed to read page text: %w", err)
	}

	limit := cfg.Segment.Limit
	if segmentsLimit > 0 {
		limit = segmentsLimit
	}
	seg := segmenter.NewSentenceSegmenter(segmenter.WithLimit(limit), segmenter.WithLogger(logger))
	segments := domain.Segments(seg.Split(text))

	out := SegmentsOutput{
		Fingerprint: fmt.Sprintf("%016x", usecase.Fingerprint(text)),
		Limit:       seg.Limit(),
		Bytes:       len(text),
		Segments:    make([]SegmentResult, len(segments)),
	}
	for i, s := range segments {
		out.Segments[i] = SegmentResult{Index: s.Index, Bytes: len(s.Text), Text: s.Text}
	}

	w := cmd.OutOrStdout()
	if segmentsJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintf(w, "fingerprint %s, %d bytes, %d segments (limit %d)\n", out.Fingerprint, out.Bytes, len(out.Segments), out.Limit)
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, s := range out.Segments {
		fmt.Fprintf(w, "%4d [%5d B] %s\n", s.Index, s.Bytes, s.Text)
	}
	return nil
}
