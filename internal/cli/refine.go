package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pagectx/internal/adapter/metrics"
	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/port"
	"pagectx/internal/usecase"
)

var (
	refineQueries  []string
	refineFile     string
	refineBudget   uint32
	refineLimit    int
	refineJSON     bool
	refineMetrics  bool
	refineNoCache  bool
	refineProgress bool
)

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Keep the page text most relevant to a prompt",
	Long: `Split page text into sentences, rank them by embedding similarity to
each prompt and print the best ones that fit the byte budget, in document order.

Several prompts may be given; the page is embedded once and reused.

Examples:
  pagectx refine -q "how are ads blocked" -f page.txt
  cat page.txt | pagectx refine -q "pricing" -b 800 --json`,
	RunE: runRefine,
}

func init() {
	rootCmd.AddCommand(refineCmd)
	refineCmd.Flags().StringArrayVarP(&refineQueries, "query", "q", nil, "prompt to refine for (repeatable, required)")
	refineCmd.Flags().StringVarP(&refineFile, "file", "f", "-", "page text file (- for stdin)")
	refineCmd.Flags().Uint32VarP(&refineBudget, "budget", "b", 0, "byte budget (default from config)")
	refineCmd.Flags().IntVar(&refineLimit, "limit", 0, "segment count limit before merging (default from config)")
	refineCmd.Flags().BoolVar(&refineJSON, "json", false, "output as JSON")
	refineCmd.Flags().BoolVar(&refineMetrics, "metrics", false, "print engine metrics to stderr when done")
	refineCmd.Flags().BoolVar(&refineNoCache, "no-cache", false, "bypass the embedding caches")
	refineCmd.Flags().BoolVar(&refineProgress, "progress", true, "show embedding progress")
	refineCmd.MarkFlagRequired("query")
}

// RefineResult is the JSON form of one refined prompt.
type RefineResult struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text,omitempty"`
	Bytes  int    `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

func runRefine(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	text, err := readInput(refineFile)
	if err != nil {
		return fmt.Errorf("failed to read page text: %w", err)
	}

	budget := cfg.Select.ByteBudget
	if refineBudget > 0 {
		budget = refineBudget
	}
	limit := cfg.Segment.Limit
	if refineLimit > 0 {
		limit = refineLimit
	}

	embedder, closeEmbedder, err := newEmbedder(cfg, GetRootDir(), !refineNoCache, logger)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry, "pagectx")
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []usecase.Option{
		usecase.WithSegmenter(segmenter.NewSentenceSegmenter(segmenter.WithLimit(limit), segmenter.WithLogger(logger))),
		usecase.WithLogger(logger),
		usecase.WithMetrics(m),
		usecase.WithQueueSize(cfg.Engine.QueueSize),
	}
	if refineProgress {
		opts = append(opts, usecase.WithProgress(newProgress(cmd.ErrOrStderr())))
	}

	engine, err := usecase.NewEngine(embedder, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	results := make([]RefineResult, 0, len(refineQueries))
	failed := 0
	for _, prompt := range refineQueries {
		out, err := engine.Refine(cmd.Context(), prompt, text, budget)
		res := RefineResult{Prompt: prompt, Text: out, Bytes: len(out)}
		if err != nil {
			res.Error = err.Error()
			failed++
		}
		results = append(results, res)
	}

	w := cmd.OutOrStdout()
	if refineJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(w, string(output))
	} else {
		for i, r := range results {
			if len(results) > 1 {
				fmt.Fprintf(w, "--- [%d] %s (%d / %d bytes) ---\n", i+1, r.Prompt, r.Bytes, budget)
			}
			if r.Error != "" {
				fmt.Fprintf(w, "error: %s\n", r.Error)
				continue
			}
			fmt.Fprintln(w, r.Text)
		}
	}

	if refineMetrics {
		if err := printMetrics(cmd.ErrOrStderr(), registry); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(results))
	}
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// embedProgress draws one bar per embedding pass. It is only ever called
// from the engine's worker goroutine.
type embedProgress struct {
	w     io.Writer
	bar   *progressbar.ProgressBar
	total int
}

func newProgress(w io.Writer) port.ProgressFunc {
	p := &embedProgress{w: w}
	return p.report
}

func (p *embedProgress) report(done, total int) {
	// A pass that failed part way never reached total; the next pass
	// starts again at 1.
	if done == 1 || p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionClearOnFinish(),
		)
		p.total = total
	}
	p.bar.Set(done)
	if done >= total {
		p.bar.Finish()
		p.bar = nil
	}
}

func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
