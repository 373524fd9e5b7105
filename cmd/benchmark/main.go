package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"pagectx/config"
	"pagectx/internal/adapter/embedding"
	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding pagectx.yaml")
	file := flag.String("f", "", "Page text file")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of ranked segments to show")
	budget := flag.Uint64("b", 0, "Byte budget (default from config)")
	flag.Parse()

	if *query == "" || *file == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -f page.txt -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding provider (model connection, dimension)")
		fmt.Println("  2. Semantic similarity (query vs segments)")
		fmt.Println("  3. Selection (bytes kept within budget)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Select.ByteBudget, err = byteBudget(*budget, cfg.Select.ByteBudget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading page: %v\n", err)
		os.Exit(1)
	}
	text := string(data)

	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic ranking not available: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	seg := segmenter.NewSentenceSegmenter(segmenter.WithLimit(cfg.Segment.Limit))
	cache := usecase.NewEmbeddingCache(seg, embedder, nil, nil)

	fmt.Println("PAGE RELEVANCE BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	start := time.Now()
	if err := cache.EnsureEmbedded(ctx, text); err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	embedTime := time.Since(start)

	segments := cache.Segments()
	fmt.Printf("Segments embedded: %d in %s\n", len(segments), embedTime.Round(time.Millisecond))
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	start = time.Now()
	ranked, err := usecase.Rank(ctx, embedder, *query, cache.Vectors())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ranking error: %v\n", err)
		os.Exit(1)
	}
	rankTime := time.Since(start)

	shown := min(*topK, len(ranked))
	fmt.Printf("Top %d semantic matches (ranked in %s):\n\n", shown, rankTime.Round(time.Microsecond))

	totalScore := 0.0
	for i, r := range ranked[:shown] {
		preview := segments[r.Index].Text
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		totalScore += r.Score
		fmt.Printf("%d. [%s %.3f] segment %d\n", i+1, rating(r.Score), r.Score, r.Index)
		fmt.Printf("   %s\n\n", preview)
	}

	selected := usecase.Select(ranked, segments, cfg.Select.ByteBudget)

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	if shown > 0 {
		avgScore := totalScore / float64(shown)
		fmt.Printf("  Average similarity: %.3f\n", avgScore)
		fmt.Printf("  Top-1 similarity:   %.3f\n", ranked[0].Score)
		fmt.Printf("  Status: %s\n", status(avgScore))
	}
	fmt.Printf("  Selected: %d of %d bytes (budget %d)\n", len(selected), len(text), cfg.Select.ByteBudget)
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func status(avg float64) string {
	switch {
	case avg > 0.5:
		return "GOOD - ranking working well"
	case avg > 0.3:
		return "OK - results are somewhat related"
	default:
		return "POOR - may need a better embedding model"
	}
}

// byteBudget returns flagValue as a budget, or fallback when it is zero.
func byteBudget(flagValue uint64, fallback uint32) (uint32, error) {
	if flagValue > math.MaxUint32 {
		return 0, fmt.Errorf("budget %d exceeds %d bytes", flagValue, uint64(math.MaxUint32))
	}
	if flagValue == 0 {
		return fallback, nil
	}
	return uint32(flagValue), nil
}
