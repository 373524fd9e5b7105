//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"pagectx/internal/adapter/embedding"
	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/usecase"
)

const dimension = 512

var (
	embedder *embedding.HashingEmbedder
	seg      *segmenter.SentenceSegmenter
	cache    *usecase.EmbeddingCache
)

func init() {
	var err error
	embedder, err = embedding.NewHashingEmbedder(embedding.HashingModel, dimension)
	if err != nil {
		panic(err)
	}
	seg = segmenter.NewSentenceSegmenter()
	cache = usecase.NewEmbeddingCache(seg, embedder, nil, nil)
}

// Callbacks run on the JS event loop, so the pipeline runs inline here
// rather than through the engine's worker goroutine.
func main() {
	c := make(chan struct{})

	js.Global().Set("pagectxRefine", js.FuncOf(refine))
	js.Global().Set("pagectxSegments", js.FuncOf(segments))
	js.Global().Set("pagectxReset", js.FuncOf(reset))

	<-c
}

func refine(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeError("usage: pagectxRefine(prompt, text, budget)")
	}

	prompt := args[0].String()
	text := args[1].String()
	budget := args[2].Int()
	if budget < 0 {
		return makeError("budget must not be negative")
	}

	ctx := context.Background()
	if err := cache.EnsureEmbedded(ctx, text); err != nil {
		return makeError("embedding failed: " + err.Error())
	}

	ranked, err := usecase.Rank(ctx, embedder, prompt, cache.Vectors())
	if err != nil {
		return makeError("ranking failed: " + err.Error())
	}

	out := usecase.Select(ranked, cache.Segments(), uint32(budget))
	return makeResult(map[string]interface{}{
		"text":     out,
		"bytes":    len(out),
		"segments": len(cache.Segments()),
	})
}

func segments(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: pagectxSegments(text)")
	}

	text := args[0].String()
	parts := seg.Split(text)
	return makeResult(map[string]interface{}{
		"fingerprint": fmt.Sprintf("%016x", usecase.Fingerprint(text)),
		"segments":    parts,
	})
}

func reset(this js.Value, args []js.Value) interface{} {
	cache = usecase.NewEmbeddingCache(seg, embedder, nil, nil)
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
