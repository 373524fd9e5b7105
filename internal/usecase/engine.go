package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagectx/internal/adapter/metrics"
	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/domain"
	"pagectx/internal/port"
)

const defaultQueueSize = 64

// Result is the outcome of one refine request.
type Result struct {
	Text string
	Err  error
}

type request struct {
	id       string
	ctx      context.Context
	prompt   string
	text     string
	budget   uint32
	reply    chan Result
	enqueued time.Time
}

// Engine selects the page text most relevant to a prompt under a byte
// budget. All segmentation, embedding, ranking and selection runs on one
// worker goroutine owned by the engine, so requests are handled one at a
// time in submission order and the embedding cache needs no locking.
type Engine struct {
	embedder port.Embedder
	cache    *EmbeddingCache
	logger   *slog.Logger
	metrics  *metrics.Metrics

	requests chan request
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

type engineOptions struct {
	segmenter port.Segmenter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	progress  port.ProgressFunc
	queueSize int
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithSegmenter replaces the default sentence segmenter.
func WithSegmenter(s port.Segmenter) Option {
	return func(o *engineOptions) {
		o.segmenter = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithProgress reports segment embedding progress. The callback runs on the
// worker goroutine.
func WithProgress(fn port.ProgressFunc) Option {
	return func(o *engineOptions) {
		o.progress = fn
	}
}

// WithQueueSize sets how many requests may wait for the worker before
// submitters block.
func WithQueueSize(n int) Option {
	return func(o *engineOptions) {
		o.queueSize = n
	}
}

// NewEngine creates an engine around an initialized embedder and starts its
// worker. Callers must Close it.
func NewEngine(embedder port.Embedder, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedder", domain.ErrInitialization)
	}

	o := engineOptions{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.segmenter == nil {
		o.segmenter = segmenter.NewSentenceSegmenter(segmenter.WithLogger(o.logger))
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultQueueSize
	}

	cache := NewEmbeddingCache(o.segmenter, embedder, o.logger, o.metrics)
	cache.SetProgress(o.progress)

	e := &Engine{
		embedder: embedder,
		cache:    cache,
		logger:   o.logger,
		metrics:  o.metrics,
		requests: make(chan request, o.queueSize),
		done:     make(chan struct{}),
	}
	go e.run()

	return e, nil
}

// GetRelevantContext queues a request and returns a channel that receives
// exactly one Result, unless ctx is done by the time the result is ready:
// then the result is dropped and the channel never fires. The computation
// itself is not interrupted by ctx.
func (e *Engine) GetRelevantContext(ctx context.Context, prompt, fullText string, budget uint32) <-chan Result {
	reply := make(chan Result, 1)
	req := request{
		id:       uuid.NewString(),
		ctx:      ctx,
		prompt:   prompt,
		text:     fullText,
		budget:   budget,
		reply:    reply,
		enqueued: time.Now(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		reply <- Result{Err: domain.ErrEngineClosed}
		return reply
	}

	select {
	case e.requests <- req:
		e.metrics.SetQueueDepth(len(e.requests))
	case <-ctx.Done():
		reply <- Result{Err: ctx.Err()}
	}
	return reply
}

// Refine is the blocking form of GetRelevantContext.
func (e *Engine) Refine(ctx context.Context, prompt, fullText string, budget uint32) (string, error) {
	select {
	case res := <-e.GetRelevantContext(ctx, prompt, fullText, budget):
		return res.Text, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops accepting requests, finishes the queued ones and waits for
// the worker to exit. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.requests)
	e.mu.Unlock()

	<-e.done
	return nil
}

func (e *Engine) run() {
	defer close(e.done)
	for req := range e.requests {
		e.metrics.SetQueueDepth(len(e.requests))
		e.handle(req)
	}
}

func (e *Engine) handle(req request) {
	logger := e.logger.With("request_id", req.id)
	start := time.Now()

	// Dispatched work completes even if the caller has gone away.
	text, err := e.process(context.WithoutCancel(req.ctx), req)
	elapsed := time.Since(start)

	if req.ctx.Err() != nil {
		logger.Debug("caller gone, dropping result", "error", req.ctx.Err())
		e.metrics.Request(metrics.OutcomeDropped, elapsed.Seconds())
		return
	}

	if err != nil {
		logger.Warn("refine failed", "error", err, "duration", elapsed)
		e.metrics.Request(metrics.OutcomeError, elapsed.Seconds())
		req.reply <- Result{Err: err}
		return
	}

	logger.Info("refined page content",
		"input_bytes", len(req.text),
		"output_bytes", len(text),
		"budget", req.budget,
		"queued", start.Sub(req.enqueued),
		"duration", elapsed,
	)
	logger.Debug("refined text", "text", text)
	e.metrics.Request(metrics.OutcomeOK, elapsed.Seconds())
	req.reply <- Result{Text: text}
}

func (e *Engine) process(ctx context.Context, req request) (string, error) {
	if err := e.cache.EnsureEmbedded(ctx, req.text); err != nil {
		return "", err
	}

	ranked, err := Rank(ctx, e.embedder, req.prompt, e.cache.Vectors())
	if err != nil {
		e.metrics.EmbedError()
		return "", err
	}

	return Select(ranked, e.cache.Segments(), req.budget), nil
}
