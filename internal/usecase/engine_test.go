package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagectx/internal/adapter/metrics"
	"pagectx/internal/adapter/segmenter"
	"pagectx/internal/domain"
)

const braveText = "Hello, World. Brave! Other sentence that is irrelevant."

func newTestEngine(t *testing.T, e *vocabEmbedder, opts ...Option) *Engine {
	t.Helper()
	engine, err := NewEngine(e, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestNewEngineRequiresEmbedder(t *testing.T) {
	engine, err := NewEngine(nil)
	assert.ErrorIs(t, err, domain.ErrInitialization)
	assert.Nil(t, engine)
}

func TestRefineBraveScenario(t *testing.T) {
	e := newVocabEmbedder("brave", "hello", "world")
	engine := newTestEngine(t, e)
	ctx := context.Background()

	// "! " is not a split point: the page is "Hello, World" (12 bytes) and
	// "Brave! Other sentence that is irrelevant." (41 bytes).
	tests := []struct {
		budget uint32
		want   string
	}{
		{100, "Hello, World. Brave! Other sentence that is irrelevant."},
		{53, "Hello, World. Brave! Other sentence that is irrelevant."},
		{52, "Brave! Other sentence that is irrelevant."},
		{41, "Brave! Other sentence that is irrelevant."},
		{18, ""},
	}
	for _, tc := range tests {
		out, err := engine.Refine(ctx, "Brave", braveText, tc.budget)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out, "budget %d", tc.budget)
	}
	assert.Equal(t, 2+len(tests), e.callCount(), "page embedded once, one query per call")
}

func TestRefineProviderFailureSurfacesError(t *testing.T) {
	const braveSentence = "Brave! Other sentence that is irrelevant."
	e := newVocabEmbedder("brave")
	engine := newTestEngine(t, e)
	e.setFail(braveSentence, errors.New("inference failed"))

	out, err := engine.Refine(context.Background(), "Brave", braveText, 100)
	require.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "inference failed")
	assert.Empty(t, out)

	e.setFail(braveSentence, nil)
	before := e.callCount()
	out, err = engine.Refine(context.Background(), "Brave", braveText, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "Brave!")
	// Both segments re-embedded plus the query.
	assert.Equal(t, before+3, e.callCount())
}

func TestRefineSimilarityFailureKeepsCache(t *testing.T) {
	e := newVocabEmbedder("brave")
	engine := newTestEngine(t, e)

	e.setSimilarityError(errors.New("nan"))
	_, err := engine.Refine(context.Background(), "Brave", braveText, 100)
	require.ErrorIs(t, err, domain.ErrSimilarity)

	e.setSimilarityError(nil)
	before := e.callCount()
	_, err = engine.Refine(context.Background(), "Brave", braveText, 100)
	require.NoError(t, err)
	assert.Equal(t, before+1, e.callCount(), "only the query is embedded again")
}

func TestRefineReusesEmbeddingsAcrossPrompts(t *testing.T) {
	e := newVocabEmbedder("brave", "hello")
	engine := newTestEngine(t, e)
	ctx := context.Background()

	_, err := engine.Refine(ctx, "Brave", braveText, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, e.callCount())

	_, err = engine.Refine(ctx, "Hello", braveText, 100)
	require.NoError(t, err)
	_, err = engine.Refine(ctx, "Something else", braveText, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, e.callCount(), "only queries are embedded for unchanged text")

	_, err = engine.Refine(ctx, "Brave", "A new page. With two sentences", 100)
	require.NoError(t, err)
	assert.Equal(t, 8, e.callCount())
}

func TestRefineEmptyText(t *testing.T) {
	engine := newTestEngine(t, newVocabEmbedder("a"))

	_, err := engine.Refine(context.Background(), "prompt", "", 100)
	assert.ErrorIs(t, err, domain.ErrNoSegments)

	out, err := engine.Refine(context.Background(), "prompt", "Some text", 2)
	require.NoError(t, err)
	assert.Empty(t, out, "nothing fits is success with empty text")
}

func TestRefineUsesConfiguredSegmenter(t *testing.T) {
	e := newVocabEmbedder("a")
	engine := newTestEngine(t, e, WithSegmenter(segmenter.NewSentenceSegmenter(segmenter.WithLimit(2))))

	out, err := engine.Refine(context.Background(), "a", "A. B. C. D", 100)
	require.NoError(t, err)
	assert.Equal(t, "A B. C D", out)
	assert.Equal(t, 3, e.callCount(), "two coarse segments plus the query")
}

func TestRequestsProcessedInSubmissionOrder(t *testing.T) {
	e := newVocabEmbedder("a")
	engine := newTestEngine(t, e)
	ctx := context.Background()

	var replies []<-chan Result
	for i := 0; i < 5; i++ {
		replies = append(replies, engine.GetRelevantContext(ctx, fmt.Sprintf("q%d", i), "Same page", 100))
	}
	for _, reply := range replies {
		res := <-reply
		require.NoError(t, res.Err)
		assert.Equal(t, "Same page", res.Text)
	}

	assert.Equal(t, []string{"Same page", "q0", "q1", "q2", "q3", "q4"}, e.callLog())
}

func TestConcurrentSubmittersAreSerialized(t *testing.T) {
	e := newVocabEmbedder("a")
	engine := newTestEngine(t, e, WithQueueSize(1))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("Page %d. Body", i%3)
			out, err := engine.Refine(context.Background(), "a", text, 100)
			assert.NoError(t, err)
			assert.Equal(t, text, out)
		}(i)
	}
	wg.Wait()
}

func TestResultDroppedWhenCallerGone(t *testing.T) {
	e := newVocabEmbedder("a")
	engine := newTestEngine(t, e)
	release := e.holdOn("Slow")

	ctx, cancel := context.WithCancel(context.Background())
	reply := engine.GetRelevantContext(ctx, "a", "Slow. Page", 100)
	cancel()
	close(release)

	// The next request runs after the abandoned one and reuses its work.
	out, err := engine.Refine(context.Background(), "a", "Slow. Page", 100)
	require.NoError(t, err)
	assert.Equal(t, "Slow. Page", out)
	assert.Equal(t, []string{"Slow", "Page", "a", "a"}, e.callLog())

	select {
	case res := <-reply:
		t.Fatalf("result delivered to cancelled caller: %+v", res)
	default:
	}
}

func TestRefineCancelledContext(t *testing.T) {
	engine := newTestEngine(t, newVocabEmbedder("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Refine(ctx, "a", "Page", 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseRejectsNewRequests(t *testing.T) {
	engine, err := NewEngine(newVocabEmbedder("a"))
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	_, err = engine.Refine(context.Background(), "a", "Page", 100)
	assert.ErrorIs(t, err, domain.ErrEngineClosed)
}

func TestCloseFinishesQueuedWork(t *testing.T) {
	e := newVocabEmbedder("a")
	engine, err := NewEngine(e)
	require.NoError(t, err)
	release := e.holdOn("First")

	first := engine.GetRelevantContext(context.Background(), "a", "First", 100)
	second := engine.GetRelevantContext(context.Background(), "a", "Second", 100)

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, engine.Close())

	assert.Equal(t, "First", (<-first).Text)
	assert.Equal(t, "Second", (<-second).Text)
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "test")
	require.NoError(t, err)

	e := newVocabEmbedder("brave")
	engine := newTestEngine(t, e, WithMetrics(m))
	ctx := context.Background()

	_, err = engine.Refine(ctx, "Brave", braveText, 100)
	require.NoError(t, err)
	_, err = engine.Refine(ctx, "Other", braveText, 100)
	require.NoError(t, err)
	_, err = engine.Refine(ctx, "Other", "", 100)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SegmentsEmbedded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(metrics.OutcomeError)))
}

func TestEngineProgress(t *testing.T) {
	var mu sync.Mutex
	var last [2]int
	engine := newTestEngine(t, newVocabEmbedder("a"), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		last = [2]int{done, total}
	}))

	_, err := engine.Refine(context.Background(), "a", braveText, 100)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [2]int{2, 2}, last)
}
