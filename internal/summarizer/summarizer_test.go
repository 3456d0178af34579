package summarizer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/docchat-backend/internal/token"
	"github.com/yungbote/docchat-backend/internal/types"
)

type fakeBackend struct {
	name    string
	ceiling int
	calls   int
	fail    error
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Ceiling() int { return b.ceiling }
func (b *fakeBackend) Cost(t string) int { return token.Count(t) }
func (b *fakeBackend) SplitBudget() int { return b.ceiling }

func (b *fakeBackend) Summarize(_ context.Context, text string) (string, error) {
	b.calls++
	if b.fail != nil {
		return "", b.fail
	}
	return fmt.Sprintf("condensed %d", len(text)), nil
}

type memCache struct {
	entries map[string]*types.SummaryChunk
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*types.SummaryChunk{}}
}

func (c *memCache) Get(_ context.Context, key string) (*types.SummaryChunk, bool, error) {
	rec, ok := c.entries[key]
	return rec, ok, nil
}

func (c *memCache) Put(_ context.Context, rec *types.SummaryChunk) error {
	c.puts++
	c.entries[rec.SummaryID] = rec
	return nil
}

func newTestSummarizer(remote, local Backend, cache Cache) *BatchSummarizer {
	s := New(remote, local, cache, nil)
	s.SetSleep(func(time.Duration) {})
	return s
}

func tokenChunks(n, tokens int) []*types.Chunk {
	chunks := make([]*types.Chunk, n)
	for i := range chunks {
		chunks[i] = &types.Chunk{
			ChunkID:    fmt.Sprintf("chunk-%d", i+1),
			Title:      fmt.Sprintf("Section %d", i+1),
			Text:       strings.TrimSpace(strings.Repeat(fmt.Sprintf("w%d ", i+1), tokens)),
			TokenCount: tokens,
		}
	}
	return chunks
}

func TestEmptyInputRejected(t *testing.T) {
	s := newTestSummarizer(&fakeBackend{name: BackendRemote, ceiling: 1500}, &fakeBackend{name: BackendLocal, ceiling: 900}, newMemCache())
	if _, err := s.Summarize(context.Background(), nil, BackendRemote); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestSingleChunkShortCircuit(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 1500}
	s := newTestSummarizer(remote, &fakeBackend{name: BackendLocal, ceiling: 900}, newMemCache())

	result, err := s.Summarize(context.Background(), tokenChunks(1, 50), BackendRemote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalSummary == nil || result.FinalSummary.Type != types.SummaryTypeFinal {
		t.Fatalf("single chunk must yield a final summary directly")
	}
	if result.ProcessingSteps != 1 {
		t.Fatalf("steps = %d, want 1", result.ProcessingSteps)
	}
	if len(result.Summaries) != 0 {
		t.Fatalf("no intermediates expected, got %d", len(result.Summaries))
	}
	if remote.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", remote.calls)
	}
}

func TestSevenChunksOneBatch(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 1500}
	s := newTestSummarizer(remote, &fakeBackend{name: BackendLocal, ceiling: 900}, newMemCache())

	// 7 x 200 = 1400 tokens, fits one 1500-token batch
	result, err := s.Summarize(context.Background(), tokenChunks(7, 200), BackendRemote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProcessingSteps != 1 {
		t.Fatalf("steps = %d, want 1", result.ProcessingSteps)
	}
	if result.FinalSummary == nil {
		t.Fatalf("missing final summary")
	}
	if remote.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", remote.calls)
	}
	if got := len(result.FinalSummary.SourceChunkIDs); got != 7 {
		t.Fatalf("final covers %d sources, want 7", got)
	}
}

func TestConvergenceMultiRound(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 1500}
	s := newTestSummarizer(remote, &fakeBackend{name: BackendLocal, ceiling: 900}, newMemCache())

	// 12 x 700 tokens: two per batch, 6 batches in round one, reduced again
	chunks := tokenChunks(12, 700)
	result, err := s.Summarize(context.Background(), chunks, BackendRemote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalSummary == nil || result.FinalSummary.Type != types.SummaryTypeFinal {
		t.Fatalf("run did not converge to a final summary")
	}
	if result.ProcessingSteps < 2 {
		t.Fatalf("steps = %d, want at least 2", result.ProcessingSteps)
	}

	covered := map[string]bool{}
	for _, id := range result.FinalSummary.SourceChunkIDs {
		covered[id] = true
	}
	for _, c := range chunks {
		if !covered[c.ChunkID] {
			t.Fatalf("final summary lost source %s", c.ChunkID)
		}
	}
	if result.TotalProcessed != 12 {
		t.Fatalf("totalProcessed = %d, want 12", result.TotalProcessed)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newMemCache()

	first := newTestSummarizer(&fakeBackend{name: BackendRemote, ceiling: 1500}, &fakeBackend{name: BackendLocal, ceiling: 900}, cache)
	chunks := tokenChunks(7, 200)
	r1, err := first.Summarize(context.Background(), chunks, BackendRemote)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if r1.NewlyGenerated == 0 || r1.FromCache != 0 {
		t.Fatalf("first run counters wrong: new=%d cached=%d", r1.NewlyGenerated, r1.FromCache)
	}

	remote := &fakeBackend{name: BackendRemote, ceiling: 1500}
	second := newTestSummarizer(remote, &fakeBackend{name: BackendLocal, ceiling: 900}, cache)
	r2, err := second.Summarize(context.Background(), chunks, BackendRemote)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("second run called the backend %d times, want 0", remote.calls)
	}
	if r2.NewlyGenerated != 0 {
		t.Fatalf("second run generated %d summaries, want 0", r2.NewlyGenerated)
	}
	if r2.FromCache != r1.NewlyGenerated {
		t.Fatalf("second run cache hits = %d, want %d", r2.FromCache, r1.NewlyGenerated)
	}
	if r2.FinalSummary == nil || r2.FinalSummary.Text != r1.FinalSummary.Text {
		t.Fatalf("cached final summary does not match")
	}
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 1500, fail: fmt.Errorf("backend down")}
	local := &fakeBackend{name: BackendLocal, ceiling: 900}
	s := newTestSummarizer(remote, local, newMemCache())

	result, err := s.Summarize(context.Background(), tokenChunks(4, 100), BackendRemote)
	if err != nil {
		t.Fatalf("run must survive remote failure, got %v", err)
	}
	if !result.FallbackUsed {
		t.Fatalf("fallbackUsed not flagged")
	}
	if result.Model != BackendLocal {
		t.Fatalf("model = %q, want %q", result.Model, BackendLocal)
	}
	if result.FinalSummary == nil {
		t.Fatalf("missing final summary after fallback")
	}
	if local.calls == 0 {
		t.Fatalf("local backend never called")
	}
	// the switch is one-directional: remote is tried once, then abandoned
	if remote.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", remote.calls)
	}
}

func TestLocalBackendRequested(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 1500}
	local := &fakeBackend{name: BackendLocal, ceiling: 900}
	s := newTestSummarizer(remote, local, newMemCache())

	result, err := s.Summarize(context.Background(), tokenChunks(3, 100), BackendLocal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("remote must not be called when local is requested")
	}
	if result.FallbackUsed {
		t.Fatalf("explicit local run is not a fallback")
	}
}

func TestNoRemoteConfigured(t *testing.T) {
	local := &fakeBackend{name: BackendLocal, ceiling: 900}
	s := newTestSummarizer(nil, local, newMemCache())

	result, err := s.Summarize(context.Background(), tokenChunks(3, 100), BackendRemote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.FallbackUsed {
		t.Fatalf("missing remote backend must flag fallbackUsed")
	}
	if result.FinalSummary == nil {
		t.Fatalf("missing final summary")
	}
}

func TestRateTrackerWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	tracker := newRateTracker(func() time.Time { return current })

	if !tracker.allow(rateBudgetTokens) {
		t.Fatalf("full budget must be allowed in a fresh window")
	}
	tracker.record(rateBudgetTokens)
	if tracker.allow(1) {
		t.Fatalf("exhausted window must reject further calls")
	}

	current = current.Add(rateWindow + time.Second)
	if !tracker.allow(1) {
		t.Fatalf("elapsed window must reset the budget")
	}
	if tracker.tokensUsed != 0 {
		t.Fatalf("reset did not clear usage, got %v", tracker.tokensUsed)
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := cacheKey(BackendRemote, []string{"b", "a"}, "shared text")
	b := cacheKey(BackendRemote, []string{"a", "b"}, "shared text")
	if a != b {
		t.Fatalf("key must be order-independent: %q vs %q", a, b)
	}
	c := cacheKey(BackendRemote, []string{"a", "b"}, "different text")
	if a == c {
		t.Fatalf("key must depend on text")
	}
	d := cacheKey(BackendLocal, []string{"a", "b"}, "shared text")
	if a == d {
		t.Fatalf("key must depend on backend")
	}
}

func TestOversizeUnitPreSplit(t *testing.T) {
	remote := &fakeBackend{name: BackendRemote, ceiling: 300}
	s := newTestSummarizer(remote, &fakeBackend{name: BackendLocal, ceiling: 900}, newMemCache())

	// two chunks, one far over the 300-token batch ceiling
	chunks := []*types.Chunk{
		{ChunkID: "big", Title: "Big", Text: strings.TrimSpace(strings.Repeat("word ", 800)), TokenCount: 800},
		{ChunkID: "small", Title: "Small", Text: "short text", TokenCount: 2},
	}
	result, err := s.Summarize(context.Background(), chunks, BackendRemote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalSummary == nil {
		t.Fatalf("missing final summary")
	}
	covered := map[string]bool{}
	for _, id := range result.FinalSummary.SourceChunkIDs {
		covered[id] = true
	}
	if !covered["big"] || !covered["small"] {
		t.Fatalf("pre-split lost source attribution: %v", result.FinalSummary.SourceChunkIDs)
	}
}
