package search

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/yungbote/docchat-backend/internal/types"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = f.vector
	}
	return out, nil
}

func chunk(id string, tokens int, embedding []float32, text string) *types.Chunk {
	return &types.Chunk{
		ChunkID:    id,
		Text:       text,
		TokenCount: tokens,
		Embedding:  embedding,
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	cases := [][2][]float32{
		{{1, 0}, {1, 0}},
		{{1, 0}, {0, 1}},
		{{1, 0}, {-1, 0}},
		{{0.3, 0.7, 0.1}, {0.9, 0.2, 0.5}},
	}
	for _, c := range cases {
		got := CosineSimilarity(c[0], c[1])
		if math.IsNaN(got) || got < -1.0000001 || got > 1.0000001 {
			t.Fatalf("similarity %v out of bounds for %v", got, c)
		}
	}
	if got := CosineSimilarity([]float32{1, 1}, []float32{1, 1}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors = %v, want 1", got)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 2}); got != 0 {
		t.Fatalf("zero vector similarity = %v, want 0", got)
	}
	if got := CosineSimilarity(nil, []float32{1}); got != 0 {
		t.Fatalf("nil vector similarity = %v, want 0", got)
	}
}

func TestVectorOrder(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	engine := New(embedder, nil)

	a := chunk("A", 10, []float32{0.91, float32(math.Sqrt(1 - 0.91*0.91))}, "a")
	b := chunk("B", 10, []float32{0.40, float32(math.Sqrt(1 - 0.40*0.40))}, "b")

	result := engine.FindSimilarChunks(context.Background(), "refund policy", []*types.Chunk{b, a}, 5, 100000)
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	if result.Results[0].ChunkID != "A" || result.Results[1].ChunkID != "B" {
		t.Fatalf("order = [%s, %s], want [A, B]", result.Results[0].ChunkID, result.Results[1].ChunkID)
	}
	if math.Abs(result.Results[0].Similarity-0.91) > 0.01 {
		t.Fatalf("similarity of A = %v, want ~0.91", result.Results[0].Similarity)
	}
}

func TestTokenBudgetSelection(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	engine := New(embedder, nil)

	var chunks []*types.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("c%d", i), 100, []float32{1, 0}, "text"))
	}
	result := engine.FindSimilarChunks(context.Background(), "query", chunks, 10, 350)
	if result.TotalTokens > 350 {
		t.Fatalf("selected %d tokens, budget 350", result.TotalTokens)
	}
	if len(result.Results) != 3 {
		t.Fatalf("selected %d chunks, want 3", len(result.Results))
	}
}

func TestSingletonOverflow(t *testing.T) {
	engine := New(&fakeEmbedder{vector: []float32{1}}, nil)
	big := chunk("big", 5000, []float32{1}, "text")

	result := engine.FindSimilarChunks(context.Background(), "query", []*types.Chunk{big}, 5, 100)
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want the over-budget singleton", len(result.Results))
	}
}

func TestLexicalFallbackNoEmbeddings(t *testing.T) {
	engine := New(&fakeEmbedder{vector: []float32{1}}, nil)
	chunks := []*types.Chunk{
		chunk("miss", 10, nil, "nothing relevant here"),
		chunk("hit", 10, nil, "our refund policy covers every refund request"),
	}

	result := engine.FindSimilarChunks(context.Background(), "refund policy", chunks, 5, 1000)
	if len(result.Results) == 0 {
		t.Fatalf("lexical fallback returned no results")
	}
	if result.Results[0].ChunkID != "hit" {
		t.Fatalf("top lexical result = %s, want hit", result.Results[0].ChunkID)
	}
}

func TestLexicalFallbackOnEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("backend down")}
	engine := New(embedder, nil)
	chunks := []*types.Chunk{
		chunk("a", 10, []float32{1, 0}, "the refund policy text"),
		chunk("b", 10, []float32{0, 1}, "unrelated"),
	}

	result := engine.FindSimilarChunks(context.Background(), "refund policy", chunks, 5, 1000)
	if len(result.Results) == 0 {
		t.Fatalf("embed failure must degrade to lexical results, got none")
	}
	if result.Results[0].ChunkID != "a" {
		t.Fatalf("top result = %s, want a", result.Results[0].ChunkID)
	}
}

func TestShortQueryWordsIgnored(t *testing.T) {
	engine := New(nil, nil)
	chunks := []*types.Chunk{
		chunk("a", 10, nil, "it is an ok day"),
		chunk("b", 10, nil, "completely different words"),
	}
	// every query word is length <= 2, so all scores are 0; still non-empty
	result := engine.FindSimilarChunks(context.Background(), "it is ok", chunks, 5, 1000)
	if len(result.Results) == 0 {
		t.Fatalf("zero-score query must still return results")
	}
}
