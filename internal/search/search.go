package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

const (
	DefaultTopK      = 5
	DefaultMaxTokens = 3000
)

// Embedder is the capability the engine needs to embed a query.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Result is a ranked, token-budgeted selection of chunks for a query.
type Result struct {
	Results     []*types.Chunk `json:"results"`
	TotalTokens int            `json:"totalTokens"`
}

// Engine ranks chunks against a query by embedding similarity, degrading to
// lexical scoring whenever embeddings are unavailable. It never fails a
// query outright; retrieval always produces best-effort context.
type Engine struct {
	log      *logger.Logger
	embedder Embedder
}

// New builds an engine. embedder may be nil; queries then run lexically.
func New(embedder Embedder, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		log:      log.With("service", "VectorSearch"),
		embedder: embedder,
	}
}

// FindSimilarChunks returns up to topK chunks whose token counts fit within
// maxTokens, ranked by cosine similarity to the query embedding. Chunks
// without embeddings, or any embedding failure, fall back to lexical
// scoring. Zero values of topK/maxTokens use the defaults.
func (e *Engine) FindSimilarChunks(ctx context.Context, query string, chunks []*types.Chunk, topK, maxTokens int) *Result {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if len(chunks) == 0 {
		return &Result{Results: []*types.Chunk{}}
	}

	embedded := make([]*types.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.HasEmbedding() {
			embedded = append(embedded, c)
		}
	}

	var scored []*types.Chunk
	if len(embedded) == 0 || e.embedder == nil {
		scored = e.lexicalScore(query, chunks)
	} else {
		vectors, err := e.embedder.Embed(ctx, []string{query})
		if err != nil || len(vectors) == 0 {
			if err != nil {
				e.log.Warn("Query embedding failed, using lexical scoring", "error", err.Error())
			}
			scored = e.lexicalScore(query, chunks)
		} else {
			scored = e.vectorScore(vectors[0], embedded)
		}
	}

	return selectWithinBudget(scored, topK, maxTokens)
}

func (e *Engine) vectorScore(query []float32, chunks []*types.Chunk) []*types.Chunk {
	scored := make([]*types.Chunk, len(chunks))
	for i, c := range chunks {
		copied := *c
		copied.Similarity = CosineSimilarity(query, c.Embedding)
		scored[i] = &copied
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	return scored
}

// lexicalScore counts literal substring occurrences of query words (length
// > 2) in the lowercased chunk text, normalized by max(len/100, 1) so long
// chunks do not dominate.
func (e *Engine) lexicalScore(query string, chunks []*types.Chunk) []*types.Chunk {
	words := make([]string, 0)
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	scored := make([]*types.Chunk, len(chunks))
	for i, c := range chunks {
		text := strings.ToLower(c.Text)
		count := 0
		for _, w := range words {
			count += strings.Count(text, w)
		}
		norm := float64(len(text)) / 100
		if norm < 1 {
			norm = 1
		}
		copied := *c
		copied.Similarity = float64(count) / norm
		scored[i] = &copied
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	return scored
}

// selectWithinBudget greedily takes chunks in score order while the running
// token total stays within budget. The first candidate is always included,
// even alone over budget, so a non-empty input never yields an empty result.
func selectWithinBudget(scored []*types.Chunk, topK, maxTokens int) *Result {
	result := &Result{Results: []*types.Chunk{}}
	for _, c := range scored {
		if len(result.Results) >= topK {
			break
		}
		if len(result.Results) == 0 {
			result.Results = append(result.Results, c)
			result.TotalTokens += c.TokenCount
			if c.TokenCount > maxTokens {
				break
			}
			continue
		}
		if result.TotalTokens+c.TokenCount > maxTokens {
			break
		}
		result.Results = append(result.Results, c)
		result.TotalTokens += c.TokenCount
	}
	return result
}

// CosineSimilarity is dot(a,b)/(|a||b|) with float64 accumulation. Zero
// norm on either side yields 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
