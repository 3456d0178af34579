package services

import (
	"context"
	"time"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

const (
	perChunkDelay = 50 * time.Millisecond
	perBatchDelay = 200 * time.Millisecond
)

// EmbeddingInfo reports how a generate-embeddings call was batched.
type EmbeddingInfo struct {
	BatchSize    int `json:"batchSize"`
	TotalBatches int `json:"totalBatches"`
}

type ChunkService interface {
	// GetOrCreateChunks attaches embeddings to the given chunks, reusing
	// stored vectors for unchanged chunk ids and embedding only the
	// misses. Embedding failures degrade the affected batch to
	// embeddingless chunks rather than failing the call.
	GetOrCreateChunks(ctx context.Context, chunks []*types.Chunk) ([]*types.Chunk, int, int, *EmbeddingInfo, error)
	SaveChunks(ctx context.Context, chunks []*types.Chunk) error
	ClearChunks(ctx context.Context, chunkIDs []string) (int64, error)
	GetChunkStats(ctx context.Context) (*types.ChunkStoreStats, error)
	GetAllChunks(ctx context.Context) ([]*types.Chunk, error)
	GetChunksByPage(ctx context.Context, page int) ([]*types.Chunk, error)
	GetChunksByLevel(ctx context.Context, level int) ([]*types.Chunk, error)
	GetChunkByID(ctx context.Context, chunkID string) (*types.Chunk, error)
	UpdateChunk(ctx context.Context, chunk *types.Chunk) error
}

type chunkService struct {
	log      *logger.Logger
	repo     repos.ChunkRepo
	embedder openai.Client
	sleep    func(time.Duration)
}

// NewChunkService builds the chunk boundary service. embedder may be nil
// when no credential is configured; embedding calls then leave chunks bare.
func NewChunkService(repo repos.ChunkRepo, embedder openai.Client, baseLog *logger.Logger) ChunkService {
	return &chunkService{
		log:      baseLog.With("service", "ChunkService"),
		repo:     repo,
		embedder: embedder,
		sleep:    time.Sleep,
	}
}

// embeddingBatchSize shrinks as volume grows to stay under provider limits.
func embeddingBatchSize(total int) int {
	switch {
	case total > 100:
		return 20
	case total > 50:
		return 25
	default:
		return 30
	}
}

func (s *chunkService) GetOrCreateChunks(ctx context.Context, chunks []*types.Chunk) ([]*types.Chunk, int, int, *EmbeddingInfo, error) {
	if len(chunks) == 0 {
		return []*types.Chunk{}, 0, 0, &EmbeddingInfo{}, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	stored, err := s.repo.FindByChunkIDs(ctx, ids)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	cached := make(map[string]*types.Chunk, len(stored))
	for _, c := range stored {
		if c.HasEmbedding() {
			cached[c.ChunkID] = c
		}
	}

	fromCache := 0
	var misses []*types.Chunk
	for _, c := range chunks {
		if hit, ok := cached[c.ChunkID]; ok {
			c.Embedding = hit.Embedding
			c.FromCache = true
			fromCache++
			continue
		}
		misses = append(misses, c)
	}

	batchSize := embeddingBatchSize(len(chunks))
	info := &EmbeddingInfo{BatchSize: batchSize}

	newlyGenerated := 0
	if len(misses) > 0 && s.embedder != nil {
		for start := 0; start < len(misses); start += batchSize {
			end := start + batchSize
			if end > len(misses) {
				end = len(misses)
			}
			batch := misses[start:end]
			info.TotalBatches++

			if err := s.embedBatch(ctx, batch); err != nil {
				// degraded batch: chunks stay queryable via lexical search
				s.log.Warn("Embedding batch failed, continuing without vectors",
					"batch", info.TotalBatches,
					"chunks", len(batch),
					"error", err.Error(),
				)
			} else {
				newlyGenerated += len(batch)
			}
			if end < len(misses) {
				s.sleep(perBatchDelay)
			}
		}
	}

	if err := s.repo.Upsert(ctx, chunks); err != nil {
		return nil, 0, 0, nil, err
	}

	s.log.Info("Embeddings resolved",
		"total", len(chunks),
		"from_cache", fromCache,
		"newly_generated", newlyGenerated,
		"batches", info.TotalBatches,
	)
	return chunks, fromCache, newlyGenerated, info, nil
}

// embedBatch embeds one chunk at a time with a short pause between calls.
// Sequential pacing keeps the run under the provider's per-minute budget.
func (s *chunkService) embedBatch(ctx context.Context, batch []*types.Chunk) error {
	for i, c := range batch {
		vectors, err := s.embedder.Embed(ctx, []string{c.Text})
		if err != nil {
			return err
		}
		c.Embedding = vectors[0]
		if i < len(batch)-1 {
			s.sleep(perChunkDelay)
		}
	}
	return nil
}

func (s *chunkService) SaveChunks(ctx context.Context, chunks []*types.Chunk) error {
	return s.repo.Upsert(ctx, chunks)
}

func (s *chunkService) ClearChunks(ctx context.Context, chunkIDs []string) (int64, error) {
	count, err := s.repo.DeleteByChunkIDs(ctx, chunkIDs)
	if err != nil {
		return 0, err
	}
	s.log.Info("Chunks cleared", "deleted", count)
	return count, nil
}

func (s *chunkService) GetChunkStats(ctx context.Context) (*types.ChunkStoreStats, error) {
	return s.repo.Stats(ctx)
}

func (s *chunkService) GetAllChunks(ctx context.Context) ([]*types.Chunk, error) {
	return s.repo.GetAll(ctx)
}

func (s *chunkService) GetChunksByPage(ctx context.Context, page int) ([]*types.Chunk, error) {
	return s.repo.GetByPage(ctx, page)
}

func (s *chunkService) GetChunksByLevel(ctx context.Context, level int) ([]*types.Chunk, error) {
	return s.repo.GetByLevel(ctx, level)
}

func (s *chunkService) GetChunkByID(ctx context.Context, chunkID string) (*types.Chunk, error) {
	return s.repo.GetByChunkID(ctx, chunkID)
}

func (s *chunkService) UpdateChunk(ctx context.Context, chunk *types.Chunk) error {
	return s.repo.Update(ctx, chunk)
}
