package services

import (
	"context"
	"time"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/summarizer"
	"github.com/yungbote/docchat-backend/internal/types"
)

type SummaryService interface {
	// SummarizeChunks runs the full reduction and reports wall time.
	SummarizeChunks(ctx context.Context, chunks []*types.Chunk, backendName string) (*summarizer.Result, time.Duration, error)
	SaveSummaries(ctx context.Context, summaries []*types.SummaryChunk, final *types.SummaryChunk) (int, error)
	ListSummaries(ctx context.Context) ([]*types.SummaryChunk, error)
}

type summaryService struct {
	log        *logger.Logger
	repo       repos.SummaryRepo
	summarizer *summarizer.BatchSummarizer
}

func NewSummaryService(repo repos.SummaryRepo, batch *summarizer.BatchSummarizer, baseLog *logger.Logger) SummaryService {
	return &summaryService{
		log:        baseLog.With("service", "SummaryService"),
		repo:       repo,
		summarizer: batch,
	}
}

// RepoCache adapts the summary repo to the summarizer's cache contract.
// Cache entries live in the same table as saved summaries, keyed by the
// deterministic batch key.
type RepoCache struct {
	Repo repos.SummaryRepo
}

func (c RepoCache) Get(ctx context.Context, key string) (*types.SummaryChunk, bool, error) {
	return c.Repo.FindBySummaryID(ctx, key)
}

func (c RepoCache) Put(ctx context.Context, record *types.SummaryChunk) error {
	return c.Repo.Upsert(ctx, []*types.SummaryChunk{record})
}

func (s *summaryService) SummarizeChunks(ctx context.Context, chunks []*types.Chunk, backendName string) (*summarizer.Result, time.Duration, error) {
	start := time.Now()
	result, err := s.summarizer.Summarize(ctx, chunks, backendName)
	if err != nil {
		return nil, 0, err
	}
	return result, time.Since(start), nil
}

func (s *summaryService) SaveSummaries(ctx context.Context, summaries []*types.SummaryChunk, final *types.SummaryChunk) (int, error) {
	records := append([]*types.SummaryChunk{}, summaries...)
	if final != nil {
		records = append(records, final)
	}
	if err := s.repo.Upsert(ctx, records); err != nil {
		return 0, err
	}
	s.log.Info("Summaries saved", "count", len(records))
	return len(records), nil
}

func (s *summaryService) ListSummaries(ctx context.Context) ([]*types.SummaryChunk, error) {
	return s.repo.List(ctx)
}
