package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ChunkRepo interface {
	FindByChunkIDs(ctx context.Context, chunkIDs []string) ([]*types.Chunk, error)
	Upsert(ctx context.Context, chunks []*types.Chunk) error
	// DeleteByChunkIDs removes the given chunks; a nil or empty id list
	// clears the whole table. Returns the number of rows removed.
	DeleteByChunkIDs(ctx context.Context, chunkIDs []string) (int64, error)
	GetAll(ctx context.Context) ([]*types.Chunk, error)
	GetByPage(ctx context.Context, page int) ([]*types.Chunk, error)
	GetByLevel(ctx context.Context, level int) ([]*types.Chunk, error)
	GetByChunkID(ctx context.Context, chunkID string) (*types.Chunk, error)
	Update(ctx context.Context, chunk *types.Chunk) error
	Stats(ctx context.Context) (*types.ChunkStoreStats, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) FindByChunkIDs(ctx context.Context, chunkIDs []string) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if len(chunkIDs) == 0 {
		return results, nil
	}
	if err := r.db.WithContext(ctx).
		Where("chunk_id IN ?", chunkIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) Upsert(ctx context.Context, chunks []*types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// Text and Embedding are large; keep batches small
	const batchSize = 100
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"text", "title", "page_number", "level",
				"token_count", "word_count", "embedding", "similarity",
				"updated_at",
			}),
		}).
		CreateInBatches(chunks, batchSize).Error
}

func (r *chunkRepo) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) (int64, error) {
	query := r.db.WithContext(ctx)
	if len(chunkIDs) > 0 {
		query = query.Where("chunk_id IN ?", chunkIDs)
	} else {
		query = query.Where("1 = 1")
	}
	result := query.Delete(&types.Chunk{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *chunkRepo) GetAll(ctx context.Context) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) GetByPage(ctx context.Context, page int) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if err := r.db.WithContext(ctx).
		Where("page_number = ?", page).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) GetByLevel(ctx context.Context, level int) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if err := r.db.WithContext(ctx).
		Where("level = ?", level).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) GetByChunkID(ctx context.Context, chunkID string) (*types.Chunk, error) {
	var result types.Chunk
	if err := r.db.WithContext(ctx).
		Where("chunk_id = ?", chunkID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *chunkRepo) Update(ctx context.Context, chunk *types.Chunk) error {
	return r.db.WithContext(ctx).
		Model(&types.Chunk{}).
		Where("chunk_id = ?", chunk.ChunkID).
		Updates(map[string]any{
			"text":        chunk.Text,
			"title":       chunk.Title,
			"page_number": chunk.PageNumber,
			"level":       chunk.Level,
			"token_count": chunk.TokenCount,
			"word_count":  chunk.WordCount,
			"embedding":   chunk.Embedding,
			"similarity":  chunk.Similarity,
		}).Error
}

func (r *chunkRepo) Stats(ctx context.Context) (*types.ChunkStoreStats, error) {
	stats := &types.ChunkStoreStats{
		LevelDistribution: map[int]int{},
		PageDistribution:  map[int]int{},
	}

	chunks, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats.Total = int64(len(chunks))

	var simTotal float64
	var simCount int
	for _, c := range chunks {
		if c.HasEmbedding() {
			stats.WithEmbeddings++
		}
		stats.LevelDistribution[c.Level]++
		stats.PageDistribution[c.PageNumber]++
		if c.Similarity != 0 {
			simTotal += c.Similarity
			simCount++
		}
		created := c.CreatedAt
		if stats.OldestCreated == nil || created.Before(*stats.OldestCreated) {
			t := created
			stats.OldestCreated = &t
		}
		if stats.NewestCreated == nil || created.After(*stats.NewestCreated) {
			t := created
			stats.NewestCreated = &t
		}
	}
	if simCount > 0 {
		stats.AverageSimilarity = simTotal / float64(simCount)
	}
	return stats, nil
}
