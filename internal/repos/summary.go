package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/types"
)

type SummaryRepo interface {
	FindBySummaryID(ctx context.Context, summaryID string) (*types.SummaryChunk, bool, error)
	Upsert(ctx context.Context, summaries []*types.SummaryChunk) error
	DeleteAll(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]*types.SummaryChunk, error)
}

type summaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSummaryRepo(db *gorm.DB, baseLog *logger.Logger) SummaryRepo {
	return &summaryRepo{db: db, log: baseLog.With("repo", "SummaryRepo")}
}

func (r *summaryRepo) FindBySummaryID(ctx context.Context, summaryID string) (*types.SummaryChunk, bool, error) {
	var result types.SummaryChunk
	err := r.db.WithContext(ctx).
		Where("summary_id = ?", summaryID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (r *summaryRepo) Upsert(ctx context.Context, summaries []*types.SummaryChunk) error {
	if len(summaries) == 0 {
		return nil
	}
	const batchSize = 100
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "summary_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "text", "page_number", "level",
				"token_count", "word_count", "type",
				"source_chunk_ids", "summary_index", "updated_at",
			}),
		}).
		CreateInBatches(summaries, batchSize).Error
}

func (r *summaryRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.SummaryChunk{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *summaryRepo) List(ctx context.Context) ([]*types.SummaryChunk, error) {
	var results []*types.SummaryChunk
	if err := r.db.WithContext(ctx).
		Order("level ASC, summary_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
