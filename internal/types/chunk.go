package types

import (
	"time"

	"gorm.io/datatypes"
)

// Chunk is a bounded-size span of source text produced by the hierarchical
// chunker. JSON field names match the processing API payloads.
type Chunk struct {
	ID         uint                         `gorm:"primaryKey" json:"-"`
	ChunkID    string                       `gorm:"column:chunk_id;uniqueIndex;size:64;not null" json:"id"`
	Text       string                       `gorm:"column:text;type:text;not null" json:"text"`
	Title      string                       `gorm:"column:title" json:"title"`
	PageNumber int                          `gorm:"column:page_number;index" json:"pageNumber"`
	Level      int                          `gorm:"column:level;index" json:"level"`
	TokenCount int                          `gorm:"column:token_count" json:"tokenCount"`
	WordCount  int                          `gorm:"column:word_count" json:"wordCount"`
	Embedding  datatypes.JSONSlice[float32] `gorm:"column:embedding" json:"embedding,omitempty"`
	Similarity float64                      `gorm:"column:similarity" json:"similarity,omitempty"`
	FromCache  bool                         `gorm:"-" json:"fromCache,omitempty"`
	CreatedAt  time.Time                    `json:"-"`
	UpdatedAt  time.Time                    `json:"-"`
}

func (Chunk) TableName() string {
	return "chunks"
}

// HasEmbedding reports whether the chunk carries a usable embedding vector.
func (c *Chunk) HasEmbedding() bool {
	return c != nil && len(c.Embedding) > 0
}

// ChunkingStats is the side output of a chunking run.
type ChunkingStats struct {
	TotalChunks      int         `json:"totalChunks"`
	TotalTokens      int         `json:"totalTokens"`
	AverageChunkSize float64     `json:"averageChunkSize"`
	ChunksByLevel    map[int]int `json:"chunksByLevel"`
	ChunksByPage     map[int]int `json:"chunksByPage"`
}

// ChunkStoreStats summarizes what the chunk table currently holds.
type ChunkStoreStats struct {
	Total             int64       `json:"total"`
	WithEmbeddings    int64       `json:"withEmbeddings"`
	OldestCreated     *time.Time  `json:"oldestCreated"`
	NewestCreated     *time.Time  `json:"newestCreated"`
	AverageSimilarity float64     `json:"averageSimilarity"`
	LevelDistribution map[int]int `json:"levelDistribution"`
	PageDistribution  map[int]int `json:"pageDistribution"`
}
