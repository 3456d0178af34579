package types

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SummaryTypeIntermediate = "summary"
	SummaryTypeFinal        = "final_summary"

	// FinalSummaryID is the sentinel id carried by the single terminal
	// summary of a document run.
	FinalSummaryID = "final_summary"

	FinalSummaryTitle = "Final Document Summary"
)

// SummaryChunk is a summary produced by one batch of one reduction round.
// SummaryID doubles as the deterministic cache key the summary was stored
// under, except for the final summary which uses the sentinel id.
type SummaryChunk struct {
	ID             uint                        `gorm:"primaryKey" json:"-"`
	SummaryID      string                      `gorm:"column:summary_id;uniqueIndex;size:255;not null" json:"id"`
	Title          string                      `gorm:"column:title" json:"title"`
	Text           string                      `gorm:"column:text;type:text;not null" json:"text"`
	PageNumber     int                         `gorm:"column:page_number" json:"pageNumber"`
	Level          int                         `gorm:"column:level" json:"level"`
	TokenCount     int                         `gorm:"column:token_count" json:"tokenCount"`
	WordCount      int                         `gorm:"column:word_count" json:"wordCount"`
	Type           string                      `gorm:"column:type;index" json:"type"`
	SourceChunkIDs datatypes.JSONSlice[string] `gorm:"column:source_chunk_ids" json:"sourceChunkIds"`
	SummaryIndex   int                         `gorm:"column:summary_index" json:"summaryIndex"`
	FromCache      bool                        `gorm:"-" json:"fromCache,omitempty"`
	CreatedAt      time.Time                   `json:"-"`
	UpdatedAt      time.Time                   `json:"-"`
}

func (SummaryChunk) TableName() string {
	return "summary_chunks"
}

// ConversationMessage is one turn of the rolling chat history the caller
// sends along with a question.
type ConversationMessage struct {
	ID         string `json:"id"`
	Role       string `json:"role"` // "user" | "assistant"
	Content    string `json:"content"`
	TokenCount int    `json:"tokenCount,omitempty"`
}
