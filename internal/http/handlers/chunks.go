package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/http/response"
	"github.com/yungbote/docchat-backend/internal/services"
	"github.com/yungbote/docchat-backend/internal/token"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ChunkHandler struct {
	chunks  services.ChunkService
	chunker *chunker.Chunker
}

func NewChunkHandler(chunks services.ChunkService, ck *chunker.Chunker) *ChunkHandler {
	return &ChunkHandler{chunks: chunks, chunker: ck}
}

type processReq struct {
	Text       string `json:"text"`
	SourceName string `json:"sourceName"`
	TotalPages int    `json:"totalPages"`
}

// POST /api/v4/chunks/process
func (h *ChunkHandler) Process(c *gin.Context) {
	var req processReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("text is required"))
		return
	}
	if req.SourceName == "" {
		req.SourceName = "document"
	}
	if req.TotalPages < 1 {
		req.TotalPages = 1
	}

	chunks, stats := h.chunker.Chunk(req.Text, req.SourceName, req.TotalPages)
	if len(chunks) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("no chunkable content"))
		return
	}
	if err := h.chunks.SaveChunks(c.Request.Context(), chunks); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "save_chunks_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"chunks": chunks,
		"stats":  stats,
	})
}

// GET /api/v4/chunks?page=|level=|chunkId=
func (h *ChunkHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	if id := strings.TrimSpace(c.Query("chunkId")); id != "" {
		chunk, err := h.chunks.GetChunkByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "chunk_not_found", fmt.Errorf("chunk %s not found", id))
			return
		}
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "get_chunk_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"chunk": chunk})
		return
	}

	var (
		chunks []*types.Chunk
		err    error
	)
	switch {
	case strings.TrimSpace(c.Query("page")) != "":
		page, pErr := strconv.Atoi(c.Query("page"))
		if pErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid page"))
			return
		}
		chunks, err = h.chunks.GetChunksByPage(ctx, page)
	case strings.TrimSpace(c.Query("level")) != "":
		level, lErr := strconv.Atoi(c.Query("level"))
		if lErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid level"))
			return
		}
		chunks, err = h.chunks.GetChunksByLevel(ctx, level)
	default:
		chunks, err = h.chunks.GetAllChunks(ctx)
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_chunks_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"chunks": chunks,
		"count":  len(chunks),
	})
}

type chunkUpdates struct {
	Title      *string `json:"title"`
	Text       *string `json:"text"`
	PageNumber *int    `json:"pageNumber"`
	Level      *int    `json:"level"`
}

type updateChunkReq struct {
	ChunkID string       `json:"chunkId"`
	Updates chunkUpdates `json:"updates"`
}

// PUT /api/v4/chunks
func (h *ChunkHandler) Update(c *gin.Context) {
	var req updateChunkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.ChunkID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("chunkId is required"))
		return
	}

	ctx := c.Request.Context()
	chunk, err := h.chunks.GetChunkByID(ctx, req.ChunkID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.RespondError(c, http.StatusNotFound, "chunk_not_found", fmt.Errorf("chunk %s not found", req.ChunkID))
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_chunk_failed", err)
		return
	}

	if req.Updates.Title != nil {
		chunk.Title = *req.Updates.Title
	}
	if req.Updates.Text != nil {
		chunk.Text = *req.Updates.Text
		chunk.TokenCount = token.Count(chunk.Text)
		chunk.WordCount = token.CountWords(chunk.Text)
		// stored vector no longer matches the text
		chunk.Embedding = nil
	}
	if req.Updates.PageNumber != nil {
		chunk.PageNumber = *req.Updates.PageNumber
	}
	if req.Updates.Level != nil {
		chunk.Level = *req.Updates.Level
	}

	if err := h.chunks.UpdateChunk(ctx, chunk); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "update_chunk_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chunk": chunk})
}

type embeddingsReq struct {
	Chunks []*types.Chunk `json:"chunks"`
}

// POST /api/v4/generate_embeddings
func (h *ChunkHandler) GenerateEmbeddings(c *gin.Context) {
	var req embeddingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Chunks) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("chunks are required"))
		return
	}

	chunks, fromCache, newlyGenerated, info, err := h.chunks.GetOrCreateChunks(c.Request.Context(), req.Chunks)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "generate_embeddings_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"chunks":         chunks,
		"fromCache":      fromCache,
		"newlyGenerated": newlyGenerated,
		"batchInfo":      info,
	})
}

type clearChunksReq struct {
	ChunkIDs []string `json:"chunkIds"`
}

// DELETE /api/v4/clear_chunks
func (h *ChunkHandler) Clear(c *gin.Context) {
	var req clearChunksReq
	// body is optional; absence clears everything
	_ = c.ShouldBindJSON(&req)

	count, err := h.chunks.ClearChunks(c.Request.Context(), req.ChunkIDs)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "clear_chunks_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deletedCount": count})
}

// GET /api/v4/chunk_stats
func (h *ChunkHandler) Stats(c *gin.Context) {
	stats, err := h.chunks.GetChunkStats(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "chunk_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}
