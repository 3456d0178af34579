package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/http/response"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/services"
	"github.com/yungbote/docchat-backend/internal/summarizer"
	"github.com/yungbote/docchat-backend/internal/types"
)

type SummaryHandler struct {
	summaries services.SummaryService
}

func NewSummaryHandler(summaries services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

type summarizeReq struct {
	Chunks []*types.Chunk `json:"chunks"`
	Model  string         `json:"model"` // "remote" (default) | "local"
}

// POST /api/v4/summarize_chunks
func (h *SummaryHandler) Summarize(c *gin.Context) {
	var req summarizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Chunks) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("chunks are required"))
		return
	}
	backend := req.Model
	if backend == "" {
		backend = summarizer.BackendRemote
	}
	if backend != summarizer.BackendRemote && backend != summarizer.BackendLocal {
		response.RespondError(c, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("unknown model %q", backend))
		return
	}

	result, elapsed, err := h.summaries.SummarizeChunks(c.Request.Context(), req.Chunks, backend)
	if err != nil {
		if openai.IsAuthError(err) {
			response.RespondAuthError(c, err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "summarize_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"summaries":    result.Summaries,
		"finalSummary": result.FinalSummary,
		"stats": gin.H{
			"totalProcessed":  result.TotalProcessed,
			"processingSteps": result.ProcessingSteps,
			"totalSummaries":  len(result.Summaries),
			"processingTime":  elapsed.Milliseconds(),
			"fromCache":       result.FromCache,
			"newlyGenerated":  result.NewlyGenerated,
			"model":           result.Model,
			"rateLimitHit":    result.RateLimitHit,
			"fallbackUsed":    result.FallbackUsed,
		},
	})
}

type saveSummariesReq struct {
	Summaries    []*types.SummaryChunk `json:"summaries"`
	FinalSummary *types.SummaryChunk   `json:"finalSummary"`
}

// POST /api/v4/save_summaries
func (h *SummaryHandler) Save(c *gin.Context) {
	var req saveSummariesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.Summaries) == 0 && req.FinalSummary == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("nothing to save"))
		return
	}

	count, err := h.summaries.SaveSummaries(c.Request.Context(), req.Summaries, req.FinalSummary)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "save_summaries_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"savedCount": count})
}
