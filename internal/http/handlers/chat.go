package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/http/response"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/services"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ChatHandler struct {
	conversation services.ConversationService
}

func NewChatHandler(conversation services.ConversationService) *ChatHandler {
	return &ChatHandler{conversation: conversation}
}

type chatReq struct {
	Message             string                      `json:"message"`
	Chunks              []*types.Chunk              `json:"chunks"`
	ConversationHistory []types.ConversationMessage `json:"conversationHistory"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("message is required"))
		return
	}
	if len(req.Chunks) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("chunks are required"))
		return
	}

	answer, err := h.conversation.GenerateAnswer(c.Request.Context(), req.Message, req.Chunks, req.ConversationHistory)
	if err != nil {
		if openai.IsAuthError(err) || errors.Is(err, services.ErrAPIKeyMissing) {
			response.RespondAuthError(c, err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "chat_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"answer":    answer.Answer,
		"sources":   answer.Sources,
		"messageId": answer.MessageID,
	})
}
