package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/search"
	"github.com/yungbote/docchat-backend/internal/types"
)

const historyWindow = 4

// ErrAPIKeyMissing means no completion credential was configured at start.
var ErrAPIKeyMissing = errors.New("OpenAI API key is not configured")

// ChatAnswer is the outcome of one question against a chunk set.
type ChatAnswer struct {
	Answer    string         `json:"answer"`
	Sources   []*types.Chunk `json:"sources"`
	MessageID string         `json:"messageId"`
}

type ConversationService interface {
	// GenerateAnswer retrieves the most relevant chunks for the question
	// and asks the completion backend for a grounded answer.
	GenerateAnswer(ctx context.Context, question string, chunks []*types.Chunk, history []types.ConversationMessage) (*ChatAnswer, error)
}

type conversationService struct {
	log    *logger.Logger
	engine *search.Engine
	client openai.Client
}

func NewConversationService(engine *search.Engine, client openai.Client, baseLog *logger.Logger) ConversationService {
	return &conversationService{
		log:    baseLog.With("service", "ConversationService"),
		engine: engine,
		client: client,
	}
}

func (s *conversationService) GenerateAnswer(ctx context.Context, question string, chunks []*types.Chunk, history []types.ConversationMessage) (*ChatAnswer, error) {
	if s.client == nil {
		return nil, ErrAPIKeyMissing
	}

	retrieved := s.engine.FindSimilarChunks(ctx, question, chunks, search.DefaultTopK, search.DefaultMaxTokens)

	prompt := buildPrompt(question, retrieved.Results, history)
	answer, err := s.client.Complete(ctx, prompt, 400, 0.3)
	if err != nil {
		return nil, err
	}

	return &ChatAnswer{
		Answer:    answer,
		Sources:   retrieved.Results,
		MessageID: newMessageID(),
	}, nil
}

func buildPrompt(question string, sources []*types.Chunk, history []types.ConversationMessage) string {
	contextParts := make([]string, 0, len(sources))
	for i, c := range sources {
		contextParts = append(contextParts, fmt.Sprintf("[Source %d - Page %d, Similarity: %.3f]\n%s\n%s",
			i+1, c.PageNumber, c.Similarity, c.Title, c.Text))
	}
	contextText := strings.Join(contextParts, "\n\n---\n\n")

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	historyLines := make([]string, 0, len(history))
	for _, msg := range history {
		speaker := "Assistant"
		if msg.Role == "user" {
			speaker = "Human"
		}
		historyLines = append(historyLines, speaker+": "+msg.Content)
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions based on the provided document context. ")
	b.WriteString("Use the context to provide accurate, detailed answers. ")
	b.WriteString("If the context does not contain enough information to answer, say so clearly instead of guessing.\n\n")
	if len(historyLines) > 0 {
		b.WriteString("Previous conversation:\n")
		b.WriteString(strings.Join(historyLines, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("Context from document:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

func newMessageID() string {
	return fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
