package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/token"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"

	remoteBatchTokens = 1500
	remoteReserve     = 500

	localMaxChars = 1024
	localReserve  = 100
)

// Backend summarizes one batch of concatenated text. Cost and Ceiling use the
// same unit, which differs per backend: the remote backend budgets in tokens,
// the local one in raw characters since it has no token API.
type Backend interface {
	Name() string
	Ceiling() int
	Cost(text string) int
	// SplitBudget is the token ceiling used when a single unit is too big
	// for one batch and has to be pre-split.
	SplitBudget() int
	Summarize(ctx context.Context, text string) (string, error)
}

type remoteBackend struct {
	client openai.Client
	log    *logger.Logger
}

// NewRemoteBackend summarizes through the hosted completion capability.
func NewRemoteBackend(client openai.Client, log *logger.Logger) Backend {
	return &remoteBackend{client: client, log: log.With("backend", BackendRemote)}
}

func (b *remoteBackend) Name() string { return BackendRemote }
func (b *remoteBackend) Ceiling() int { return remoteBatchTokens }
func (b *remoteBackend) Cost(t string) int { return token.Count(t) }
func (b *remoteBackend) SplitBudget() int { return remoteBatchTokens }

func (b *remoteBackend) Summarize(ctx context.Context, text string) (string, error) {
	maxInputTokens := remoteBatchTokens - remoteReserve
	if token.Count(text) > maxInputTokens {
		maxChars := int(float64(maxInputTokens) * 3.5)
		runes := []rune(text)
		if maxChars < len(runes) {
			text = string(runes[:maxChars]) + "..."
			b.log.Warn("Truncated summarization input", "max_tokens", maxInputTokens)
		}
	}

	prompt := fmt.Sprintf("Please provide a comprehensive summary of the following text. "+
		"Focus on the key points, main ideas, and important details. "+
		"Make the summary clear and well-structured. "+
		"If the text does not contain enough substance to summarize, say so briefly:\n\n%s", text)

	out, err := b.client.Complete(ctx, prompt, 400, 0.3)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty summary from completion backend")
	}
	return out, nil
}
