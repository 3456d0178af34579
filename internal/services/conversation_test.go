package services

import (
	"strings"
	"testing"

	"github.com/yungbote/docchat-backend/internal/types"
)

func TestBuildPromptSections(t *testing.T) {
	sources := []*types.Chunk{
		{ChunkID: "c1", Title: "Refunds", Text: "Refunds are issued within 30 days.", PageNumber: 3, Similarity: 0.91},
		{ChunkID: "c2", Title: "Shipping", Text: "Shipping takes a week.", PageNumber: 7, Similarity: 0.40},
	}
	history := []types.ConversationMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	prompt := buildPrompt("What is the refund window?", sources, history)

	if !strings.Contains(prompt, "[Source 1 - Page 3, Similarity: 0.910]") {
		t.Fatalf("first source header missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Source 2 - Page 7, Similarity: 0.400]") {
		t.Fatalf("second source header missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Human: hello") || !strings.Contains(prompt, "Assistant: hi there") {
		t.Fatalf("history lines missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: What is the refund window?") {
		t.Fatalf("question missing:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Answer:") {
		t.Fatalf("prompt must end with the answer cue")
	}
}

func TestBuildPromptHistoryWindow(t *testing.T) {
	history := []types.ConversationMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
		{Role: "user", Content: "five"},
		{Role: "assistant", Content: "six"},
	}
	prompt := buildPrompt("q", nil, history)

	if strings.Contains(prompt, "Human: one") || strings.Contains(prompt, "Assistant: two") {
		t.Fatalf("history older than %d turns must be dropped", historyWindow)
	}
	for _, want := range []string{"Human: three", "Assistant: four", "Human: five", "Assistant: six"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("recent history line %q missing", want)
		}
	}
}

func TestBuildPromptNoHistory(t *testing.T) {
	prompt := buildPrompt("q", nil, nil)
	if strings.Contains(prompt, "Previous conversation:") {
		t.Fatalf("empty history must not render a history section")
	}
}

func TestNewMessageID(t *testing.T) {
	a := newMessageID()
	b := newMessageID()
	if !strings.HasPrefix(a, "msg_") {
		t.Fatalf("id %q missing msg_ prefix", a)
	}
	if a == b {
		t.Fatalf("consecutive ids collided: %s", a)
	}
}

func TestEmbeddingBatchSize(t *testing.T) {
	cases := []struct {
		total int
		want  int
	}{
		{1, 30},
		{50, 30},
		{51, 25},
		{100, 25},
		{101, 20},
	}
	for _, tc := range cases {
		if got := embeddingBatchSize(tc.total); got != tc.want {
			t.Fatalf("embeddingBatchSize(%d) = %d, want %d", tc.total, got, tc.want)
		}
	}
}
