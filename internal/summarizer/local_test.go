package summarizer

import (
	"context"
	"strings"
	"testing"
)

func TestLocalSummarizeSelectsSentences(t *testing.T) {
	b := NewLocalBackend()
	text := "The refund policy matters. Refund requests need a receipt. " +
		"Weather was nice today. The refund window is thirty days. " +
		"Lunch was good. Refund approvals take two days. " +
		"Cats sleep a lot. The refund team answers refund email quickly."

	out, err := b.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == "" {
		t.Fatalf("empty summary")
	}
	if !strings.Contains(strings.ToLower(out), "refund") {
		t.Fatalf("summary dropped the dominant topic: %q", out)
	}
	if len(out) >= len(text) {
		t.Fatalf("summary is not shorter than the input")
	}
}

func TestLocalSummarizeNoSentences(t *testing.T) {
	b := NewLocalBackend()
	out, err := b.Summarize(context.Background(), "just a fragment without punctuation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "just a fragment without punctuation" {
		t.Fatalf("fragment should pass through, got %q", out)
	}
}

func TestLocalSummarizeTruncatesInput(t *testing.T) {
	b := NewLocalBackend()
	long := strings.Repeat("Sentence number one is here. ", 200)
	out, err := b.Summarize(context.Background(), long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) > localMaxChars {
		t.Fatalf("summary length %d exceeds input ceiling %d", len(out), localMaxChars)
	}
}
