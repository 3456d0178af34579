package token

import (
	"strings"
	"testing"
)

func TestCount(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"word", 1},
		{"hello", 2},
		{"hello world", 4},
		{"well-known", 4},
		{"a b c", 3},
	}
	for _, tc := range cases {
		if got := Count(tc.text); got != tc.want {
			t.Fatalf("Count(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestCountRepeatedWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 1000))
	if got := Count(text); got != 1000 {
		t.Fatalf("Count of 1000 short words = %d, want 1000", got)
	}
}

func TestEstimate(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Fatalf("Estimate(empty) = %d, want 0", got)
	}
	if got := Estimate("abcd"); got != 1 {
		t.Fatalf("Estimate(abcd) = %d, want 1", got)
	}
	if got := Estimate("abcde"); got != 2 {
		t.Fatalf("Estimate(abcde) = %d, want 2", got)
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("one  two\nthree"); got != 3 {
		t.Fatalf("CountWords = %d, want 3", got)
	}
	if got := CountWords(""); got != 0 {
		t.Fatalf("CountWords(empty) = %d, want 0", got)
	}
}
