package summarizer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// localBackend is an extractive fallback: it keeps the highest-scoring
// sentences, where a sentence scores by the normalized frequency of its
// non-stopword terms. No network, no credentials, bounded input.
type localBackend struct {
	wordPattern     *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
	maxSentences    int
}

func NewLocalBackend() Backend {
	return &localBackend{
		wordPattern:     regexp.MustCompile(`\p{L}+(?:'\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:       stopwordSet(),
		maxSentences:    5,
	}
}

func (b *localBackend) Name() string { return BackendLocal }
func (b *localBackend) Ceiling() int { return localMaxChars - localReserve }
func (b *localBackend) Cost(t string) int { return len([]rune(t)) }

func (b *localBackend) SplitBudget() int {
	// chars to approximate tokens
	return (localMaxChars - localReserve) / 4
}

func (b *localBackend) Summarize(_ context.Context, text string) (string, error) {
	runes := []rune(text)
	if len(runes) > localMaxChars {
		text = string(runes[:localMaxChars])
	}

	sentences := b.sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, w := range b.words(sent) {
			if _, skip := b.stopwords[w]; skip {
				continue
			}
			freq[w]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		words := b.words(sent)
		total := 0.0
		for _, w := range words {
			total += freq[w]
		}
		// normalize by length to avoid long-sentence bias
		if n := float64(len(words)); n > 0 {
			total /= math.Sqrt(n)
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := b.maxSentences
	if keep > len(scores) {
		keep = len(scores)
	}
	picked := make([]int, keep)
	for i := 0; i < keep; i++ {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)

	parts := make([]string, 0, keep)
	for _, idx := range picked {
		parts = append(parts, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(parts, " "), nil
}

func (b *localBackend) words(text string) []string {
	return b.wordPattern.FindAllString(strings.ToLower(text), -1)
}

func stopwordSet() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below",
		"out", "off", "own", "same", "too", "very", "can", "will", "just",
		"not", "no", "now",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
