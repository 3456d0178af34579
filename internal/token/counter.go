package token

import (
	"math"
	"strings"
	"unicode"
)

// Count returns the token count of text under the fixed tokenization scheme
// used throughout the pipeline. Every size ceiling (chunking, batching,
// retrieval budgets) is expressed in these units, so the scheme matters only
// in that it is deterministic and close to what hosted models charge: each
// run of letters/digits costs ceil(runes/4) with a minimum of one token, and
// each run of punctuation costs one token.
func Count(text string) int {
	total := 0
	for _, field := range strings.Fields(text) {
		total += countWord(field)
	}
	return total
}

func countWord(word string) int {
	tokens := 0
	runLen := 0
	inPunct := false
	flush := func() {
		if runLen == 0 {
			return
		}
		if inPunct {
			tokens++
		} else {
			tokens += (runLen + 3) / 4
		}
		runLen = 0
	}
	for _, r := range word {
		punct := !unicode.IsLetter(r) && !unicode.IsDigit(r)
		if runLen > 0 && punct != inPunct {
			flush()
		}
		inPunct = punct
		runLen++
	}
	flush()
	return tokens
}

// Estimate is the cheap whole-string estimator used by the rate-limit guard:
// ceil(runes/4). It intentionally ignores word boundaries.
func Estimate(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len([]rune(text))) / 4.0))
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
