// Package text holds the text handling shared by the topic extractors and
// the keyword views: the meaningfulness filter, stopword lists and the
// n-gram tokeniser fed into the nlp vectorisers.
package text

import (
	"regexp"
	"strings"
)

// DefaultMinWords is the number of content words a message needs to count as
// meaningful.
const DefaultMinWords = 3

var (
	wordPattern        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// IsMeaningful reports whether text holds at least minWords words that are
// longer than two characters and not stopwords. A minWords <= 0 uses
// DefaultMinWords.
func IsMeaningful(text string, minWords int) bool {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	if strings.TrimSpace(text) == "" {
		return false
	}

	count := 0
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, stop := normalizerStopwords[w]; stop {
			continue
		}
		count++
		if count >= minWords {
			return true
		}
	}
	return false
}

// Preprocess strips punctuation, lower-cases and trims text before keyword
// extraction.
func Preprocess(text string) string {
	return strings.TrimSpace(strings.ToLower(punctuationPattern.ReplaceAllString(text, "")))
}

// Words splits text on whitespace. It is used for message length statistics.
func Words(text string) int {
	return len(strings.Fields(text))
}
