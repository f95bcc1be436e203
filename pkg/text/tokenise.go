package text

import (
	"regexp"
	"strings"
)

// tokens of two or more word characters, as the vectorizers expect
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// NgramTokeniser splits text into lower-cased word n-grams. Stopwords are
// removed before n-grams are formed, so "permit for the mine" yields the
// bigram "permit mine". It satisfies nlp.Tokeniser.
type NgramTokeniser struct {
	MinN  int
	MaxN  int
	stops map[string]struct{}
}

// NewNgramTokeniser returns a tokeniser producing n-grams of length minN to
// maxN with the given stopwords removed.
func NewNgramTokeniser(minN, maxN int, stopwords ...string) *NgramTokeniser {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	return &NgramTokeniser{
		MinN:  minN,
		MaxN:  maxN,
		stops: toSet(stopwords),
	}
}

// ForEachIn calls f for every n-gram in text, shortest n first.
func (t *NgramTokeniser) ForEachIn(text string, f func(token string)) {
	words := t.words(text)
	for n := t.MinN; n <= t.MaxN; n++ {
		for i := 0; i+n <= len(words); i++ {
			if n == 1 {
				f(words[i])
				continue
			}
			f(strings.Join(words[i:i+n], " "))
		}
	}
}

// Tokenise returns all n-grams in text.
func (t *NgramTokeniser) Tokenise(text string) []string {
	var out []string
	t.ForEachIn(text, func(token string) {
		out = append(out, token)
	})
	return out
}

func (t *NgramTokeniser) words(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	words := raw[:0]
	for _, w := range raw {
		if _, stop := t.stops[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}
