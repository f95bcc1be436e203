package topic

import (
	"fmt"

	"github.com/commscope/backend/pkg/text"
)

// Keyword is a term scored by its summed TF-IDF weight over a collection.
type Keyword struct {
	ID    string  `json:"id"`
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// ExtractKeywords returns up to limit keywords of one to maxN words, best
// first. Contents are stripped of punctuation before vectorizing. An empty
// or stopword-only collection yields no keywords.
func ExtractKeywords(contents []string, limit, maxN int) []Keyword {
	if len(contents) == 0 || limit <= 0 {
		return nil
	}
	processed := make([]string, len(contents))
	for i, c := range contents {
		processed[i] = text.Preprocess(c)
	}

	dt, err := vectorise(processed, vectoriserConfig{
		MinN: 1, MaxN: maxN,
		MaxFeatures: 500,
		MinDF:       1,
		TFIDF:       true,
	})
	if err != nil {
		return nil
	}

	score := make([]float64, len(dt.Terms))
	for _, row := range dt.Weights {
		for t, v := range row {
			score[t] += v
		}
	}
	idx := topIndices(score, limit)
	out := make([]Keyword, len(idx))
	for i, t := range idx {
		out[i] = Keyword{ID: fmt.Sprintf("kw_%d", i), Term: dt.Terms[t], Score: score[t]}
	}
	return out
}
