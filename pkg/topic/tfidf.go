package topic

import (
	"context"
	"sort"
	"strings"

	"github.com/commscope/backend/pkg/logger"
)

const (
	tfidfDefaultTopics  = 10
	tfidfFallbackTopics = 15
)

// AutoTFIDFTopics is the "auto" topic count for a collection of n
// documents.
func AutoTFIDFTopics(n int) int { return clamp(n/10, 5, 15) }

// AutoDailyTopics is the "auto" topic count used by the daily view, which
// works on far fewer messages.
func AutoDailyTopics(n int) int { return clamp(n/5, 3, 8) }

// TFIDF turns the highest scoring terms of the collection into
// single-keyword topics. It never returns an error: degenerate input
// yields a placeholder topic instead.
type TFIDF struct {
	NumTopics Count
	// Auto computes the topic count when NumTopics is "auto". Defaults to
	// AutoTFIDFTopics.
	Auto func(n int) int
	// Default applies when NumTopics could not be parsed.
	Default int
}

// NewTFIDF returns the extractor with the standard auto rule.
func NewTFIDF(count Count) *TFIDF {
	return &TFIDF{NumTopics: count, Auto: AutoTFIDFTopics, Default: tfidfDefaultTopics}
}

func (e *TFIDF) Method() Method { return MethodTFIDF }

// tfidfPlaceholder scores the placeholder topic like any other TF-IDF run.
func tfidfPlaceholder(keywords []string, n int) Result {
	res := placeholder(keywords, n)
	res.Metrics = tfidfMetrics(res.Topics)
	return res
}

func (e *TFIDF) Extract(ctx context.Context, docs []string) (Result, error) {
	if len(docs) < 2 {
		return tfidfPlaceholder(InsufficientData, len(docs)), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	dt, err := vectorise(docs, vectoriserConfig{
		MinN: 1, MaxN: 2,
		MaxFeatures: 5000,
		MinDF:       2,
		MaxDF:       0.8,
		TFIDF:       true,
	})
	if err != nil {
		logger.Warn("tfidf vectorizer failed", "docs", len(docs), "err", err)
		return tfidfPlaceholder(ErrorProcessing, len(docs)), nil
	}

	auto := e.Auto
	if auto == nil {
		auto = AutoTFIDFTopics
	}
	def := e.Default
	if def <= 0 {
		def = tfidfDefaultTopics
	}
	k := min(e.NumTopics.Resolve(len(docs), auto, def), len(dt.Terms))

	selected := topTerms(dt, k)
	topics := make([][]string, len(selected))
	for i, t := range selected {
		topics[i] = []string{dt.Terms[t]}
	}

	docTopics := make([][]float64, len(docs))
	for d, row := range dt.Weights {
		w := make([]float64, len(selected))
		var sum float64
		for i, t := range selected {
			w[i] = row[t]
			sum += row[t]
		}
		for i := range w {
			if sum > 0 {
				w[i] /= sum
			} else {
				w[i] = 1 / float64(len(selected))
			}
		}
		docTopics[d] = w
	}

	logger.Debug("tfidf topics extracted", "docs", len(docs), "terms", len(dt.Terms), "topics", len(topics))
	return Result{Topics: topics, DocTopics: docTopics, Metrics: tfidfMetrics(topics)}, nil
}

// topTerms returns the column indices of the k terms with the highest
// summed weight. Ties prefer shorter n-grams, then alphabetical order.
func topTerms(dt *docTerm, k int) []int {
	score := make([]float64, len(dt.Terms))
	for _, row := range dt.Weights {
		for t, v := range row {
			score[t] += v
		}
	}
	idx := make([]int, len(dt.Terms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if !nearlyEqual(score[ia], score[ib]) {
			return score[ia] > score[ib]
		}
		wa, wb := strings.Count(dt.Terms[ia], " "), strings.Count(dt.Terms[ib], " ")
		if wa != wb {
			return wa < wb
		}
		return dt.Terms[ia] < dt.Terms[ib]
	})
	return idx[:k]
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < 1e-12 && d > -1e-12
}
