package topic

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/logger"
)

const (
	defaultMinTopicSize = 5
	keywordCandidates   = 30
	keywordsPerTopic    = 10
)

// BERTopic clusters document embeddings and describes each cluster with
// class-based TF-IDF keywords re-ranked by embedding similarity. Documents
// get a one-hot vector on their cluster; outliers get an all-zero vector.
type BERTopic struct {
	Embedder     ai.Embedder
	MinTopicSize int
}

// NewBERTopic returns the extractor. minTopicSize <= 0 selects the default.
func NewBERTopic(embedder ai.Embedder, minTopicSize int) *BERTopic {
	return &BERTopic{Embedder: embedder, MinTopicSize: minTopicSize}
}

func (e *BERTopic) Method() Method { return MethodBERTopic }

func (e *BERTopic) fail(err error) (Result, error) {
	return Result{}, &ExtractionError{Method: MethodBERTopic, Err: err}
}

func (e *BERTopic) Extract(ctx context.Context, docs []string) (Result, error) {
	if len(docs) == 0 {
		return e.fail(ErrNoTopics)
	}
	if e.Embedder == nil {
		return e.fail(fmt.Errorf("no embedder configured"))
	}

	minSize := e.MinTopicSize
	if minSize <= 0 {
		minSize = defaultMinTopicSize
	}
	if len(docs) < minSize*2 {
		minSize = max(2, len(docs)/4)
	}

	embedder, err := ai.FitFor(ctx, e.Embedder, docs)
	if err != nil {
		return e.fail(fmt.Errorf("fit embedder: %w", err))
	}
	raw, err := embedder.Embed(ctx, docs)
	if err != nil {
		return e.fail(fmt.Errorf("embed documents: %w", err))
	}
	if len(raw) != len(docs) {
		return e.fail(fmt.Errorf("embedder returned %d vectors for %d documents", len(raw), len(docs)))
	}
	vecs := make([][]float32, len(raw))
	for i, v := range raw {
		vecs[i] = ai.NormalizeUnit(v)
	}

	labels, k := cluster(vecs, minSize)
	if k == 0 {
		return e.fail(ErrNoTopics)
	}

	groups := make([][]int, k)
	for i, l := range labels {
		if l != outlier {
			groups[l] = append(groups[l], i)
		}
	}
	topicVecs := make([][]float32, k)
	classDocs := make([]string, k)
	for t, g := range groups {
		members := make([][]float32, len(g))
		for j, i := range g {
			members[j] = vecs[i]
			classDocs[t] += docs[i] + " "
		}
		topicVecs[t] = meanUnit(members)
	}

	topics, err := classKeywords(classDocs)
	if err != nil {
		return e.fail(fmt.Errorf("topic keywords: %w", err))
	}
	topics = rerank(ctx, embedder, topics, topicVecs)

	docTopics := make([][]float64, len(docs))
	for i, l := range labels {
		w := make([]float64, k)
		if l != outlier {
			w[l] = 1
		}
		docTopics[i] = w
	}

	logger.Debug("bertopic clustered", "docs", len(docs), "topics", k, "min_topic_size", minSize)
	return Result{
		Topics:    topics,
		DocTopics: docTopics,
		Metrics:   embeddingMetrics(topics, topicVecs, ai.Cosine),
	}, nil
}

// classKeywords scores terms with class-based TF-IDF, where each class is
// the concatenation of one topic's documents: tf is the term's share of
// the class and idf is log(1 + A/f) with A the mean class length and f the
// term's frequency over all classes. The best candidates per class are
// returned, best first.
func classKeywords(classDocs []string) ([][]string, error) {
	dt, err := vectorise(classDocs, vectoriserConfig{MinN: 1, MaxN: 2, MinDF: 1})
	if err != nil {
		return nil, err
	}

	nTerms := len(dt.Terms)
	freq := make([]float64, nTerms)
	lengths := make([]float64, len(dt.Weights))
	var total float64
	for c, row := range dt.Weights {
		for t, v := range row {
			freq[t] += v
			lengths[c] += v
		}
		total += lengths[c]
	}
	avg := total / float64(len(dt.Weights))

	out := make([][]string, len(dt.Weights))
	for c, row := range dt.Weights {
		if lengths[c] == 0 {
			continue
		}
		score := make([]float64, nTerms)
		for t, v := range row {
			if v == 0 {
				continue
			}
			score[t] = v / lengths[c] * math.Log(1+avg/freq[t])
		}
		for _, t := range topIndices(score, keywordCandidates) {
			if score[t] > 0 {
				out[c] = append(out[c], dt.Terms[t])
			}
		}
	}
	return out, nil
}

// rerank orders each topic's candidates by cosine similarity to the topic
// embedding and keeps the best keywordsPerTopic. When the candidates cannot
// be embedded the class-based order is kept.
func rerank(ctx context.Context, embedder ai.Embedder, candidates [][]string, topicVecs [][]float32) [][]string {
	var all []string
	seen := map[string]int{}
	for _, c := range candidates {
		for _, w := range c {
			if _, ok := seen[w]; !ok {
				seen[w] = len(all)
				all = append(all, w)
			}
		}
	}

	out := make([][]string, len(candidates))
	vecs, err := embedder.Embed(ctx, all)
	if err != nil || len(vecs) != len(all) {
		logger.Warn("keyword embedding failed, keeping c-tf-idf order", "err", err)
		for t, c := range candidates {
			out[t] = c[:min(len(c), keywordsPerTopic)]
		}
		return out
	}

	for t, c := range candidates {
		ranked := append([]string(nil), c...)
		sim := make(map[string]float64, len(ranked))
		for _, w := range ranked {
			sim[w] = ai.Cosine(vecs[seen[w]], topicVecs[t])
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			return sim[ranked[a]] > sim[ranked[b]]
		})
		out[t] = ranked[:min(len(ranked), keywordsPerTopic)]
	}
	return out
}
