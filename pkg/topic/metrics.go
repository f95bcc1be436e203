package topic

import (
	"encoding/json"
	"math"
	"sort"
)

// Metric is a model quality figure that may be undefined for a method.
// Undefined metrics are encoded as "N/A".
type Metric struct {
	Value float64
	Valid bool
}

// Value returns a defined metric.
func Value(v float64) Metric { return Metric{Value: v, Valid: true} }

// NA is an undefined metric.
var NA = Metric{}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid || math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(m.Value)
}

// ModelMetrics are the quality figures of one extraction. A value with no
// defined metric encodes as {} and stands for "no model was fitted".
type ModelMetrics struct {
	Diversity  Metric `json:"diversity"`
	Coherence  Metric `json:"coherence"`
	Perplexity Metric `json:"perplexity"`
}

// IsEmpty reports whether no metric is defined.
func (m ModelMetrics) IsEmpty() bool {
	return !m.Diversity.Valid && !m.Coherence.Valid && !m.Perplexity.Valid
}

func (m ModelMetrics) MarshalJSON() ([]byte, error) {
	if m.IsEmpty() {
		return []byte("{}"), nil
	}
	type plain ModelMetrics
	return json.Marshal(plain(m))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Diversity is the share of distinct keywords among all keyword slots.
func Diversity(topics [][]string) float64 {
	total := 0
	seen := make(map[string]struct{})
	for _, t := range topics {
		for _, w := range t {
			total++
			seen[w] = struct{}{}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(len(seen)) / float64(total)
}

// tfidfMetrics only defines diversity; there is no fitted model to judge.
func tfidfMetrics(topics [][]string) ModelMetrics {
	if len(topics) == 0 {
		return ModelMetrics{}
	}
	return ModelMetrics{Diversity: Value(round(Diversity(topics), 3)), Coherence: NA, Perplexity: NA}
}

// ldaMetrics scores a fitted LDA model. phi is topics x terms, theta is
// topics x docs and x is terms x docs (the matrix the model was fitted on).
func ldaMetrics(phi, theta, x [][]float64, topN int) ModelMetrics {
	if len(phi) == 0 {
		return ModelMetrics{}
	}

	var coherence float64
	slots := 0
	distinct := make(map[int]struct{})
	for _, row := range phi {
		idx := topIndices(row, topN)
		var top, total float64
		for _, v := range row {
			total += v
		}
		for _, i := range idx {
			top += row[i]
			distinct[i] = struct{}{}
		}
		slots += len(idx)
		if total > 0 {
			coherence += top / total
		}
	}
	coherence /= float64(len(phi))

	diversity := 0.0
	if slots > 0 {
		diversity = float64(len(distinct)) / float64(slots)
	}

	return ModelMetrics{
		Perplexity: Value(round(perplexity(phi, theta, x), 1)),
		Coherence:  Value(round(coherence, 3)),
		Diversity:  Value(round(diversity, 3)),
	}
}

// perplexity is exp of the negative per-token log likelihood of x under
// the mixture theta·phi. Rows of phi and columns of theta are normalized
// first so unnormalized model output can be passed in.
func perplexity(phi, theta, x [][]float64) float64 {
	k := len(phi)
	if k == 0 || len(x) == 0 {
		return math.NaN()
	}
	nTerms := len(x)
	nDocs := len(x[0])

	p := make([][]float64, k)
	for t := range phi {
		p[t] = normalized(phi[t])
	}
	th := make([][]float64, nDocs)
	for d := 0; d < nDocs; d++ {
		col := make([]float64, k)
		for t := 0; t < k; t++ {
			col[t] = theta[t][d]
		}
		th[d] = normalized(col)
	}

	var ll, words float64
	for w := 0; w < nTerms; w++ {
		for d := 0; d < nDocs; d++ {
			c := x[w][d]
			if c <= 0 {
				continue
			}
			var prob float64
			for t := 0; t < k; t++ {
				prob += th[d][t] * p[t][w]
			}
			if prob <= 0 {
				prob = math.SmallestNonzeroFloat64
			}
			ll += c * math.Log(prob)
			words += c
		}
	}
	if words == 0 {
		return math.NaN()
	}
	return math.Exp(-ll / words)
}

// embeddingMetrics scores clustered topics by the mean pairwise cosine
// similarity of their embeddings (1 minus the mean cosine distance).
func embeddingMetrics(topics [][]string, embeddings [][]float32, cosine func(a, b []float32) float64) ModelMetrics {
	if len(topics) == 0 {
		return ModelMetrics{}
	}
	m := ModelMetrics{Diversity: Value(round(Diversity(topics), 3)), Coherence: NA, Perplexity: NA}
	if len(embeddings) < 2 {
		return m
	}
	var dist float64
	pairs := 0
	for i := range embeddings {
		for j := range embeddings {
			if i == j {
				continue
			}
			dist += 1 - cosine(embeddings[i], embeddings[j])
			pairs++
		}
	}
	m.Coherence = Value(round(1-dist/float64(pairs), 3))
	return m
}

func normalized(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(v))
		}
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

// topIndices returns the indices of the n largest values, largest first.
// Equal values keep index order.
func topIndices(v []float64, n int) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return v[idx[a]] > v[idx[b]]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}
