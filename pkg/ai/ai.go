// Package ai provides text embedders used by the embedding-based topic
// extractor. Remote embedders live in the openai and ollama subpackages; the
// lsa subpackage embeds locally without any model server.
package ai

import (
	"context"
	"math"
)

// Embedder turns texts into dense vectors. The returned slice is aligned
// with inputs.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// CorpusEmbedder is an embedder whose vector space is learned from the
// corpus it will embed. Fit returns a ready Embedder for that corpus and
// leaves the receiver untouched, so one CorpusEmbedder can serve concurrent
// requests.
type CorpusEmbedder interface {
	Fit(ctx context.Context, corpus []string) (Embedder, error)
}

// UsageMetrics contains token and timing counters of remote model calls.
type UsageMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	Requests       int     `json:"requests"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// Add accumulates m into u and refreshes the throughput figure.
func (u *UsageMetrics) Add(m UsageMetrics) {
	u.InputTokens += m.InputTokens
	u.TotalTokens += m.TotalTokens
	u.Requests += m.Requests
	u.DurationMs += m.DurationMs
	if u.DurationMs > 0 {
		tps := (float64(u.TotalTokens) * 1000.0) / float64(u.DurationMs)
		u.TokenPerSecond = float32(math.Round(tps*100) / 100)
	}
}

// MetricsReporter is implemented by embedders that track usage.
type MetricsReporter interface {
	GetMetrics() UsageMetrics
	ResetMetrics()
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NormalizeUnit scales v to unit length. Zero vectors are returned as is.
func NormalizeUnit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum <= 0 {
		return v
	}
	den := 1.0 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(float64(v[i]) * den)
	}
	return out
}

// FitFor returns an embedder ready for corpus: CorpusEmbedders are fitted,
// anything else is returned unchanged.
func FitFor(ctx context.Context, e Embedder, corpus []string) (Embedder, error) {
	if ce, ok := e.(CorpusEmbedder); ok {
		return ce.Fit(ctx, corpus)
	}
	return e, nil
}
