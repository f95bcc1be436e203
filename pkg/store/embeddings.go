package store

import (
	"context"
	"fmt"

	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/logger"
)

// CachedEmbedder serves embeddings from a cache and asks the wrapped
// embedder only for texts it has not seen. Cache failures are logged and
// do not fail the request.
type CachedEmbedder struct {
	Embedder ai.Embedder
	Cache    EmbeddingCache
	Model    string
}

func NewCachedEmbedder(embedder ai.Embedder, cache EmbeddingCache, model string) *CachedEmbedder {
	return &CachedEmbedder{Embedder: embedder, Cache: cache, Model: model}
}

func (c *CachedEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	hashes := make([]string, len(inputs))
	for i, in := range inputs {
		hashes[i] = ContentHash(in)
	}

	cached, err := c.Cache.GetEmbeddings(ctx, c.Model, DedupeStrings(hashes))
	if err != nil {
		logger.Warn("embedding cache lookup failed", "model", c.Model, "err", err)
		cached = nil
	}

	out := make([][]float32, len(inputs))
	missing := map[string]int{}
	var texts []string
	for i, h := range hashes {
		if v, ok := cached[h]; ok {
			out[i] = v
			continue
		}
		if _, ok := missing[h]; !ok {
			missing[h] = len(texts)
			texts = append(texts, inputs[i])
		}
	}
	logger.Debug("embedding cache", "model", c.Model, "inputs", len(inputs), "misses", len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	vecs, err := c.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	fresh := make(map[string][]float32, len(texts))
	for i, h := range hashes {
		if out[i] != nil {
			continue
		}
		j := missing[h]
		out[i] = vecs[j]
		fresh[h] = vecs[j]
	}
	if err := c.Cache.PutEmbeddings(ctx, c.Model, fresh); err != nil {
		logger.Warn("embedding cache store failed", "model", c.Model, "err", err)
	}
	return out, nil
}

// GetMetrics reports the usage of the wrapped embedder, if it tracks any.
func (c *CachedEmbedder) GetMetrics() ai.UsageMetrics {
	if r, ok := c.Embedder.(ai.MetricsReporter); ok {
		return r.GetMetrics()
	}
	return ai.UsageMetrics{}
}

func (c *CachedEmbedder) ResetMetrics() {
	if r, ok := c.Embedder.(ai.MetricsReporter); ok {
		r.ResetMetrics()
	}
}
