package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/errgroup"
)

// Embed creates vector embeddings for inputs using the configured model.
// Blank inputs get zero vectors without a request.
func (c *OllamaEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	var (
		idx  []int
		text []string
	)
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			out[i] = make([]float32, c.dimensions)
			continue
		}
		idx = append(idx, i)
		text = append(text, in)
	}
	if len(text) == 0 {
		return out, nil
	}
	text, err := ai.TruncateInputs(text, c.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("truncate embedding inputs: %w", err)
	}

	eg, ectx := errgroup.WithContext(ctx)
	for start := 0; start < len(text); start += c.batchSize {
		end := min(start+c.batchSize, len(text))
		eg.Go(func() error {
			vecs, err := util.RetryWithBackoff(ectx, c.retries, time.Second, func(ctx context.Context) ([][]float32, error) {
				return c.embedBatch(ctx, text[start:end])
			})
			if err != nil {
				return err
			}
			for i, v := range vecs {
				out[idx[start+i]] = v
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OllamaEmbedder) embedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.model,
		Input: inputs,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(res.Embeddings), len(inputs))
	}

	c.metricsLock.Lock()
	c.metrics.Add(ai.UsageMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		Requests:    1,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})
	c.metricsLock.Unlock()

	out := make([][]float32, len(inputs))
	for i, v := range res.Embeddings {
		dim := c.dimensions
		if dim <= 0 {
			dim = len(v)
		}
		vec := make([]float32, dim)
		copy(vec, v)
		out[i] = vec
	}
	return out, nil
}
