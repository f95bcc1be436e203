// Package lsa embeds texts with latent semantic analysis: a TF-IDF matrix of
// the corpus reduced by truncated SVD. It needs no model server, which makes
// it the default embedder and the one used in tests.
package lsa

import (
	"context"
	"errors"
	"fmt"

	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/text"

	"github.com/e-gun/nlp"
	"gonum.org/v1/gonum/mat"
)

const defaultDimensions = 100

// Embedder is an ai.CorpusEmbedder. Fit learns a vector space from the
// corpus; the returned embedder projects any text into it.
type Embedder struct {
	dimensions int
}

// New returns an LSA embedder with at most dims dimensions. Fewer are used
// when the corpus is too small to support them.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &Embedder{dimensions: dims}
}

// Embed is not usable without a corpus; use Fit.
func (e *Embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, errors.New("lsa: embedder must be fitted to a corpus first")
}

// Fit builds the TF-IDF + SVD pipeline for corpus.
func (e *Embedder) Fit(ctx context.Context, corpus []string) (ai.Embedder, error) {
	if len(corpus) < 2 {
		return nil, fmt.Errorf("lsa: need at least 2 documents, got %d", len(corpus))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectoriser := nlp.NewCountVectoriser()
	vectoriser.Tokeniser = text.NewNgramTokeniser(1, 1, text.EnglishStopwords...)
	vectoriser.Fit(corpus...)
	terms := len(vectoriser.Vocabulary)
	if terms < 2 {
		return nil, fmt.Errorf("lsa: vocabulary too small (%d terms)", terms)
	}

	k := min(e.dimensions, terms, len(corpus))
	svd := nlp.NewTruncatedSVD(k)
	pipeline := nlp.NewPipeline(vectoriser, nlp.NewTfidfTransformer(), svd)
	if _, err := pipeline.FitTransform(corpus...); err != nil {
		return nil, fmt.Errorf("lsa: fit: %w", err)
	}
	return &fitted{pipeline: pipeline, dims: k}, nil
}

type fitted struct {
	pipeline *nlp.Pipeline
	dims     int
}

// Embed projects inputs into the fitted space. Unit length is applied so
// callers can compare with cosine or dot product alike.
func (f *fitted) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := f.pipeline.Transform(inputs...)
	if err != nil {
		return nil, fmt.Errorf("lsa: transform: %w", err)
	}
	return columns(m), nil
}

func columns(m mat.Matrix) [][]float32 {
	r, c := m.Dims()
	out := make([][]float32, c)
	for j := 0; j < c; j++ {
		v := make([]float32, r)
		for i := 0; i < r; i++ {
			v[i] = float32(m.At(i, j))
		}
		out[j] = ai.NormalizeUnit(v)
	}
	return out
}
