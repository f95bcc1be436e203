package topic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/commscope/backend/pkg/logger"

	"github.com/e-gun/nlp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const (
	ldaMinDocs       = 5
	ldaDefaultTopics = 5
	ldaTopTerms      = 10
	ldaSeed          = 42
)

var errNotFinite = errors.New("model produced non-finite values")

// AutoLDATopics is the "auto" topic count for LDA.
func AutoLDATopics(n int) int { return clamp(n/5, 2, 10) }

// LDA fits a Latent Dirichlet Allocation model. The seed is fixed, so the
// same documents always produce the same topics.
type LDA struct {
	NumTopics  Count
	Vectorizer Vectorizer
	Iterations int
	Seed       uint64
}

// NewLDA returns an LDA extractor with the standard priors and seed.
func NewLDA(count Count, vectorizer Vectorizer) *LDA {
	if vectorizer != VectorizerBOW {
		vectorizer = VectorizerTFIDF
	}
	return &LDA{NumTopics: count, Vectorizer: vectorizer, Iterations: 100, Seed: ldaSeed}
}

func (e *LDA) Method() Method { return MethodLDA }

func (e *LDA) Extract(ctx context.Context, docs []string) (res Result, err error) {
	if len(docs) < ldaMinDocs {
		return placeholder(InsufficientData, len(docs)), nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	dt, err := vectorise(docs, vectoriserConfig{
		MinN: 1, MaxN: 2,
		MaxFeatures: 1000,
		MinDF:       1,
		MaxDF:       0.9,
		TFIDF:       e.Vectorizer != VectorizerBOW,
	})
	if err != nil {
		return Result{}, &ExtractionError{Method: MethodLDA, Err: fmt.Errorf("vectorize: %w", err)}
	}

	k := e.NumTopics.Resolve(len(docs), AutoLDATopics, ldaDefaultTopics)

	// The library panics on degenerate input instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &ExtractionError{Method: MethodLDA, Err: fmt.Errorf("fit panicked: %v", r)}
		}
	}()

	model := nlp.NewLatentDirichletAllocation(k)
	model.Alpha = 0.1
	model.Eta = 0.01
	model.Iterations = e.Iterations
	model.Processes = 1
	model.Rnd = rand.New(rand.NewSource(e.Seed))

	input := termDocCSR(dt.Weights, len(dt.Terms))
	docTopic, err := model.FitTransform(input)
	if err != nil {
		return Result{}, &ExtractionError{Method: MethodLDA, Err: fmt.Errorf("fit: %w", err)}
	}

	phi := rows(model.Components())
	theta := rows(docTopic)
	if !finite(phi) || !finite(theta) {
		return Result{}, &ExtractionError{Method: MethodLDA, Err: errNotFinite}
	}

	topics := make([][]string, len(phi))
	for t, row := range phi {
		for _, i := range topIndices(row, ldaTopTerms) {
			topics[t] = append(topics[t], dt.Terms[i])
		}
	}

	docTopics := make([][]float64, len(docs))
	for d := range docTopics {
		col := make([]float64, len(theta))
		for t := range theta {
			col[t] = theta[t][d]
		}
		docTopics[d] = normalized(col)
	}

	metrics := ldaMetrics(phi, theta, termDoc(dt.Weights, len(dt.Terms)), ldaTopTerms)
	logger.Debug("lda fitted", "docs", len(docs), "terms", len(dt.Terms), "topics", k, "vectorizer", e.Vectorizer)
	return Result{Topics: topics, DocTopics: docTopics, Metrics: metrics}, nil
}

func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func finite(m [][]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
