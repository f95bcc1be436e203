package topic

import (
	"context"
	"errors"
	"strings"

	"github.com/commscope/backend/pkg/ai"
	"github.com/commscope/backend/pkg/logger"
)

// Options select and configure an extractor.
type Options struct {
	Method       Method
	Vectorizer   Vectorizer
	NumTopics    Count
	MinTopicSize int
	// TFIDFAuto and TFIDFDefault override the TF-IDF topic count rules.
	TFIDFAuto    func(n int) int
	TFIDFDefault int
}

// ParseMethod reads a method name. The "lda?vectorizer=bow" form selects
// LDA together with its vectorizer. Unknown names select BERTopic.
func ParseMethod(s string) (Method, Vectorizer) {
	s = strings.ToLower(strings.TrimSpace(s))
	vec := VectorizerTFIDF
	if strings.HasPrefix(s, string(MethodLDA)) {
		if _, query, ok := strings.Cut(s, "?"); ok {
			if _, v, ok := strings.Cut(query, "="); ok && Vectorizer(v) == VectorizerBOW {
				vec = VectorizerBOW
			}
		}
		return MethodLDA, vec
	}
	if s == string(MethodTFIDF) {
		return MethodTFIDF, vec
	}
	return MethodBERTopic, vec
}

// Outcome is the result of Run. Method is the requested method even when
// Fallback reports that TF-IDF topics were substituted.
type Outcome struct {
	Result
	Method     Method
	Vectorizer Vectorizer
	Fallback   string
}

// Modeler runs topic modeling over a document collection. Runner is the
// implementation.
type Modeler interface {
	Run(ctx context.Context, opts Options, docs []string) (Outcome, error)
}

// Runner runs extractors and applies the TF-IDF fallback.
type Runner struct {
	Embedder ai.Embedder
}

// NewRunner returns a runner whose BERTopic extractor uses embedder.
func NewRunner(embedder ai.Embedder) *Runner {
	return &Runner{Embedder: embedder}
}

// Extractor builds the extractor described by opts.
func (r *Runner) Extractor(opts Options) Extractor {
	switch opts.Method {
	case MethodTFIDF:
		e := NewTFIDF(opts.NumTopics)
		if opts.TFIDFAuto != nil {
			e.Auto = opts.TFIDFAuto
		}
		if opts.TFIDFDefault > 0 {
			e.Default = opts.TFIDFDefault
		}
		return e
	case MethodLDA:
		return NewLDA(opts.NumTopics, opts.Vectorizer)
	default:
		return NewBERTopic(r.Embedder, opts.MinTopicSize)
	}
}

// Run extracts topics from docs. When the chosen extractor fails with an
// ExtractionError, TF-IDF topics with 15 terms are returned instead and the
// metrics are left empty, as no model was fitted. Other errors, such as a
// cancelled context, are returned.
func (r *Runner) Run(ctx context.Context, opts Options, docs []string) (Outcome, error) {
	ex := r.Extractor(opts)
	out := Outcome{Method: ex.Method(), Vectorizer: opts.Vectorizer}
	if out.Method != MethodLDA {
		out.Vectorizer = ""
	} else if out.Vectorizer == "" {
		out.Vectorizer = VectorizerTFIDF
	}

	res, err := ex.Extract(ctx, docs)
	if err == nil {
		out.Result = res
		return out, nil
	}

	var xe *ExtractionError
	if !errors.As(err, &xe) {
		return Outcome{}, err
	}
	logger.Warn("topic extraction failed, falling back to tfidf", "method", xe.Method, "err", xe.Err)

	res, err = NewTFIDF(FixedCount(tfidfFallbackTopics)).Extract(ctx, docs)
	if err != nil {
		return Outcome{}, err
	}
	res.Metrics = ModelMetrics{}
	out.Result = res
	out.Fallback = xe.Error()
	return out, nil
}
