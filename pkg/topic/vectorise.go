package topic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/commscope/backend/pkg/text"

	"github.com/e-gun/nlp"
	"github.com/e-gun/sparse"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyVocabulary is returned when no term survives tokenisation and
// document-frequency pruning.
var ErrEmptyVocabulary = errors.New("empty vocabulary")

// vectoriserConfig mirrors the usual document-term matrix knobs. MinDF is
// an absolute document count; MaxDF is a proportion of documents.
type vectoriserConfig struct {
	MinN, MaxN  int
	MaxFeatures int
	MinDF       int
	MaxDF       float64
	TFIDF       bool
}

// docTerm is a fitted document-term matrix. Rows are documents, columns are
// Terms in alphabetical order. Counts holds raw counts (terms x docs) as
// produced by the vectoriser.
type docTerm struct {
	Terms   []string
	Weights [][]float64
	Counts  mat.Matrix
}

func vectorise(docs []string, cfg vectoriserConfig) (*docTerm, error) {
	cv := nlp.NewCountVectoriser()
	cv.Tokeniser = text.NewNgramTokeniser(cfg.MinN, cfg.MaxN, text.EnglishStopwords...)
	cv.Fit(docs...)
	if len(cv.Vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}

	counts, err := cv.Transform(docs...)
	if err != nil {
		return nil, fmt.Errorf("count terms: %w", err)
	}

	terms := prune(cv.Vocabulary, counts, len(docs), cfg)
	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	cv.Vocabulary = vocab
	counts, err = cv.Transform(docs...)
	if err != nil {
		return nil, fmt.Errorf("count terms: %w", err)
	}

	weights := dense(counts)
	if cfg.TFIDF {
		weights = tfidf(weights)
	}
	return &docTerm{Terms: terms, Weights: weights, Counts: counts}, nil
}

// prune applies the document-frequency bounds and the feature cap and
// returns the surviving terms alphabetically. The upper bound is skipped
// when it would leave nothing, which happens with tiny or uniform corpora.
func prune(vocab map[string]int, counts mat.Matrix, nDocs int, cfg vectoriserConfig) []string {
	nTerms, _ := counts.Dims()
	df := make([]int, nTerms)
	total := make([]float64, nTerms)
	eachNonZero(counts, func(term, _ int, v float64) {
		df[term]++
		total[term] += v
	})

	minDF := max(cfg.MinDF, 1)
	maxDF := nDocs
	if cfg.MaxDF > 0 && cfg.MaxDF < 1 {
		maxDF = int(math.Floor(cfg.MaxDF * float64(nDocs)))
	}

	keep := func(withMax bool) []string {
		var out []string
		for t, i := range vocab {
			if df[i] < minDF {
				continue
			}
			if withMax && df[i] > maxDF {
				continue
			}
			out = append(out, t)
		}
		return out
	}
	terms := keep(true)
	if len(terms) == 0 {
		terms = keep(false)
	}

	if cfg.MaxFeatures > 0 && len(terms) > cfg.MaxFeatures {
		sort.Slice(terms, func(a, b int) bool {
			ta, tb := total[vocab[terms[a]]], total[vocab[terms[b]]]
			if ta != tb {
				return ta > tb
			}
			return terms[a] < terms[b]
		})
		terms = terms[:cfg.MaxFeatures]
	}
	sort.Strings(terms)
	return terms
}

// eachNonZero visits the non-zero cells of m, using the sparse iterator
// when the vectoriser returned one.
func eachNonZero(m mat.Matrix, f func(i, j int, v float64)) {
	if nz, ok := m.(mat.NonZeroDoer); ok {
		nz.DoNonZero(f)
		return
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				f(i, j, v)
			}
		}
	}
}

// dense transposes the terms x docs count matrix into docs x terms rows.
func dense(counts mat.Matrix) [][]float64 {
	nTerms, nDocs := counts.Dims()
	out := make([][]float64, nDocs)
	for d := range out {
		out[d] = make([]float64, nTerms)
	}
	eachNonZero(counts, func(t, d int, v float64) {
		out[d][t] = v
	})
	return out
}

// tfidf applies smoothed idf, ln((1+n)/(1+df))+1, and L2-normalizes each
// document row.
func tfidf(rows [][]float64) [][]float64 {
	n := len(rows)
	if n == 0 {
		return rows
	}
	nTerms := len(rows[0])
	idf := make([]float64, nTerms)
	for t := 0; t < nTerms; t++ {
		df := 0
		for d := range rows {
			if rows[d][t] > 0 {
				df++
			}
		}
		idf[t] = math.Log(float64(1+n)/float64(1+df)) + 1
	}

	out := make([][]float64, n)
	for d, row := range rows {
		w := make([]float64, nTerms)
		var norm float64
		for t, v := range row {
			w[t] = v * idf[t]
			norm += w[t] * w[t]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for t := range w {
				w[t] /= norm
			}
		}
		out[d] = w
	}
	return out
}

// termDocCSR packs docs x terms weights into the terms x docs CSR matrix the
// LDA implementation consumes. Nonzeros are laid out in term then document
// order so that fitting sees the same sequence on every run.
func termDocCSR(rows [][]float64, nTerms int) *sparse.CSR {
	ia := make([]int, 0, nTerms+1)
	var (
		ja   []int
		data []float64
	)
	for t := 0; t < nTerms; t++ {
		ia = append(ia, len(data))
		for d, row := range rows {
			if v := row[t]; v != 0 {
				ja = append(ja, d)
				data = append(data, v)
			}
		}
	}
	ia = append(ia, len(data))
	return sparse.NewCSR(nTerms, len(rows), ia, ja, data)
}

// termDoc is the dense terms x docs view of rows.
func termDoc(rows [][]float64, nTerms int) [][]float64 {
	out := make([][]float64, nTerms)
	for t := range out {
		out[t] = make([]float64, len(rows))
		for d := range rows {
			out[t][d] = rows[d][t]
		}
	}
	return out
}
