// Package topic discovers topics in short messages. Three extractors share
// the Extractor interface: single-term TF-IDF topics, LDA and an
// embedding-clustering extractor modelled on BERTopic. Run picks one,
// falls back to TF-IDF when it fails, and Assemble joins the result back
// onto the communications it was computed from.
package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Method names an extraction strategy.
type Method string

const (
	MethodTFIDF    Method = "tfidf"
	MethodLDA      Method = "lda"
	MethodBERTopic Method = "bertopic"
)

// Vectorizer selects the document-term weighting fed into LDA.
type Vectorizer string

const (
	VectorizerBOW   Vectorizer = "bow"
	VectorizerTFIDF Vectorizer = "tfidf"
)

// ErrNoTopics is returned by extractors that found nothing to report.
var ErrNoTopics = errors.New("no topics found")

// ExtractionError reports that an extractor could not produce topics. The
// caller decides whether to fall back to another method.
type ExtractionError struct {
	Method Method
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Method, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one extraction. DocTopics[i] is aligned with
// Topics for every document i and with the input documents by position.
type Result struct {
	Topics    [][]string
	DocTopics [][]float64
	Metrics   ModelMetrics
}

// Extractor maps a document collection to topics and per-document weights.
type Extractor interface {
	Method() Method
	Extract(ctx context.Context, docs []string) (Result, error)
}

// Placeholder topics returned when there is nothing to model.
var (
	InsufficientData = []string{"insufficient", "data"}
	ErrorProcessing  = []string{"error", "processing"}
)

func placeholder(keywords []string, n int) Result {
	doc := make([][]float64, n)
	for i := range doc {
		doc[i] = []float64{1.0}
	}
	return Result{Topics: [][]string{keywords}, DocTopics: doc}
}

// Count is a requested topic count: either "auto" or a positive number.
// The zero value means the request could not be parsed and the method
// default applies.
type Count struct {
	Auto bool
	N    int
}

// AutoCount is the "auto" topic count.
func AutoCount() Count { return Count{Auto: true} }

// FixedCount requests exactly n topics.
func FixedCount(n int) Count { return Count{N: n} }

// ParseCount reads a topic count from a request value. nil, "" and "auto"
// mean auto; numbers and numeric strings are taken as is. Anything else
// yields the zero Count.
func ParseCount(v any) Count {
	switch t := v.(type) {
	case nil:
		return AutoCount()
	case Count:
		return t
	case int:
		return positive(t)
	case int64:
		return positive(int(t))
	case float64:
		if t != float64(int(t)) {
			return Count{}
		}
		return positive(int(t))
	case json.Number:
		n, err := strconv.Atoi(t.String())
		if err != nil {
			return Count{}
		}
		return positive(n)
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		if s == "" || s == "auto" {
			return AutoCount()
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Count{}
		}
		return positive(n)
	default:
		return Count{}
	}
}

func positive(n int) Count {
	if n <= 0 {
		return Count{}
	}
	return Count{N: n}
}

// Resolve turns the count into a number for a collection of n documents.
func (c Count) Resolve(n int, auto func(int) int, def int) int {
	switch {
	case c.Auto:
		return auto(n)
	case c.N > 0:
		return c.N
	default:
		return def
	}
}

func (c Count) String() string {
	if c.Auto {
		return "auto"
	}
	if c.N > 0 {
		return strconv.Itoa(c.N)
	}
	return "invalid"
}

func (c Count) MarshalJSON() ([]byte, error) {
	if c.N > 0 && !c.Auto {
		return []byte(strconv.Itoa(c.N)), nil
	}
	return []byte(`"auto"`), nil
}

func (c *Count) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*c = ParseCount(v)
	return nil
}

// JSONSchema describes Count as "auto" or a positive integer.
func (Count) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: `number of topics, or "auto"`,
		OneOf: []*jsonschema.Schema{
			{Type: "string", Enum: []any{"auto"}},
			{Type: "integer", Minimum: json.Number("1")},
		},
		Default: "auto",
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
