package topic

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

var corpus = []string{
	"The mining permit for the northern reef was approved after the cash payment",
	"Send the cash to the harbor office before the permit review",
	"Fishing quotas at the harbor are being reviewed by the council",
	"The council wants the mining permit reviewed again next week",
	"Cash payment confirmed, the harbor office will stay quiet",
	"Northern reef survey shows damage from illegal mining activity",
	"Council meeting about fishing quotas moved to Friday",
	"Harbor office asked about the reef survey results",
	"Mining equipment arrives at the northern reef tomorrow",
	"Make sure the council never sees the reef survey",
}

func checkShape(t *testing.T, res Result, docs int) {
	t.Helper()
	if len(res.DocTopics) != docs {
		t.Fatalf("got %d document vectors for %d documents", len(res.DocTopics), docs)
	}
	for i, w := range res.DocTopics {
		if len(w) != len(res.Topics) {
			t.Fatalf("document %d has %d weights for %d topics", i, len(w), len(res.Topics))
		}
		var sum float64
		for _, v := range w {
			sum += v
		}
		if sum != 0 && math.Abs(sum-1) > 1e-6 {
			t.Fatalf("document %d weights sum to %v", i, sum)
		}
	}
}

func TestTFIDFIdenticalDocuments(t *testing.T) {
	docs := make([]string, 6)
	for i := range docs {
		docs[i] = "mining permit bribery cash"
	}

	res, err := NewTFIDF(FixedCount(3)).Extract(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"bribery"}, {"cash"}, {"mining"}}
	if !reflect.DeepEqual(res.Topics, want) {
		t.Fatalf("topics = %v, want %v", res.Topics, want)
	}
	for i, w := range res.DocTopics {
		for _, v := range w {
			if math.Abs(v-1.0/3) > 1e-9 {
				t.Fatalf("document %d weights = %v", i, w)
			}
		}
	}
	if res.Metrics.Diversity.Value != 1 {
		t.Fatalf("diversity = %v", res.Metrics.Diversity)
	}
}

func TestTFIDFPlaceholders(t *testing.T) {
	res, err := NewTFIDF(AutoCount()).Extract(context.Background(), []string{"only one message here"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Topics, [][]string{InsufficientData}) {
		t.Fatalf("topics = %v", res.Topics)
	}
	checkShape(t, res, 1)

	stop := []string{"the a of", "and the of", "of a the"}
	res, err = NewTFIDF(AutoCount()).Extract(context.Background(), stop)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Topics, [][]string{ErrorProcessing}) {
		t.Fatalf("topics = %v", res.Topics)
	}
	checkShape(t, res, len(stop))
}

func TestTFIDFPlaceholderMetrics(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"insufficient", []string{"only one message here"}},
		{"no shared terms", []string{"alpha bravo", "charlie delta", "echo foxtrot", "golf hotel", "india juliet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewRunner(nil).Run(context.Background(), Options{Method: MethodTFIDF}, tt.docs)
			if err != nil {
				t.Fatal(err)
			}
			if out.Fallback != "" {
				t.Fatalf("unexpected fallback: %s", out.Fallback)
			}
			b, err := json.Marshal(out.Metrics)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != `{"diversity":1,"coherence":"N/A","perplexity":"N/A"}` {
				t.Fatalf("metrics encode as %s", b)
			}
		})
	}
}

func TestTFIDFCorpus(t *testing.T) {
	res, err := NewTFIDF(FixedCount(4)).Extract(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Topics) != 4 {
		t.Fatalf("expected 4 topics, got %v", res.Topics)
	}
	for _, kw := range res.Topics {
		if len(kw) != 1 {
			t.Fatalf("tfidf topics hold one keyword, got %v", kw)
		}
	}
	checkShape(t, res, len(corpus))
	if d := res.Metrics.Diversity.Value; d < 0 || d > 1 {
		t.Fatalf("diversity out of bounds: %v", d)
	}
}

func TestTFIDFTopicCountCappedByVocabulary(t *testing.T) {
	docs := []string{"reef survey", "reef survey", "reef survey"}
	res, err := NewTFIDF(FixedCount(10)).Extract(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	// reef, survey and "reef survey" all survive the document frequency bounds.
	if len(res.Topics) != 3 {
		t.Fatalf("topics = %v", res.Topics)
	}
	checkShape(t, res, len(docs))
}
