package topic

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDiversity(t *testing.T) {
	tests := []struct {
		name   string
		topics [][]string
		want   float64
	}{
		{"empty", nil, 0},
		{"all distinct", [][]string{{"a", "b"}, {"c"}}, 1},
		{"all same", [][]string{{"a"}, {"a"}, {"a"}, {"a"}}, 0.25},
		{"half", [][]string{{"a", "b"}, {"a", "b"}}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diversity(tt.topics)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Diversity = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("diversity out of bounds: %v", got)
			}
		})
	}
}

func TestModelMetricsJSON(t *testing.T) {
	b, err := json.Marshal(ModelMetrics{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Fatalf("empty metrics = %s", b)
	}

	b, err = json.Marshal(tfidfMetrics([][]string{{"a"}, {"b"}}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"diversity":1,"coherence":"N/A","perplexity":"N/A"}`
	if string(b) != want {
		t.Fatalf("tfidf metrics = %s, want %s", b, want)
	}
}

func TestLDAMetrics(t *testing.T) {
	// Two topics that each put all their mass on one of two terms.
	phi := [][]float64{{1, 0}, {0, 1}}
	theta := [][]float64{{1, 0}, {0, 1}}
	x := [][]float64{{2, 0}, {0, 2}}

	m := ldaMetrics(phi, theta, x, 10)
	if m.Perplexity.Value != 1 {
		t.Fatalf("perfect fit perplexity = %v, want 1", m.Perplexity.Value)
	}
	if m.Coherence.Value != 1 {
		t.Fatalf("coherence = %v, want 1", m.Coherence.Value)
	}
	// Both topics list both term indices in their top-10.
	if m.Diversity.Value != 0.5 {
		t.Fatalf("diversity = %v, want 0.5", m.Diversity.Value)
	}
}

func TestPerplexityUniform(t *testing.T) {
	phi := [][]float64{{1, 1, 1, 1}}
	theta := [][]float64{{1, 1}}
	x := [][]float64{{1, 0}, {1, 0}, {0, 1}, {0, 1}}
	if got := perplexity(phi, theta, x); math.Abs(got-4) > 1e-9 {
		t.Fatalf("uniform perplexity = %v, want 4", got)
	}
}

func TestEmbeddingMetrics(t *testing.T) {
	cos := func(a, b []float32) float64 {
		var dot float64
		for i := range a {
			dot += float64(a[i] * b[i])
		}
		return dot
	}
	topics := [][]string{{"a"}, {"b"}}

	m := embeddingMetrics(topics, [][]float32{{1, 0}, {0, 1}}, cos)
	if !m.Coherence.Valid || m.Coherence.Value != 0 {
		t.Fatalf("orthogonal topics coherence = %+v", m.Coherence)
	}
	if m.Perplexity.Valid {
		t.Fatal("perplexity should be undefined")
	}

	m = embeddingMetrics(topics[:1], [][]float32{{1, 0}}, cos)
	if m.Coherence.Valid {
		t.Fatal("coherence needs two topics")
	}
}
