package topic

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Count
	}{
		{"nil", nil, AutoCount()},
		{"auto", "auto", AutoCount()},
		{"auto upper", " AUTO ", AutoCount()},
		{"empty", "", AutoCount()},
		{"int", 4, FixedCount(4)},
		{"float", float64(7), FixedCount(7)},
		{"numeric string", "12", FixedCount(12)},
		{"json number", json.Number("3"), FixedCount(3)},
		{"fraction", 2.5, Count{}},
		{"zero", 0, Count{}},
		{"negative", "-3", Count{}},
		{"garbage", "many", Count{}},
		{"bool", true, Count{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCount(tt.in); got != tt.want {
				t.Fatalf("ParseCount(%v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountResolve(t *testing.T) {
	auto := func(n int) int { return n / 2 }
	if got := AutoCount().Resolve(10, auto, 3); got != 5 {
		t.Fatalf("auto resolve = %d", got)
	}
	if got := FixedCount(8).Resolve(10, auto, 3); got != 8 {
		t.Fatalf("fixed resolve = %d", got)
	}
	if got := (Count{}).Resolve(10, auto, 3); got != 3 {
		t.Fatalf("invalid resolve = %d", got)
	}
}

func TestCountJSON(t *testing.T) {
	var req struct {
		NumTopics Count `json:"num_topics"`
	}
	if err := json.Unmarshal([]byte(`{"num_topics":"auto"}`), &req); err != nil {
		t.Fatal(err)
	}
	if !req.NumTopics.Auto {
		t.Fatalf("expected auto, got %+v", req.NumTopics)
	}
	if err := json.Unmarshal([]byte(`{"num_topics":6}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.NumTopics != FixedCount(6) {
		t.Fatalf("expected 6, got %+v", req.NumTopics)
	}

	b, _ := json.Marshal(FixedCount(6))
	if string(b) != "6" {
		t.Fatalf("marshal fixed = %s", b)
	}
	b, _ = json.Marshal(AutoCount())
	if string(b) != `"auto"` {
		t.Fatalf("marshal auto = %s", b)
	}
}

func TestExtractionErrorUnwrap(t *testing.T) {
	err := error(&ExtractionError{Method: MethodLDA, Err: ErrNoTopics})
	if !errors.Is(err, ErrNoTopics) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if err.Error() != "lda extraction failed: no topics found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAutoRules(t *testing.T) {
	tests := []struct {
		name string
		f    func(int) int
		n    int
		want int
	}{
		{"tfidf low", AutoTFIDFTopics, 10, 5},
		{"tfidf mid", AutoTFIDFTopics, 120, 12},
		{"tfidf high", AutoTFIDFTopics, 1000, 15},
		{"lda low", AutoLDATopics, 5, 2},
		{"lda mid", AutoLDATopics, 30, 6},
		{"lda high", AutoLDATopics, 500, 10},
		{"daily low", AutoDailyTopics, 6, 3},
		{"daily high", AutoDailyTopics, 100, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f(tt.n); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}
