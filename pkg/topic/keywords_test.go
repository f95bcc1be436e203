package topic

import "testing"

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords(corpus, 5, 2)
	if len(kws) != 5 {
		t.Fatalf("expected 5 keywords, got %v", kws)
	}
	for i, kw := range kws {
		if kw.ID != "kw_"+string(rune('0'+i)) {
			t.Fatalf("keyword %d has id %q", i, kw.ID)
		}
		if i > 0 && kw.Score > kws[i-1].Score {
			t.Fatalf("keywords not ordered by score: %v", kws)
		}
	}
}

func TestExtractKeywordsEmpty(t *testing.T) {
	if kws := ExtractKeywords(nil, 10, 2); kws != nil {
		t.Fatalf("expected nil, got %v", kws)
	}
	if kws := ExtractKeywords([]string{"the of", "and a"}, 10, 2); kws != nil {
		t.Fatalf("stopword-only input should yield nothing, got %v", kws)
	}
}
