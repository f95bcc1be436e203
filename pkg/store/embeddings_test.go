package store

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	calls  int
	inputs []string
}

func (e *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.calls++
	e.inputs = append(e.inputs, inputs...)
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in))}
	}
	return out, nil
}

type brokenCache struct{}

func (brokenCache) GetEmbeddings(context.Context, string, []string) (map[string][]float32, error) {
	return nil, errors.New("down")
}

func (brokenCache) PutEmbeddings(context.Context, string, map[string][]float32) error {
	return errors.New("down")
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cache := NewMemory()
	e := NewCachedEmbedder(inner, cache, "m")

	first, err := e.Embed(ctx, []string{"aa", "bbb", "aa"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(first) != 3 || first[0][0] != 2 || first[1][0] != 3 || first[2][0] != 2 {
		t.Fatalf("unexpected vectors: %v", first)
	}
	if len(inner.inputs) != 2 {
		t.Fatalf("expected duplicate input to be embedded once, got %v", inner.inputs)
	}

	second, err := e.Embed(ctx, []string{"bbb", "cccc"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if second[0][0] != 3 || second[1][0] != 4 {
		t.Fatalf("unexpected vectors: %v", second)
	}
	if inner.calls != 2 || len(inner.inputs) != 3 {
		t.Fatalf("expected only the new text to be embedded, got calls=%d inputs=%v", inner.calls, inner.inputs)
	}

	if _, err := e.Embed(ctx, []string{"aa", "cccc"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected full cache hit, got %d calls", inner.calls)
	}
}

func TestCachedEmbedderIgnoresCacheErrors(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, brokenCache{}, "m")

	out, err := e.Embed(context.Background(), []string{"x", "yy"})
	if err != nil {
		t.Fatalf("expected cache failure to be tolerated, got %v", err)
	}
	if len(out) != 2 || out[1][0] != 2 {
		t.Fatalf("unexpected vectors: %v", out)
	}
}
