package embedder

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	name      string
	dimension int
	err       error
	calls     int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vec := make([]float32, s.dimension)
	vec[0] = 1
	return vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return s.dimension }
func (s *stubEmbedder) ModelName() string { return s.name }

func TestFallback_UsesPrimary(t *testing.T) {
	primary := &stubEmbedder{name: "hosted", dimension: 1536}
	secondary := &stubEmbedder{name: "local", dimension: 768}
	f := NewFallback(primary, secondary, nil)

	vec, err := f.Embed(context.Background(), "golang developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 1536 {
		t.Errorf("expected 1536-dim vector, got %d", len(vec))
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called when primary succeeds")
	}
	if f.ModelName() != "hosted" {
		t.Errorf("expected active model hosted, got %s", f.ModelName())
	}
}

func TestFallback_DegradesToSecondary(t *testing.T) {
	primary := &stubEmbedder{name: "hosted", dimension: 1536, err: errors.New("connection refused")}
	secondary := &stubEmbedder{name: "local", dimension: 768}
	f := NewFallback(primary, secondary, nil)

	vec, err := f.Embed(context.Background(), "golang developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("expected 768-dim fallback vector, got %d", len(vec))
	}

	// Degradation is sticky: the primary is not retried on the next call.
	if _, err := f.Embed(context.Background(), "another text"); err != nil {
		t.Fatalf("unexpected error after degradation: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("expected primary called once, got %d", primary.calls)
	}
	if f.ModelName() != "local" || f.Dimension() != 768 {
		t.Errorf("active identity should be the fallback model, got %s/%d", f.ModelName(), f.Dimension())
	}
}

func TestFallback_BothBackendsDown(t *testing.T) {
	primary := &stubEmbedder{name: "hosted", dimension: 1536, err: errors.New("timeout")}
	secondary := &stubEmbedder{name: "local", dimension: 768, err: errors.New("connection refused")}
	f := NewFallback(primary, secondary, nil)

	_, err := f.Embed(context.Background(), "golang developer")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFallback_EmptyText(t *testing.T) {
	primary := &stubEmbedder{name: "hosted", dimension: 1536}
	secondary := &stubEmbedder{name: "local", dimension: 768}
	f := NewFallback(primary, secondary, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := f.Embed(context.Background(), text); !errors.Is(err, ErrEmptyText) {
			t.Errorf("text %q: expected ErrEmptyText, got %v", text, err)
		}
	}
	if primary.calls != 0 || secondary.calls != 0 {
		t.Errorf("no backend should be called for empty text")
	}
}

func TestModelSlug(t *testing.T) {
	cases := map[string]string{
		"text-embedding-3-small": "text_embedding_3_small",
		"nomic-embed-text":       "nomic_embed_text",
		"BAAI/bge-m3":            "baai_bge_m3",
	}
	for in, want := range cases {
		if got := ModelSlug(in); got != want {
			t.Errorf("ModelSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
