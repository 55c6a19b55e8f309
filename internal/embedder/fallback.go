package embedder

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Fallback chains a hosted primary embedder with a local secondary.
// Once the primary fails, the secondary is used for the rest of the
// process lifetime: the two models produce vectors of different
// dimensionality, and flapping between them would split entities across
// collections mid-sync. ActiveModel/Dimension always report the backend
// currently in effect, so the index stays partitioned by model identity.
type Fallback struct {
	primary   Embedder
	secondary Embedder
	logger    *slog.Logger

	degraded atomic.Bool
}

// NewFallback creates an embedder that prefers primary and degrades to secondary.
func NewFallback(primary, secondary Embedder, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Embed generates an embedding using the active backend.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	if !f.degraded.Load() {
		vec, err := f.primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if errors.Is(err, ErrEmptyText) {
			return nil, err
		}
		f.degrade(err)
	}

	vec, err := f.secondary.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, ErrEmptyText) {
			return nil, err
		}
		return nil, errors.Join(ErrUnavailable, err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts using the active backend.
func (f *Fallback) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if err := validateText(t); err != nil {
			return nil, err
		}
	}

	if !f.degraded.Load() {
		vecs, err := f.primary.EmbedBatch(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		f.degrade(err)
	}

	vecs, err := f.secondary.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return vecs, nil
}

// Dimension returns the dimensionality of the active backend.
func (f *Fallback) Dimension() int {
	if f.degraded.Load() {
		return f.secondary.Dimension()
	}
	return f.primary.Dimension()
}

// ModelName returns the model name of the active backend.
func (f *Fallback) ModelName() string {
	if f.degraded.Load() {
		return f.secondary.ModelName()
	}
	return f.primary.ModelName()
}

func (f *Fallback) degrade(err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("primary embedding backend failed, switching to local fallback",
			"primary_model", f.primary.ModelName(),
			"fallback_model", f.secondary.ModelName(),
			"error", err,
		)
	}
}

// Ensure Fallback implements Embedder interface.
var _ Embedder = (*Fallback)(nil)
