// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
	"errors"
	"time"
)

// ErrDimensionMismatch is returned when a vector's length does not match the
// collection's registered dimension. This indicates the embedding model
// changed without reindexing.
var ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")

// Point represents one entity's vector entry.
type Point struct {
	EntityID string // UUID of the job listing or candidate profile
	Vector   []float32
	Metadata map[string]string
	SyncedAt time.Time
}

// SearchResult represents a k-NN search hit.
type SearchResult struct {
	EntityID string
	Score    float32 // cosine similarity
	Metadata map[string]string
	SyncedAt time.Time
}

// Filter restricts a query by payload metadata. All predicates are ANDed.
type Filter struct {
	// Equals requires field == value.
	Equals map[string]string

	// AnyOf requires field to match one of the given values.
	AnyOf map[string][]string
}

// Empty reports whether the filter has no predicates.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.Equals) == 0 && len(f.AnyOf) == 0)
}

// VectorStore defines the interface for vector storage operations.
// Collections are partitioned per entity type and embedding model, so
// vectors from different models are never compared against each other.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist and
	// registers its expected dimension for upsert validation.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert inserts or replaces points by entity ID. Idempotent.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Delete removes points by entity ID. Deleting absent IDs is a no-op.
	Delete(ctx context.Context, collection string, entityIDs []string) error

	// Get fetches a single point with its vector. The second return value
	// reports whether the point exists.
	Get(ctx context.Context, collection string, entityID string) (*Point, bool, error)

	// Query returns up to topK results ordered by descending cosine
	// similarity, ties broken by most recently synced entity. Querying an
	// empty or absent collection returns an empty slice.
	Query(ctx context.Context, collection string, vector []float32, topK int, filter *Filter) ([]SearchResult, error)
}
