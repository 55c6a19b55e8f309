package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSortResults_Ordering(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	results := []SearchResult{
		{EntityID: "b", Score: 0.8, SyncedAt: base},
		{EntityID: "a", Score: 0.9, SyncedAt: base},
		{EntityID: "c", Score: 0.8, SyncedAt: base.Add(time.Hour)},
	}

	SortResults(results)

	if results[0].EntityID != "a" {
		t.Fatalf("expected highest score first, got %s", results[0].EntityID)
	}
	// Tie on score: most recently synced wins.
	if results[1].EntityID != "c" || results[2].EntityID != "b" {
		t.Errorf("expected tie broken by synced_at desc, got %s then %s", results[1].EntityID, results[2].EntityID)
	}

	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Errorf("results not sorted by descending score at index %d", i)
		}
	}
}

func TestSortResults_FullTieIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	results := []SearchResult{
		{EntityID: "z", Score: 0.5, SyncedAt: ts},
		{EntityID: "a", Score: 0.5, SyncedAt: ts},
	}

	SortResults(results)

	if results[0].EntityID != "a" {
		t.Errorf("expected full tie broken by entity ID, got %s first", results[0].EntityID)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	// The dimension check fires before any Qdrant call, so a bare store
	// with a registered dimension is enough.
	s := &QdrantStore{dimensions: map[string]int{"jobs_test": 3}}

	err := s.Upsert(context.Background(), "jobs_test", []Point{
		{EntityID: "e1", Vector: []float32{0.1, 0.2}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	err = s.checkDimension("jobs_test", []float32{0.1, 0.2, 0.3})
	if err != nil {
		t.Errorf("expected matching dimension to pass, got %v", err)
	}

	// Unregistered collections are not checked client-side.
	if err := s.checkDimension("unknown", []float32{0.1}); err != nil {
		t.Errorf("expected unregistered collection to pass, got %v", err)
	}
}

func TestFilter_Empty(t *testing.T) {
	var nilFilter *Filter
	if !nilFilter.Empty() {
		t.Error("nil filter should be empty")
	}
	if !(&Filter{}).Empty() {
		t.Error("zero filter should be empty")
	}
	f := &Filter{Equals: map[string]string{"status": "active"}}
	if f.Empty() {
		t.Error("filter with predicates should not be empty")
	}
}

func TestBuildFilter(t *testing.T) {
	if buildFilter(nil) != nil {
		t.Error("nil filter should translate to nil qdrant filter")
	}

	f := &Filter{
		Equals: map[string]string{"status": "active"},
		AnyOf:  map[string][]string{"location": {"Berlin", "Remote"}},
	}
	qf := buildFilter(f)
	if qf == nil {
		t.Fatal("expected non-nil qdrant filter")
	}
	if len(qf.Must) != 2 {
		t.Errorf("expected 2 must conditions, got %d", len(qf.Must))
	}
}
