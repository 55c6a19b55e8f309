package indexer

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jobgrid/matchd/internal/repository"
	"github.com/jobgrid/matchd/internal/vectorstore"
)

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 3 }
func (f *fakeEmbedder) ModelName() string { return "test-model" }

type fakeStore struct {
	mu      sync.Mutex
	points  map[string]map[string]vectorstore.Point // collection -> entity ID -> point
	ensured []string
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]map[string]vectorstore.Point)}
}

func (f *fakeStore) EnsureCollection(_ context.Context, name string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, name)
	if f.points[name] == nil {
		f.points[name] = make(map[string]vectorstore.Point)
	}
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, collection string, points []vectorstore.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.points[collection] == nil {
		f.points[collection] = make(map[string]vectorstore.Point)
	}
	for _, p := range points {
		f.points[collection][p.EntityID] = p
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, collection string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, id := range ids {
		delete(f.points[collection], id)
	}
	return nil
}

func (f *fakeStore) Get(_ context.Context, collection, id string) (*vectorstore.Point, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.points[collection][id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (f *fakeStore) Query(_ context.Context, _ string, _ []float32, _ int, _ *vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (f *fakeStore) has(collection, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.points[collection][id]
	return ok
}

type fakeJobs struct {
	jobs map[uuid.UUID]*repository.Job
}

func (f *fakeJobs) GetByID(_ context.Context, id uuid.UUID) (*repository.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobs) ListActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, j := range f.jobs {
		if j.Status == repository.JobStatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeProfiles struct {
	profiles map[uuid.UUID]*repository.Profile
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (*repository.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) ListSeekerIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.profiles {
		ids = append(ids, id)
	}
	return ids, nil
}

func activeJob(id uuid.UUID) *repository.Job {
	return &repository.Job{
		ID:          id,
		Title:       "Backend Engineer",
		Description: "Build APIs",
		Skills:      []string{"Go", "PostgreSQL"},
		Status:      repository.JobStatusActive,
	}
}

func TestSyncJob_UpsertsActiveJob(t *testing.T) {
	id := uuid.New()
	store := newFakeStore()
	ix := New(&fakeEmbedder{}, store, &fakeJobs{jobs: map[uuid.UUID]*repository.Job{id: activeJob(id)}}, &fakeProfiles{})

	if err := ix.SyncJob(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collection := JobsCollection("test-model")
	if !store.has(collection, id.String()) {
		t.Fatalf("expected job %s in collection %s", id, collection)
	}

	point := store.points[collection][id.String()]
	if point.Metadata["status"] != repository.JobStatusActive {
		t.Errorf("expected status metadata, got %v", point.Metadata)
	}
	if point.SyncedAt.IsZero() {
		t.Error("expected synced_at to be set")
	}
}

func TestSyncJob_ClosedJobRemovedFromIndex(t *testing.T) {
	id := uuid.New()
	job := activeJob(id)
	store := newFakeStore()
	jobs := &fakeJobs{jobs: map[uuid.UUID]*repository.Job{id: job}}
	ix := New(&fakeEmbedder{}, store, jobs, &fakeProfiles{})

	ctx := context.Background()
	if err := ix.SyncJob(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job.Status = repository.JobStatusClosed
	if err := ix.SyncJob(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.has(JobsCollection("test-model"), id.String()) {
		t.Error("expected closed job to be removed from the index")
	}
}

func TestSyncJob_MissingJobIsNotAnError(t *testing.T) {
	store := newFakeStore()
	ix := New(&fakeEmbedder{}, store, &fakeJobs{jobs: map[uuid.UUID]*repository.Job{}}, &fakeProfiles{})

	if err := ix.SyncJob(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected missing job to be a delete no-op, got %v", err)
	}
}

func TestSyncProfile_EmptyProfileSkipped(t *testing.T) {
	id := uuid.New()
	emb := &fakeEmbedder{}
	store := newFakeStore()
	profiles := &fakeProfiles{profiles: map[uuid.UUID]*repository.Profile{
		id: {ID: id, Location: "Berlin"},
	}}
	ix := New(emb, store, &fakeJobs{}, profiles)

	if err := ix.SyncProfile(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("expected no embedding calls for empty profile, got %d", emb.calls)
	}
	if store.has(ProfilesCollection("test-model"), id.String()) {
		t.Error("expected empty profile to stay out of the index")
	}
}

func TestSyncAll_CountsBothKinds(t *testing.T) {
	jobID := uuid.New()
	profileID := uuid.New()
	store := newFakeStore()
	ix := New(&fakeEmbedder{}, store,
		&fakeJobs{jobs: map[uuid.UUID]*repository.Job{jobID: activeJob(jobID)}},
		&fakeProfiles{profiles: map[uuid.UUID]*repository.Profile{
			profileID: {ID: profileID, Skills: []string{"Go"}, Bio: "Engineer"},
		}},
	)

	report, err := ix.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.JobsSynced != 1 || report.ProfilesSynced != 1 || report.Failed != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Synced() != 2 {
		t.Errorf("expected 2 synced, got %d", report.Synced())
	}
}

func TestSyncAll_TwiceIsIdempotent(t *testing.T) {
	jobID := uuid.New()
	profileID := uuid.New()
	store := newFakeStore()
	ix := New(&fakeEmbedder{}, store,
		&fakeJobs{jobs: map[uuid.UUID]*repository.Job{jobID: activeJob(jobID)}},
		&fakeProfiles{profiles: map[uuid.UUID]*repository.Profile{
			profileID: {ID: profileID, Skills: []string{"Go"}, Bio: "Engineer"},
		}},
	)

	ctx := context.Background()
	if _, err := ix.SyncAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := snapshotPoints(store)

	if _, err := ix.SyncAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := snapshotPoints(store)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second sync changed the stored points:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

// snapshotPoints captures the indexed state that drives query results
// per collection: entity IDs, vectors, and metadata. SyncedAt is
// excluded since it advances on every sync.
func snapshotPoints(store *fakeStore) map[string]map[string]vectorstore.Point {
	store.mu.Lock()
	defer store.mu.Unlock()

	out := make(map[string]map[string]vectorstore.Point, len(store.points))
	for collection, points := range store.points {
		out[collection] = make(map[string]vectorstore.Point, len(points))
		for id, p := range points {
			p.SyncedAt = time.Time{}
			out[collection][id] = p
		}
	}
	return out
}

func TestBuildJobText_Deterministic(t *testing.T) {
	job := activeJob(uuid.New())

	first := BuildJobText(job)
	second := BuildJobText(job)
	if first != second {
		t.Fatal("expected identical text for identical job")
	}
	for _, want := range []string{"Backend Engineer", "Build APIs", "Go, PostgreSQL"} {
		if !strings.Contains(first, want) {
			t.Errorf("expected text to contain %q, got %q", want, first)
		}
	}
}

func TestBuildProfileText_SkipsBlankFields(t *testing.T) {
	text := BuildProfileText(&repository.Profile{
		JobTitle:        "Data Engineer",
		Skills:          []string{"Python", "Spark"},
		ExperienceYears: 4,
	})

	if strings.Contains(text, "\n\n") {
		t.Errorf("expected blank fields to be skipped, got %q", text)
	}
	for _, want := range []string{"Data Engineer", "Python, Spark", "4 years of experience"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
}

func TestCollectionNames_PartitionedByModel(t *testing.T) {
	if JobsCollection("text-embedding-3-small") != "jobs_text_embedding_3_small" {
		t.Errorf("unexpected jobs collection: %s", JobsCollection("text-embedding-3-small"))
	}
	if ProfilesCollection("nomic-embed-text") != "profiles_nomic_embed_text" {
		t.Errorf("unexpected profiles collection: %s", ProfilesCollection("nomic-embed-text"))
	}
	if JobsCollection("a") == JobsCollection("b") {
		t.Error("expected different models to map to different collections")
	}
}
