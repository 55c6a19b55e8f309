// Package indexer keeps the vector index in sync with the job portal's
// postings and candidate profiles.
package indexer

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jobgrid/matchd/internal/embedder"
	"github.com/jobgrid/matchd/internal/repository"
	"github.com/jobgrid/matchd/internal/vectorstore"
)

const (
	// DefaultConcurrency bounds parallel entity syncs during SyncAll.
	DefaultConcurrency = 4

	// lockStripes is the number of striped per-entity write locks.
	lockStripes = 64
)

// SyncReport summarizes a bulk sync run.
type SyncReport struct {
	JobsSynced     int `json:"jobs_synced"`
	ProfilesSynced int `json:"profiles_synced"`
	Failed         int `json:"failed"`
}

// Synced returns the total number of entities synced.
func (r SyncReport) Synced() int {
	return r.JobsSynced + r.ProfilesSynced
}

// Indexer embeds entities and upserts them into the vector store.
type Indexer struct {
	embedder    embedder.Embedder
	store       vectorstore.VectorStore
	jobs        repository.JobRepository
	profiles    repository.ProfileRepository
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger

	// Writes to the same entity are serialized per stripe; writes to
	// different entities proceed in parallel. No global lock is held, so
	// bulk sync never blocks concurrent recommendation queries.
	locks [lockStripes]sync.Mutex

	ensured sync.Map // collection name -> struct{}
}

// IndexerOption is a functional option for configuring Indexer.
type IndexerOption func(*Indexer)

// WithConcurrency sets the bulk sync parallelism.
func WithConcurrency(n int) IndexerOption {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithRateLimiter caps the embedding call rate during bulk sync so the
// provider is not overwhelmed.
func WithRateLimiter(l *rate.Limiter) IndexerOption {
	return func(ix *Indexer) {
		ix.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) IndexerOption {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// New creates an Indexer.
func New(
	emb embedder.Embedder,
	store vectorstore.VectorStore,
	jobs repository.JobRepository,
	profiles repository.ProfileRepository,
	opts ...IndexerOption,
) *Indexer {
	ix := &Indexer{
		embedder:    emb,
		store:       store,
		jobs:        jobs,
		profiles:    profiles,
		concurrency: DefaultConcurrency,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(ix)
	}

	return ix
}

// SyncJob embeds and upserts one job posting. Jobs that no longer exist
// or are not active are removed from the index; neither case is an error.
func (ix *Indexer) SyncJob(ctx context.Context, id uuid.UUID) error {
	unlock := ix.lockEntity(id)
	defer unlock()

	collection := JobsCollection(ix.embedder.ModelName())

	job, err := ix.jobs.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return ix.store.Delete(ctx, collection, []string{id.String()})
		}
		return fmt.Errorf("loading job %s: %w", id, err)
	}

	text := BuildJobText(job)
	if job.Status != repository.JobStatusActive || text == "" {
		return ix.store.Delete(ctx, collection, []string{id.String()})
	}

	vector, err := ix.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding job %s: %w", id, err)
	}

	if err := ix.ensureCollection(ctx, collection); err != nil {
		return err
	}

	return ix.store.Upsert(ctx, collection, []vectorstore.Point{{
		EntityID: id.String(),
		Vector:   vector,
		Metadata: JobMetadata(job),
		SyncedAt: time.Now(),
	}})
}

// SyncProfile embeds and upserts one candidate profile. Profiles without
// extractable signal (no skills and no bio) are removed from the index
// rather than stored with a meaningless vector; that is a no-op outcome,
// not an error.
func (ix *Indexer) SyncProfile(ctx context.Context, id uuid.UUID) error {
	unlock := ix.lockEntity(id)
	defer unlock()

	collection := ProfilesCollection(ix.embedder.ModelName())

	profile, err := ix.profiles.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return ix.store.Delete(ctx, collection, []string{id.String()})
		}
		return fmt.Errorf("loading profile %s: %w", id, err)
	}

	if !profile.HasSignal() {
		return ix.store.Delete(ctx, collection, []string{id.String()})
	}

	vector, err := ix.embed(ctx, BuildProfileText(profile))
	if err != nil {
		return fmt.Errorf("embedding profile %s: %w", id, err)
	}

	if err := ix.ensureCollection(ctx, collection); err != nil {
		return err
	}

	return ix.store.Upsert(ctx, collection, []vectorstore.Point{{
		EntityID: id.String(),
		Vector:   vector,
		Metadata: ProfileMetadata(profile),
		SyncedAt: time.Now(),
	}})
}

// DeleteJob removes a job from the index.
func (ix *Indexer) DeleteJob(ctx context.Context, id uuid.UUID) error {
	unlock := ix.lockEntity(id)
	defer unlock()
	return ix.store.Delete(ctx, JobsCollection(ix.embedder.ModelName()), []string{id.String()})
}

// DeleteProfile removes a candidate profile from the index.
func (ix *Indexer) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	unlock := ix.lockEntity(id)
	defer unlock()
	return ix.store.Delete(ctx, ProfilesCollection(ix.embedder.ModelName()), []string{id.String()})
}

// SyncAll reindexes every active job and every job seeker profile.
// Entities sync incrementally with bounded parallelism; individual
// failures are logged and counted but never abort the run.
func (ix *Indexer) SyncAll(ctx context.Context) (SyncReport, error) {
	start := time.Now()

	jobIDs, err := ix.jobs.ListActiveIDs(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("listing active jobs: %w", err)
	}
	profileIDs, err := ix.profiles.ListSeekerIDs(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("listing seeker profiles: %w", err)
	}

	var jobsSynced, profilesSynced, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for _, id := range jobIDs {
		g.Go(func() error {
			if err := ix.SyncJob(gctx, id); err != nil {
				failed.Add(1)
				ix.logger.Error("job sync failed", "job_id", id, "error", err)
				return nil
			}
			jobsSynced.Add(1)
			return nil
		})
	}

	for _, id := range profileIDs {
		g.Go(func() error {
			if err := ix.SyncProfile(gctx, id); err != nil {
				failed.Add(1)
				ix.logger.Error("profile sync failed", "profile_id", id, "error", err)
				return nil
			}
			profilesSynced.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{
		JobsSynced:     int(jobsSynced.Load()),
		ProfilesSynced: int(profilesSynced.Load()),
		Failed:         int(failed.Load()),
	}

	ix.logger.Info("bulk sync complete",
		"jobs_synced", report.JobsSynced,
		"profiles_synced", report.ProfilesSynced,
		"failed", report.Failed,
		"duration", time.Since(start),
	)

	return report, nil
}

func (ix *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ix.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return ix.embedder.Embed(ctx, text)
}

func (ix *Indexer) ensureCollection(ctx context.Context, collection string) error {
	if _, ok := ix.ensured.Load(collection); ok {
		return nil
	}
	if err := ix.store.EnsureCollection(ctx, collection, ix.embedder.Dimension()); err != nil {
		return fmt.Errorf("ensuring collection %s: %w", collection, err)
	}
	ix.ensured.Store(collection, struct{}{})
	return nil
}

func (ix *Indexer) lockEntity(id uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(id[:])
	lock := &ix.locks[h.Sum32()%lockStripes]
	lock.Lock()
	return lock.Unlock
}
