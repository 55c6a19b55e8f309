// Package retriever implements the vector similarity shortlist step of
// the recommendation pipeline.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jobgrid/matchd/internal/embedder"
	"github.com/jobgrid/matchd/internal/indexer"
	"github.com/jobgrid/matchd/internal/recommend"
	"github.com/jobgrid/matchd/internal/repository"
	"github.com/jobgrid/matchd/internal/vectorstore"
)

// Retriever shortlists counterpart entities by k-NN search over the
// vector index. The anchor's vector is read back from the index when
// present so a query does not cost an embedding call; entities not yet
// indexed are embedded on the fly.
type Retriever struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	jobs     repository.JobRepository
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// New creates a Retriever.
func New(
	emb embedder.Embedder,
	store vectorstore.VectorStore,
	jobs repository.JobRepository,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: emb,
		store:    store,
		jobs:     jobs,
		profiles: profiles,
		logger:   logger,
	}
}

// FindSimilarCandidates returns candidate profiles most similar to the
// given job posting, ordered by descending similarity.
func (r *Retriever) FindSimilarCandidates(ctx context.Context, jobID uuid.UUID, topK int) ([]recommend.Match, error) {
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, recommend.ErrAnchorNotFound
		}
		return nil, fmt.Errorf("loading job %s: %w", jobID, err)
	}

	vector, err := r.anchorVector(ctx, indexer.JobsCollection(r.embedder.ModelName()), jobID, indexer.BuildJobText(job))
	if err != nil {
		return nil, err
	}
	if vector == nil {
		return []recommend.Match{}, nil
	}

	results, err := r.store.Query(ctx,
		indexer.ProfilesCollection(r.embedder.ModelName()),
		vector, topK, nil)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}

	return r.toMatches(results, jobID), nil
}

// FindSimilarJobs returns active job postings most similar to the given
// candidate's profile, ordered by descending similarity.
func (r *Retriever) FindSimilarJobs(ctx context.Context, candidateID uuid.UUID, topK int) ([]recommend.Match, error) {
	profile, err := r.profiles.GetByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, recommend.ErrAnchorNotFound
		}
		return nil, fmt.Errorf("loading profile %s: %w", candidateID, err)
	}

	if !profile.HasSignal() {
		return []recommend.Match{}, nil
	}

	vector, err := r.anchorVector(ctx, indexer.ProfilesCollection(r.embedder.ModelName()), candidateID, indexer.BuildProfileText(profile))
	if err != nil {
		return nil, err
	}
	if vector == nil {
		return []recommend.Match{}, nil
	}

	results, err := r.store.Query(ctx,
		indexer.JobsCollection(r.embedder.ModelName()),
		vector, topK,
		&vectorstore.Filter{Equals: map[string]string{"status": repository.JobStatusActive}})
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}

	return r.toMatches(results, candidateID), nil
}

// anchorVector returns the anchor's embedding, preferring the stored
// vector over a fresh embedding call. A nil vector with nil error means
// the anchor has no extractable text.
func (r *Retriever) anchorVector(ctx context.Context, collection string, id uuid.UUID, text string) ([]float32, error) {
	point, ok, err := r.store.Get(ctx, collection, id.String())
	if err != nil {
		r.logger.Warn("index lookup failed, embedding anchor directly", "entity_id", id, "error", err)
	} else if ok && len(point.Vector) > 0 {
		return point.Vector, nil
	}

	if text == "" {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, embedder.ErrEmptyText) {
			return nil, nil
		}
		return nil, fmt.Errorf("embedding anchor %s: %w", id, err)
	}
	return vector, nil
}

func (r *Retriever) toMatches(results []vectorstore.SearchResult, anchorID uuid.UUID) []recommend.Match {
	matches := make([]recommend.Match, 0, len(results))
	for _, res := range results {
		entityID, err := uuid.Parse(res.EntityID)
		if err != nil {
			r.logger.Warn("skipping result with malformed entity ID", "entity_id", res.EntityID)
			continue
		}
		if entityID == anchorID {
			continue
		}
		matches = append(matches, recommend.Match{
			EntityID:   entityID,
			Similarity: res.Score,
		})
	}
	return matches
}

// Ensure Retriever implements the orchestrator's contract.
var _ recommend.Retriever = (*Retriever)(nil)
