package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jobgrid/matchd/internal/cache"
	"github.com/jobgrid/matchd/internal/repository"
	"github.com/jobgrid/matchd/internal/scorer"
)

const (
	// DefaultScoreSliceSize is how many top retrieval hits go through the
	// LLM scorer. Small on purpose: scoring is the most expensive step.
	DefaultScoreSliceSize = 5

	// OverfetchMultiplier widens retrieval beyond the requested count so
	// the scorer and post-filters have room to drop entries.
	OverfetchMultiplier = 3

	// DefaultLimit is the result count when the caller does not specify one.
	DefaultLimit = 10
)

// Service orchestrates retrieval, scoring, blending, and filtering.
// All collaborators are constructor-supplied; there are no global clients.
type Service struct {
	retriever    Retriever
	relevance    scorer.Scorer // optional; nil disables LLM re-ranking
	jobs         repository.JobRepository
	profiles     repository.ProfileRepository
	applications repository.ApplicationRepository
	cache        cache.Cache // optional
	cacheTTL     time.Duration
	weights      Weights
	sliceSize    int
	defaultLimit int
	logger       *slog.Logger
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithScorer enables LLM re-ranking of the top retrieval slice.
func WithScorer(s scorer.Scorer) Option {
	return func(svc *Service) { svc.relevance = s }
}

// WithCache enables response caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(svc *Service) {
		svc.cache = c
		svc.cacheTTL = ttl
	}
}

// WithWeights overrides the blending policy.
func WithWeights(w Weights) Option {
	return func(svc *Service) { svc.weights = w }
}

// WithScoreSliceSize overrides how many top hits are LLM-scored.
func WithScoreSliceSize(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.sliceSize = n
		}
	}
}

// WithDefaultLimit overrides the default result count.
func WithDefaultLimit(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.defaultLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) { svc.logger = logger }
}

// NewService creates the recommendation orchestrator.
func NewService(
	retriever Retriever,
	jobs repository.JobRepository,
	profiles repository.ProfileRepository,
	applications repository.ApplicationRepository,
	opts ...Option,
) *Service {
	svc := &Service{
		retriever:    retriever,
		jobs:         jobs,
		profiles:     profiles,
		applications: applications,
		weights:      DefaultWeights(),
		sliceSize:    DefaultScoreSliceSize,
		defaultLimit: DefaultLimit,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// RecommendForJob returns candidates ranked for a job posting.
func (s *Service) RecommendForJob(ctx context.Context, req JobRequest) (*Response, error) {
	if req.JobID == uuid.Nil {
		return nil, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	// Anchor existence is checked before the cache; a deleted job is a
	// not-found even while a cached entry is still live.
	job, err := s.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: job %s", ErrAnchorNotFound, req.JobID)
		}
		return nil, fmt.Errorf("loading anchor job: %w", err)
	}

	cacheKey := fmt.Sprintf("rec:job:%s:l=%d:ms=%.3f:ia=%t", req.JobID, limit, req.MinScore, req.IncludeApplied)
	if resp, ok := s.cachedResponse(ctx, cacheKey); ok {
		return resp, nil
	}

	// Retrieve a wider shortlist than requested so scoring and filters
	// have room to drop entries.
	retrieved, err := s.retriever.FindSimilarCandidates(ctx, req.JobID, limit*OverfetchMultiplier)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(retrieved))
	counterparts := make([]scorer.PairDoc, 0, len(retrieved))
	for _, m := range retrieved {
		profile, err := s.profiles.GetByID(ctx, m.EntityID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Deleted since indexing; drop rather than recommend a ghost.
				continue
			}
			s.logger.Warn("failed to load candidate profile", "candidate_id", m.EntityID, "error", err)
			continue
		}

		m.MatchedSkills, m.MissingSkills, m.BonusSkills = SkillOverlap(job.Skills, profile.Skills)
		m.Reasons = []string{overlapReason(len(m.MatchedSkills), len(job.Skills))}
		matches = append(matches, m)
		counterparts = append(counterparts, profileDoc(profile))
	}

	aiEnhanced := s.rescoreTopSlice(ctx, jobDoc(job), matches, counterparts)
	s.blendAll(matches)

	filtered := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.FinalScore < float64(req.MinScore) {
			continue
		}
		if !req.IncludeApplied {
			applied, err := s.applications.HasApplied(ctx, m.EntityID, req.JobID)
			if err != nil {
				s.logger.Warn("application check failed, keeping candidate", "candidate_id", m.EntityID, "error", err)
			} else if applied {
				continue
			}
		}
		filtered = append(filtered, m)
	}

	resp := s.finalize(filtered, limit, aiEnhanced)
	s.storeResponse(ctx, cacheKey, resp)
	return resp, nil
}

// RecommendForCandidate returns active job postings ranked for a candidate.
func (s *Service) RecommendForCandidate(ctx context.Context, req CandidateRequest) (*Response, error) {
	if req.CandidateID == uuid.Nil {
		return nil, fmt.Errorf("%w: candidate id is required", ErrInvalidInput)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	profile, err := s.profiles.GetByID(ctx, req.CandidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: candidate %s", ErrAnchorNotFound, req.CandidateID)
		}
		return nil, fmt.Errorf("loading anchor profile: %w", err)
	}

	cacheKey := fmt.Sprintf("rec:candidate:%s:l=%d:ms=%.3f", req.CandidateID, limit, req.MinScore)
	if resp, ok := s.cachedResponse(ctx, cacheKey); ok {
		return resp, nil
	}

	retrieved, err := s.retriever.FindSimilarJobs(ctx, req.CandidateID, limit*OverfetchMultiplier)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(retrieved))
	counterparts := make([]scorer.PairDoc, 0, len(retrieved))
	for _, m := range retrieved {
		job, err := s.jobs.GetByID(ctx, m.EntityID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			s.logger.Warn("failed to load job", "job_id", m.EntityID, "error", err)
			continue
		}
		if job.Status != repository.JobStatusActive {
			// Transitioned out of active since indexing.
			continue
		}

		m.MatchedSkills, m.MissingSkills, m.BonusSkills = SkillOverlap(job.Skills, profile.Skills)
		m.Reasons = []string{overlapReason(len(m.MatchedSkills), len(job.Skills))}
		matches = append(matches, m)
		counterparts = append(counterparts, jobDoc(job))
	}

	aiEnhanced := s.rescoreTopSlice(ctx, profileDoc(profile), matches, counterparts)
	s.blendAll(matches)

	filtered := matches[:0]
	for _, m := range matches {
		if m.FinalScore >= float64(req.MinScore) {
			filtered = append(filtered, m)
		}
	}

	resp := s.finalize(filtered, limit, aiEnhanced)
	s.storeResponse(ctx, cacheKey, resp)
	return resp, nil
}

// rescoreTopSlice runs the LLM scorer over the top slice of matches and
// applies valid assessments in place. Returns whether results are
// AI-enhanced. A scorer outage degrades to vector-only ranking; it is
// logged, never propagated.
func (s *Service) rescoreTopSlice(ctx context.Context, anchor scorer.PairDoc, matches []Match, counterparts []scorer.PairDoc) bool {
	if s.relevance == nil || len(matches) == 0 {
		return false
	}

	slice := s.sliceSize
	if slice > len(matches) {
		slice = len(matches)
	}

	results, err := s.relevance.ScorePairs(ctx, anchor, counterparts[:slice])
	if err != nil {
		s.logger.Warn("relevance scorer unavailable, falling back to similarity-only ranking", "error", err)
		return false
	}

	enhanced := false
	for i, r := range results {
		if !r.Valid() {
			continue
		}
		enhanced = true
		a := r.Assessment
		score := a.Score
		matches[i].LLMScore = &score
		matches[i].Reasons = a.Reasons
		if len(a.MatchedSkills) > 0 || len(a.MissingSkills) > 0 {
			matches[i].MatchedSkills = a.MatchedSkills
			matches[i].MissingSkills = a.MissingSkills
		}
		if len(a.BonusSkills) > 0 {
			matches[i].BonusSkills = a.BonusSkills
		}
	}
	return enhanced
}

func (s *Service) blendAll(matches []Match) {
	for i := range matches {
		matches[i].FinalScore = Blend(matches[i].Similarity, matches[i].LLMScore, s.weights)
	}
}

// finalize re-sorts by final score and truncates to the requested count.
// The sort is stable, so ties keep their retrieval (similarity) order.
func (s *Service) finalize(matches []Match, limit int, aiEnhanced bool) *Response {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].FinalScore > matches[j].FinalScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []Match{}
	}
	return &Response{Matches: matches, AIEnhanced: aiEnhanced}
}

func (s *Service) cachedResponse(ctx context.Context, key string) (*Response, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (s *Service) storeResponse(ctx context.Context, key string, resp *Response) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func overlapReason(matched, required int) string {
	if required == 0 {
		return "Strong profile similarity"
	}
	return fmt.Sprintf("Matches %d of %d required skills", matched, required)
}

func jobDoc(job *repository.Job) scorer.PairDoc {
	return scorer.PairDoc{
		Kind:            "job",
		Title:           job.Title,
		Summary:         job.Description,
		Skills:          job.Skills,
		Requirements:    job.Requirements,
		Location:        job.Location,
		ExperienceLevel: job.ExperienceLevel,
	}
}

func profileDoc(p *repository.Profile) scorer.PairDoc {
	return scorer.PairDoc{
		Kind:            "candidate",
		Title:           p.JobTitle,
		Summary:         p.Bio,
		Skills:          p.Skills,
		Location:        p.Location,
		ExperienceLevel: p.ExperienceLevel,
		ExperienceYears: p.ExperienceYears,
	}
}
