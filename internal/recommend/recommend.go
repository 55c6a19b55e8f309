// Package recommend implements the recommendation orchestrator: it
// coordinates similarity retrieval, LLM relevance scoring, and score
// blending into one ranked, explained result list.
package recommend

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrAnchorNotFound is returned when the requested job or candidate
	// does not exist or was deleted. Surfaced as a client-side not-found.
	ErrAnchorNotFound = errors.New("recommend: anchor entity not found")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("recommend: invalid input")
)

// Match is one recommendation candidate, built per request and discarded
// after the response is returned.
type Match struct {
	EntityID uuid.UUID `json:"entity_id"`

	// Similarity is the cosine similarity from vector retrieval, 0-1.
	Similarity float32 `json:"similarity"`

	// LLMScore is the 0-100 relevance score, present only for pairs that
	// went through the scorer and produced a valid assessment.
	LLMScore *int `json:"llm_score,omitempty"`

	// FinalScore is the blended ranking score, 0-1.
	FinalScore float64 `json:"final_score"`

	Reasons       []string `json:"reasons"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	BonusSkills   []string `json:"bonus_skills"`
}

// Response is a ranked recommendation list.
type Response struct {
	Matches []Match `json:"matches"`

	// AIEnhanced reports whether scores are blended with LLM relevance
	// ("ai-enhanced") or vector-similarity-only (scorer unavailable).
	// Degraded results are not an error state; the UI uses this flag to
	// set expectations.
	AIEnhanced bool `json:"ai_enhanced"`
}

// JobRequest asks for candidates matching a job posting.
type JobRequest struct {
	JobID          uuid.UUID
	Limit          int
	MinScore       float32
	IncludeApplied bool
}

// CandidateRequest asks for job postings matching a candidate.
type CandidateRequest struct {
	CandidateID uuid.UUID
	Limit       int
	MinScore    float32
}

// Retriever shortlists counterpart entities by vector similarity.
// Implemented by the retriever package.
type Retriever interface {
	// FindSimilarCandidates returns matches with Similarity populated,
	// ordered by descending similarity. A job with no extractable text
	// yields an empty list.
	FindSimilarCandidates(ctx context.Context, jobID uuid.UUID, topK int) ([]Match, error)

	// FindSimilarJobs is the symmetric operation for a candidate anchor.
	// Only active job postings are returned.
	FindSimilarJobs(ctx context.Context, candidateID uuid.UUID, topK int) ([]Match, error)
}
