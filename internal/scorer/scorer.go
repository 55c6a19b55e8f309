// Package scorer provides LLM-based relevance scoring for job/candidate pairs.
//
// Scoring is a second-pass refinement applied to a small shortlist from the
// similarity retriever, never to the full population: each pair costs one
// LLM call. The orchestrator absorbs scorer failures and falls back to
// vector-only ranking, so nothing in this package is on the critical path
// of a recommendation request.
package scorer

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the LLM backend failed for the entire
// batch. The caller falls back to vector-similarity-only ranking.
var ErrUnavailable = errors.New("scorer: llm backend unavailable")

// PairDoc is the structured view of one side of a pair (job posting or
// candidate profile) serialized into the scoring prompt.
type PairDoc struct {
	Kind            string // "job" or "candidate"
	Title           string
	Summary         string // job description or candidate bio
	Skills          []string
	Requirements    []string
	Location        string
	ExperienceLevel string
	ExperienceYears int // candidates only
}

// Assessment is validated model output for one pair.
type Assessment struct {
	Score         int // 0-100 fit score
	Reasons       []string
	MatchedSkills []string
	MissingSkills []string
	BonusSkills   []string
}

// PairResult is the outcome for one pair: either a valid assessment or the
// raw malformed model output. Unvalidated model output never flows past
// this boundary as data.
type PairResult struct {
	Assessment *Assessment // nil when the response was malformed
	Raw        string
}

// Valid reports whether the model produced a well-formed assessment.
func (r PairResult) Valid() bool {
	return r.Assessment != nil
}

// Scorer scores (anchor, counterpart) pairs with an LLM.
type Scorer interface {
	// ScorePairs returns one result per counterpart, order-preserving.
	// A malformed response degrades only its own pair; ErrUnavailable is
	// returned only when every call failed at the backend level.
	ScorePairs(ctx context.Context, anchor PairDoc, counterparts []PairDoc) ([]PairResult, error)
}
