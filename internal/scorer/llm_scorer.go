package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobgrid/matchd/internal/llm"
)

const (
	// DefaultParallel caps concurrent scoring calls against the LLM provider.
	DefaultParallel = 3

	// DefaultCallTimeout bounds a single scoring call.
	DefaultCallTimeout = 20 * time.Second

	// scoreMaxTokens bounds the response; an assessment is a small JSON object.
	scoreMaxTokens = 1024
)

// LLMScorer scores pairs with one LLM call per pair, bounded concurrency.
type LLMScorer struct {
	llmClient llm.LLM
	parallel  int
	timeout   time.Duration
	logger    *slog.Logger
}

// LLMScorerOption is a functional option for configuring LLMScorer.
type LLMScorerOption func(*LLMScorer)

// WithParallel sets the number of concurrent scoring calls.
func WithParallel(n int) LLMScorerOption {
	return func(s *LLMScorer) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) LLMScorerOption {
	return func(s *LLMScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LLMScorerOption {
	return func(s *LLMScorer) {
		s.logger = logger
	}
}

// NewLLMScorer creates a new LLM-based relevance scorer.
func NewLLMScorer(llmClient llm.LLM, opts ...LLMScorerOption) *LLMScorer {
	s := &LLMScorer{
		llmClient: llmClient,
		parallel:  DefaultParallel,
		timeout:   DefaultCallTimeout,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ScorePairs scores each (anchor, counterpart) pair, order-preserving.
func (s *LLMScorer) ScorePairs(ctx context.Context, anchor PairDoc, counterparts []PairDoc) ([]PairResult, error) {
	if len(counterparts) == 0 {
		return []PairResult{}, nil
	}

	results := make([]PairResult, len(counterparts))
	var backendFailures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	for i, counterpart := range counterparts {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			prompt := buildPairPrompt(anchor, counterpart)

			raw, err := s.llmClient.Generate(callCtx, prompt, llm.GenerateOptions{
				Temperature: 0.0, // deterministic scoring
				MaxTokens:   scoreMaxTokens,
			})
			if err != nil {
				backendFailures.Add(1)
				s.logger.Warn("scoring call failed", "pair_index", i, "error", err)
				return nil
			}

			assessment, err := parseAssessment(raw)
			if err != nil {
				s.logger.Warn("malformed scoring response", "pair_index", i, "error", err)
				results[i] = PairResult{Raw: raw}
				return nil
			}

			results[i] = PairResult{Assessment: assessment, Raw: raw}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Distinguish a broken backend from sporadically malformed responses:
	// only a full batch of call failures counts as an outage.
	if int(backendFailures.Load()) == len(counterparts) {
		return nil, fmt.Errorf("%w: all %d scoring calls failed", ErrUnavailable, len(counterparts))
	}

	return results, nil
}

// Ensure LLMScorer implements Scorer interface.
var _ Scorer = (*LLMScorer)(nil)
