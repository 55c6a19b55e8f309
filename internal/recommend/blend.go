package recommend

// Blend weighting between vector similarity and LLM relevance. The split
// is a fixed design decision, tunable through configuration, not learned
// at runtime.
const (
	DefaultVectorWeight = 0.7
	DefaultLLMWeight    = 0.3
)

// Weights holds the blending policy.
type Weights struct {
	Vector float64
	LLM    float64
}

// DefaultWeights returns the standard 70/30 split.
func DefaultWeights() Weights {
	return Weights{Vector: DefaultVectorWeight, LLM: DefaultLLMWeight}
}

// Blend combines a 0-1 vector similarity with an optional 0-100 LLM
// relevance score into a final 0-1 ranking score. When the LLM score is
// absent (scorer skipped or failed for this pair), the vector score passes
// through unchanged. Pure function, monotonic in both inputs.
func Blend(vectorScore float32, llmScore *int, w Weights) float64 {
	v := clamp01(float64(vectorScore))
	if llmScore == nil {
		return v
	}
	l := clamp01(float64(*llmScore) / 100)
	return w.Vector*v + w.LLM*l
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
