package scorer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// rawAssessment mirrors the JSON contract requested in the prompt.
// Score is a pointer so a missing field is distinguishable from zero.
type rawAssessment struct {
	Score         *float64 `json:"score"`
	Reasons       []string `json:"reasons"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	BonusSkills   []string `json:"bonus_skills"`
}

// parseAssessment validates the model's response. Anything that fails
// validation is reported as an error; the caller keeps the raw text and
// the pair falls back to vector-only scoring.
func parseAssessment(raw string) (*Assessment, error) {
	cleaned := extractJSON(raw)

	var parsed rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}

	if parsed.Score == nil {
		return nil, fmt.Errorf("scoring response missing score")
	}
	score := *parsed.Score
	if math.IsNaN(score) || score < 0 || score > 100 {
		return nil, fmt.Errorf("score %v out of range [0,100]", score)
	}

	reasons := trimAll(parsed.Reasons)
	if len(reasons) == 0 {
		return nil, fmt.Errorf("scoring response missing reasons")
	}

	return &Assessment{
		Score:         int(math.Round(score)),
		Reasons:       reasons,
		MatchedSkills: trimAll(parsed.MatchedSkills),
		MissingSkills: trimAll(parsed.MissingSkills),
		BonusSkills:   trimAll(parsed.BonusSkills),
	}, nil
}

// extractJSON strips markdown code fences that models wrap around JSON.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
