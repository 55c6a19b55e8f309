package scorer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/jobgrid/matchd/internal/llm"
)

// stubLLM returns canned responses keyed by a substring of the prompt,
// or a single response/error for every call.
type stubLLM struct {
	mu        sync.Mutex
	response  string
	responses map[string]string // matched against prompt content
	err       error
	prompts   []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	for key, resp := range s.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return s.response, nil
}

func (s *stubLLM) ModelName() string { return "stub-model" }

func jobDoc() PairDoc {
	return PairDoc{
		Kind:            "job",
		Title:           "Backend Engineer",
		Summary:         "Build REST APIs for the hiring platform.",
		Skills:          []string{"Python", "FastAPI", "MongoDB"},
		Requirements:    []string{"3+ years backend experience"},
		Location:        "Berlin",
		ExperienceLevel: "mid",
	}
}

func candidateDoc(name string, skills ...string) PairDoc {
	return PairDoc{
		Kind:            "candidate",
		Title:           name,
		Summary:         "Software engineer.",
		Skills:          skills,
		Location:        "Berlin",
		ExperienceYears: 4,
	}
}

func TestScorePairs_Valid(t *testing.T) {
	stub := &stubLLM{response: `{"score": 85, "reasons": ["Strong overlap in backend skills"], "matched_skills": ["Python", "FastAPI"], "missing_skills": ["MongoDB"], "bonus_skills": ["Docker"]}`}
	s := NewLLMScorer(stub)

	results, err := s.ScorePairs(context.Background(), jobDoc(), []PairDoc{candidateDoc("Dev A", "Python", "FastAPI", "Docker")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if !r.Valid() {
		t.Fatalf("expected valid result, raw: %s", r.Raw)
	}
	if r.Assessment.Score != 85 {
		t.Errorf("expected score 85, got %d", r.Assessment.Score)
	}
	if len(r.Assessment.MatchedSkills) != 2 || r.Assessment.MatchedSkills[0] != "Python" {
		t.Errorf("unexpected matched skills: %v", r.Assessment.MatchedSkills)
	}
	if len(r.Assessment.MissingSkills) != 1 || r.Assessment.MissingSkills[0] != "MongoDB" {
		t.Errorf("unexpected missing skills: %v", r.Assessment.MissingSkills)
	}
}

func TestScorePairs_OrderPreserving(t *testing.T) {
	stub := &stubLLM{
		responses: map[string]string{
			"Dev A": `{"score": 90, "reasons": ["good fit"]}`,
			"Dev B": `{"score": 20, "reasons": ["poor fit"]}`,
		},
	}
	s := NewLLMScorer(stub)

	results, err := s.ScorePairs(context.Background(), jobDoc(), []PairDoc{
		candidateDoc("Dev A", "Python"),
		candidateDoc("Dev B", "Java"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Assessment.Score != 90 || results[1].Assessment.Score != 20 {
		t.Errorf("results not order-preserving: %d, %d", results[0].Assessment.Score, results[1].Assessment.Score)
	}
}

func TestScorePairs_MalformedDegradesOnePair(t *testing.T) {
	stub := &stubLLM{
		responses: map[string]string{
			"Dev A": `{"score": 75, "reasons": ["solid"]}`,
			"Dev B": `the candidate seems nice but I cannot produce JSON`,
		},
	}
	s := NewLLMScorer(stub)

	results, err := s.ScorePairs(context.Background(), jobDoc(), []PairDoc{
		candidateDoc("Dev A", "Python"),
		candidateDoc("Dev B", "Java"),
	})
	if err != nil {
		t.Fatalf("malformed response must not fail the batch: %v", err)
	}
	if !results[0].Valid() {
		t.Error("first pair should be valid")
	}
	if results[1].Valid() {
		t.Error("second pair should be malformed")
	}
	if results[1].Raw == "" {
		t.Error("malformed result should retain raw output")
	}
}

func TestScorePairs_BackendDown(t *testing.T) {
	stub := &stubLLM{err: errors.New("connection refused")}
	s := NewLLMScorer(stub)

	_, err := s.ScorePairs(context.Background(), jobDoc(), []PairDoc{
		candidateDoc("Dev A", "Python"),
		candidateDoc("Dev B", "Java"),
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestScorePairs_Empty(t *testing.T) {
	s := NewLLMScorer(&stubLLM{})
	results, err := s.ScorePairs(context.Background(), jobDoc(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
}

func TestBuildPairPrompt_Deterministic(t *testing.T) {
	anchor := jobDoc()
	counterpart := candidateDoc("Dev A", "Python", "FastAPI")

	p1 := buildPairPrompt(anchor, counterpart)
	p2 := buildPairPrompt(anchor, counterpart)
	if p1 != p2 {
		t.Fatal("prompt construction must be deterministic")
	}

	for _, want := range []string{"Backend Engineer", "Python, FastAPI, MongoDB", "Dev A", "Years of experience: 4"} {
		if !strings.Contains(p1, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("日本語", 200) // 1800 bytes, 3 bytes per rune

	for _, max := range []int{1000, 1001, 1002} {
		got := truncate(s, max)
		if !utf8.ValidString(got) {
			t.Errorf("truncate(s, %d) produced invalid UTF-8", max)
		}
		if len(got) > max+len("...") {
			t.Errorf("truncate(s, %d) returned %d bytes", max, len(got))
		}
	}

	if got := truncate("short", 1000); got != "short" {
		t.Errorf("expected short input unchanged, got %q", got)
	}
}

func TestBuildPairPrompt_LongMultibyteSummary(t *testing.T) {
	doc := jobDoc()
	doc.Summary = strings.Repeat("案件の詳細説明。", 400)

	p := buildPairPrompt(doc, candidateDoc("Dev A", "Go"))
	if !utf8.ValidString(p) {
		t.Fatal("prompt must be valid UTF-8 after truncation")
	}
}

func TestBuildPairPrompt_CandidateAnchor(t *testing.T) {
	// Anchor and counterpart swap roles in the prompt when the anchor is the candidate.
	p := buildPairPrompt(candidateDoc("Dev A", "Go"), jobDoc())
	jobIdx := strings.Index(p, "## Job Posting")
	candIdx := strings.Index(p, "## Candidate Profile")
	if jobIdx == -1 || candIdx == -1 || jobIdx > candIdx {
		t.Fatal("prompt should always present the job before the candidate")
	}
}

func TestParseAssessment(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
		score   int
	}{
		{"plain json", `{"score": 72, "reasons": ["ok"]}`, false, 72},
		{"fenced json", "```json\n{\"score\": 60, \"reasons\": [\"ok\"]}\n```", false, 60},
		{"fractional score", `{"score": 66.6, "reasons": ["ok"]}`, false, 67},
		{"missing score", `{"reasons": ["ok"]}`, true, 0},
		{"score out of range", `{"score": 140, "reasons": ["ok"]}`, true, 0},
		{"negative score", `{"score": -5, "reasons": ["ok"]}`, true, 0},
		{"missing reasons", `{"score": 50}`, true, 0},
		{"blank reasons", `{"score": 50, "reasons": ["  "]}`, true, 0},
		{"not json", `I think this candidate is great`, true, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := parseAssessment(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", a)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Score != tc.score {
				t.Errorf("expected score %d, got %d", tc.score, a.Score)
			}
		})
	}
}
