package scorer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// buildPairPrompt serializes the anchor and counterpart into the scoring
// prompt. Serialization is deterministic: fixed section order, fixed field
// order, comma-joined lists in their stored order. The same two inputs
// always produce the same prompt.
func buildPairPrompt(anchor, counterpart PairDoc) string {
	var sb strings.Builder

	sb.WriteString("You are an expert recruiting assistant that evaluates how well a candidate fits a job posting.\n\n")

	job, candidate := anchor, counterpart
	if anchor.Kind == "candidate" {
		job, candidate = counterpart, anchor
	}

	sb.WriteString("## Job Posting\n")
	writeField(&sb, "Title", job.Title)
	writeField(&sb, "Description", truncate(job.Summary, 1500))
	writeField(&sb, "Required skills", strings.Join(job.Skills, ", "))
	writeField(&sb, "Requirements", strings.Join(job.Requirements, "; "))
	writeField(&sb, "Location", job.Location)
	writeField(&sb, "Experience level", job.ExperienceLevel)

	sb.WriteString("\n## Candidate Profile\n")
	writeField(&sb, "Current title", candidate.Title)
	writeField(&sb, "Bio", truncate(candidate.Summary, 1500))
	writeField(&sb, "Skills", strings.Join(candidate.Skills, ", "))
	if candidate.ExperienceYears > 0 {
		writeField(&sb, "Years of experience", fmt.Sprintf("%d", candidate.ExperienceYears))
	}
	writeField(&sb, "Location", candidate.Location)
	writeField(&sb, "Experience level", candidate.ExperienceLevel)

	sb.WriteString(`
Score the candidate's fit for this job from 0 to 100 and explain why.
Consider matched and missing skills, experience level, growth potential, and any concerns.

Return ONLY a single valid JSON object in this exact format:
{"score": 0-100, "reasons": ["..."], "matched_skills": ["..."], "missing_skills": ["..."], "bonus_skills": ["..."]}

Base all reasoning only on the provided text. Do not assume experience not explicitly mentioned.
Do not include explanations, markdown, or text before or after the JSON.`)

	return sb.String()
}

func writeField(sb *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	sb.WriteString("- ")
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

// truncate cuts s to at most max bytes, backing up to a rune boundary so
// the result is always valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
