package recommend

import "strings"

// SkillOverlap computes matched, missing, and bonus skills between a job's
// required skills and a candidate's skills. Comparison is case-insensitive;
// the returned slices preserve the original casing and order of their
// source lists. Always computed deterministically, so matched/missing
// skills remain available even when the LLM scorer is down.
func SkillOverlap(jobSkills, candidateSkills []string) (matched, missing, bonus []string) {
	candidateSet := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		if key := normalizeSkill(s); key != "" {
			candidateSet[key] = struct{}{}
		}
	}

	jobSet := make(map[string]struct{}, len(jobSkills))
	for _, s := range jobSkills {
		key := normalizeSkill(s)
		if key == "" {
			continue
		}
		jobSet[key] = struct{}{}
		if _, ok := candidateSet[key]; ok {
			matched = append(matched, strings.TrimSpace(s))
		} else {
			missing = append(missing, strings.TrimSpace(s))
		}
	}

	for _, s := range candidateSkills {
		key := normalizeSkill(s)
		if key == "" {
			continue
		}
		if _, ok := jobSet[key]; !ok {
			bonus = append(bonus, strings.TrimSpace(s))
		}
	}

	return matched, missing, bonus
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
