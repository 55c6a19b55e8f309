package indexer

import (
	"fmt"
	"strings"

	"github.com/jobgrid/matchd/internal/embedder"
	"github.com/jobgrid/matchd/internal/repository"
)

// JobsCollection returns the vector collection for job postings embedded
// with the given model. Collections are partitioned per model so vectors
// from different embedding models are never compared.
func JobsCollection(model string) string {
	return "jobs_" + embedder.ModelSlug(model)
}

// ProfilesCollection returns the vector collection for candidate profiles
// embedded with the given model.
func ProfilesCollection(model string) string {
	return "profiles_" + embedder.ModelSlug(model)
}

// BuildJobText concatenates the searchable fields of a job posting into
// the text its embedding is derived from. Field order is fixed so the
// same posting always embeds the same text.
func BuildJobText(job *repository.Job) string {
	var parts []string
	appendPart(&parts, job.Title)
	appendPart(&parts, job.Description)
	appendPart(&parts, strings.Join(job.Skills, ", "))
	appendPart(&parts, strings.Join(job.Requirements, ". "))
	return strings.Join(parts, "\n")
}

// BuildProfileText concatenates the searchable fields of a candidate
// profile into the text its embedding is derived from.
func BuildProfileText(p *repository.Profile) string {
	var parts []string
	appendPart(&parts, p.JobTitle)
	appendPart(&parts, strings.Join(p.Skills, ", "))
	appendPart(&parts, p.Bio)
	if p.ExperienceYears > 0 {
		appendPart(&parts, fmt.Sprintf("%d years of experience", p.ExperienceYears))
	}
	appendPart(&parts, p.Education)
	return strings.Join(parts, "\n")
}

// JobMetadata returns the filterable payload stored with a job vector.
func JobMetadata(job *repository.Job) map[string]string {
	return map[string]string{
		"status":           job.Status,
		"location":         job.Location,
		"job_type":         job.JobType,
		"experience_level": job.ExperienceLevel,
	}
}

// ProfileMetadata returns the filterable payload stored with a profile vector.
func ProfileMetadata(p *repository.Profile) map[string]string {
	return map[string]string{
		"location":         p.Location,
		"experience_level": p.ExperienceLevel,
	}
}

func appendPart(parts *[]string, s string) {
	if s = strings.TrimSpace(s); s != "" {
		*parts = append(*parts, s)
	}
}
