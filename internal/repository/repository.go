// Package repository defines domain models and the narrow data access
// interfaces the engine consumes from the job portal's CRUD layer.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Job statuses as stored by the portal. Only active jobs are indexed.
const (
	JobStatusActive = "active"
	JobStatusDraft  = "draft"
	JobStatusClosed = "closed"
)

// Job represents a job posting
type Job struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Skills          []string
	Requirements    []string
	Location        string
	JobType         string // full-time, part-time, contract, internship
	ExperienceLevel string // entry, mid, senior, lead
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Profile represents a job seeker's profile
type Profile struct {
	ID              uuid.UUID // user ID
	JobTitle        string
	Skills          []string
	Bio             string
	ExperienceYears int
	Education       string
	Location        string
	ExperienceLevel string
	UpdatedAt       time.Time
}

// HasSignal reports whether the profile carries enough text to be worth
// indexing. Profiles with neither skills nor bio are excluded from the
// vector index rather than stored with a meaningless vector.
func (p *Profile) HasSignal() bool {
	if p.Bio != "" {
		return true
	}
	for _, s := range p.Skills {
		if s != "" {
			return true
		}
	}
	return false
}

// JobRepository defines read operations against the portal's job postings
type JobRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ProfileRepository defines read operations against job seeker profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListSeekerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ApplicationRepository answers whether a candidate already applied to a job
type ApplicationRepository interface {
	HasApplied(ctx context.Context, candidateID, jobID uuid.UUID) (bool, error)
}
