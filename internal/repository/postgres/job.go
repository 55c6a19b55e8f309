package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobgrid/matchd/internal/repository"
)

// JobRepo implements repository.JobRepository
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// GetByID retrieves a job posting by ID
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Job, error) {
	query := `
		SELECT id, title, description, skills, requirements, location, job_type, experience_level, status, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job repository.Job
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Title, &job.Description, &job.Skills, &job.Requirements,
		&job.Location, &job.JobType, &job.ExperienceLevel, &job.Status,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListActiveIDs returns the IDs of all active job postings
func (r *JobRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM jobs WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, repository.JobStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return ids, nil
}

// Ensure JobRepo implements repository.JobRepository
var _ repository.JobRepository = (*JobRepo)(nil)
