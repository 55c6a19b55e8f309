package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jobgrid/matchd/internal/repository"
)

// ApplicationRepo implements repository.ApplicationRepository
type ApplicationRepo struct {
	db *DB
}

// NewApplicationRepo creates a new application repository
func NewApplicationRepo(db *DB) *ApplicationRepo {
	return &ApplicationRepo{db: db}
}

// HasApplied reports whether the candidate already applied to the job
func (r *ApplicationRepo) HasApplied(ctx context.Context, candidateID, jobID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE candidate_id = $1 AND job_id = $2)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, candidateID, jobID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}

	return exists, nil
}

// Ensure ApplicationRepo implements repository.ApplicationRepository
var _ repository.ApplicationRepository = (*ApplicationRepo)(nil)
