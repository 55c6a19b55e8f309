package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobgrid/matchd/internal/repository"
)

// ProfileRepo implements repository.ProfileRepository
type ProfileRepo struct {
	db *DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByID retrieves a job seeker profile by user ID
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Profile, error) {
	query := `
		SELECT p.user_id, p.job_title, p.skills, p.bio, p.experience_years, p.education, p.location, p.experience_level, p.updated_at
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1 AND u.role = 'job_seeker'
	`

	var profile repository.Profile
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&profile.ID, &profile.JobTitle, &profile.Skills, &profile.Bio,
		&profile.ExperienceYears, &profile.Education, &profile.Location,
		&profile.ExperienceLevel, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// ListSeekerIDs returns the user IDs of all job seeker profiles
func (r *ProfileRepo) ListSeekerIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT p.user_id
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE u.role = 'job_seeker'
		ORDER BY p.user_id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeker profiles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return ids, nil
}

// Ensure ProfileRepo implements repository.ProfileRepository
var _ repository.ProfileRepository = (*ProfileRepo)(nil)
