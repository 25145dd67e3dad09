package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/database"
	"github.com/paycore/paycore-backend/pkg/errors"
)

const ratePeriodColumns = `id, user_id, start_date, end_date, hourly_rate, created_by, created_at`

// RatePeriodRepository handles hourly rate periods
type RatePeriodRepository struct {
	db *database.DB
}

// NewRatePeriodRepository creates a new rate period repository
func NewRatePeriodRepository(db *database.DB) *RatePeriodRepository {
	return &RatePeriodRepository{db: db}
}

// Create inserts a period. Overlaps with an existing period of the same user
// are rejected by the exclusion constraint and surface as a conflict.
func (r *RatePeriodRepository) Create(ctx context.Context, p *domain.HourlyRatePeriod) error {
	p.ID = uuid.New()

	query := `
		INSERT INTO hourly_rate_periods (id, user_id, start_date, end_date, hourly_rate, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		p.ID, p.UserID, p.StartDate, p.EndDate, p.HourlyRate, p.CreatedBy,
	).Scan(&p.CreatedAt)
	return database.MapError(err)
}

// GetByID returns one period
func (r *RatePeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.HourlyRatePeriod, error) {
	query := `SELECT ` + ratePeriodColumns + ` FROM hourly_rate_periods WHERE id = $1`

	var p domain.HourlyRatePeriod
	err := r.db.Q(ctx).GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("hourly rate period")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForUser returns all periods of a user ordered by start date
func (r *RatePeriodRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.HourlyRatePeriod, error) {
	query := `
		SELECT ` + ratePeriodColumns + `
		FROM hourly_rate_periods
		WHERE user_id = $1
		ORDER BY start_date
	`

	var periods []domain.HourlyRatePeriod
	if err := r.db.Q(ctx).SelectContext(ctx, &periods, query, userID); err != nil {
		return nil, err
	}
	return periods, nil
}

// ListOverlapping returns the user's periods sharing a day with [from, to],
// earliest created first
func (r *RatePeriodRepository) ListOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.HourlyRatePeriod, error) {
	query := `
		SELECT ` + ratePeriodColumns + `
		FROM hourly_rate_periods
		WHERE user_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY created_at, id
	`

	var periods []domain.HourlyRatePeriod
	if err := r.db.Q(ctx).SelectContext(ctx, &periods, query, userID, from, to); err != nil {
		return nil, err
	}
	return periods, nil
}

// Delete removes a period
func (r *RatePeriodRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM hourly_rate_periods WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireOneRow(result, "hourly rate period")
}

func requireOneRow(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
