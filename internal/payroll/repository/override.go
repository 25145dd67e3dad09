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

const overrideColumns = `id, user_id, work_date, hourly_rate, regular_hours, overtime_hours, total_hours,
	earnings, notes, created_by, updated_by, created_at, updated_at`

// OverrideRepository handles daily payroll overrides
type OverrideRepository struct {
	db *database.DB
}

// NewOverrideRepository creates a new override repository
func NewOverrideRepository(db *database.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Create inserts an override; a second one for the same user and day is a conflict
func (r *OverrideRepository) Create(ctx context.Context, o *domain.DailyOverride) error {
	o.ID = uuid.New()

	query := `
		INSERT INTO daily_payroll_overrides (
			id, user_id, work_date, hourly_rate, regular_hours, overtime_hours,
			total_hours, earnings, notes, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		o.ID, o.UserID, o.WorkDate, o.HourlyRate, o.RegularHours, o.OvertimeHours,
		o.TotalHours, o.Earnings, o.Notes, o.CreatedBy, o.UpdatedBy,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	return database.MapError(err)
}

// GetByID returns one override
func (r *OverrideRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM daily_payroll_overrides WHERE id = $1`

	var o domain.DailyOverride
	err := r.db.Q(ctx).GetContext(ctx, &o, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("daily payroll override")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListRange returns a user's overrides with work_date in [from, to]
func (r *OverrideRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.DailyOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM daily_payroll_overrides
		WHERE user_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date
	`

	var overrides []domain.DailyOverride
	if err := r.db.Q(ctx).SelectContext(ctx, &overrides, query, userID, from, to); err != nil {
		return nil, err
	}
	return overrides, nil
}

// Update writes every value field of the override
func (r *OverrideRepository) Update(ctx context.Context, o *domain.DailyOverride) error {
	query := `
		UPDATE daily_payroll_overrides SET
			hourly_rate = $2, regular_hours = $3, overtime_hours = $4, total_hours = $5,
			earnings = $6, notes = $7, updated_by = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		o.ID, o.HourlyRate, o.RegularHours, o.OvertimeHours, o.TotalHours,
		o.Earnings, o.Notes, o.UpdatedBy,
	).Scan(&o.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("daily payroll override")
	}
	return database.MapError(err)
}

// Delete removes an override
func (r *OverrideRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Q(ctx).ExecContext(ctx, `DELETE FROM daily_payroll_overrides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireOneRow(result, "daily payroll override")
}
