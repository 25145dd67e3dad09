package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/database"
)

// OvertimeConfigRepository handles per-user overtime policies
type OvertimeConfigRepository struct {
	db *database.DB
}

// NewOvertimeConfigRepository creates a new overtime config repository
func NewOvertimeConfigRepository(db *database.DB) *OvertimeConfigRepository {
	return &OvertimeConfigRepository{db: db}
}

// Get returns the user's policy, or nil when none is stored
func (r *OvertimeConfigRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.OvertimeConfig, error) {
	query := `
		SELECT user_id, weekly_threshold_hours, overtime_multiplier, updated_at
		FROM overtime_configs
		WHERE user_id = $1
	`

	var cfg domain.OvertimeConfig
	err := r.db.Q(ctx).GetContext(ctx, &cfg, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert stores the user's policy
func (r *OvertimeConfigRepository) Upsert(ctx context.Context, cfg *domain.OvertimeConfig) error {
	query := `
		INSERT INTO overtime_configs (user_id, weekly_threshold_hours, overtime_multiplier)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
			SET weekly_threshold_hours = EXCLUDED.weekly_threshold_hours,
			    overtime_multiplier = EXCLUDED.overtime_multiplier,
			    updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		cfg.UserID, cfg.WeeklyThresholdHours, cfg.OvertimeMultiplier,
	).Scan(&cfg.UpdatedAt)
	return database.MapError(err)
}
