package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/database"
)

const profileColumns = `user_id, company_id, role, manager_id, payment_type, hourly_rate, monthly_salary,
	created_at, updated_at`

// ProfileRepository handles the local employee payment profile projection
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns a user's profile, or nil when the user is unknown here
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.EmployeeProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM employee_payment_profiles WHERE user_id = $1`

	var p domain.EmployeeProfile
	err := r.db.Q(ctx).GetContext(ctx, &p, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindCompanyAdmin returns the longest-standing admin of a company, or nil
func (r *ProfileRepository) FindCompanyAdmin(ctx context.Context, companyID uuid.UUID) (*domain.EmployeeProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM employee_payment_profiles
		WHERE company_id = $1 AND role = 'admin'
		ORDER BY created_at, user_id
		LIMIT 1
	`

	var p domain.EmployeeProfile
	err := r.db.Q(ctx).GetContext(ctx, &p, query, companyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert stores the latest profile received from the staff service
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.EmployeeProfile) error {
	query := `
		INSERT INTO employee_payment_profiles (
			user_id, company_id, role, manager_id, payment_type, hourly_rate, monthly_salary
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			role = EXCLUDED.role,
			manager_id = EXCLUDED.manager_id,
			payment_type = EXCLUDED.payment_type,
			hourly_rate = EXCLUDED.hourly_rate,
			monthly_salary = EXCLUDED.monthly_salary,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		p.UserID, p.CompanyID, p.Role, p.ManagerID, p.PaymentType, p.HourlyRate, p.MonthlySalary,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return database.MapError(err)
}
