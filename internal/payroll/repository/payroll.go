package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/database"
	"github.com/paycore/paycore-backend/pkg/errors"
)

const payrollColumns = `id, user_id, month, year, payment_type, hours_worked, hourly_rate, base_salary,
	bonuses, deductions, total_bonuses, total_deductions, net_salary, status,
	approved_by, approved_at, paid_at, last_recalculated_at, created_by, created_at, updated_at`

const insertPayroll = `
	INSERT INTO payrolls (
		id, user_id, month, year, payment_type, hours_worked, hourly_rate, base_salary,
		bonuses, deductions, total_bonuses, total_deductions, net_salary, status, created_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

// PayrollRepository handles monthly payroll rows
type PayrollRepository struct {
	db *database.DB
}

// NewPayrollRepository creates a new payroll repository
func NewPayrollRepository(db *database.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

func payrollArgs(p *domain.Payroll) []interface{} {
	return []interface{}{
		p.ID, p.UserID, p.Month, p.Year, p.PaymentType, p.HoursWorked, p.HourlyRate, p.BaseSalary,
		p.Bonuses, p.Deductions, p.TotalBonuses, p.TotalDeductions, p.NetSalary, p.Status, p.CreatedBy,
	}
}

// ============================================================================
// CREATE
// ============================================================================

// Create inserts a payroll. A second payroll for the same user and period
// is rejected by the unique constraint and surfaces as a conflict.
func (r *PayrollRepository) Create(ctx context.Context, p *domain.Payroll) error {
	p.ID = uuid.New()

	query := insertPayroll + ` RETURNING created_at, updated_at`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, payrollArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
	return database.MapError(err)
}

// CreateIfAbsent inserts a payroll unless one exists for its period.
// Returns false, without error, when the period is already taken.
func (r *PayrollRepository) CreateIfAbsent(ctx context.Context, p *domain.Payroll) (bool, error) {
	p.ID = uuid.New()

	query := insertPayroll + `
		ON CONFLICT ON CONSTRAINT payrolls_user_period_key DO NOTHING
		RETURNING created_at, updated_at
	`
	err := r.db.Q(ctx).QueryRowxContext(ctx, query, payrollArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, database.MapError(err)
	}
	return true, nil
}

// ============================================================================
// READ
// ============================================================================

// GetByID returns one payroll
func (r *PayrollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payroll, error) {
	return r.getOne(ctx, `SELECT `+payrollColumns+` FROM payrolls WHERE id = $1`, id)
}

// GetForUpdate returns one payroll and locks its row until the surrounding
// transaction ends. Must run inside database.DB.InTx.
func (r *PayrollRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payroll, error) {
	return r.getOne(ctx, `SELECT `+payrollColumns+` FROM payrolls WHERE id = $1 FOR UPDATE`, id)
}

// GetByPeriod returns the payroll of a user for a month
func (r *PayrollRepository) GetByPeriod(ctx context.Context, userID uuid.UUID, month, year int) (*domain.Payroll, error) {
	query := `SELECT ` + payrollColumns + ` FROM payrolls WHERE user_id = $1 AND month = $2 AND year = $3`
	return r.getOne(ctx, query, userID, month, year)
}

func (r *PayrollRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.Payroll, error) {
	var p domain.Payroll
	err := r.db.Q(ctx).GetContext(ctx, &p, query, args...)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("payroll")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns payrolls matching the filter, newest period first, and the total count
func (r *PayrollRepository) List(ctx context.Context, f domain.PayrollFilter) ([]domain.Payroll, int64, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Year != nil {
		add("year = $%d", *f.Year)
	}
	if f.Month != nil {
		add("month = $%d", *f.Month)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.Q(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM payrolls`+where, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM payrolls%s ORDER BY year DESC, month DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		payrollColumns, where, len(args)+1, len(args)+2)

	var payrolls []domain.Payroll
	if err := r.db.Q(ctx).SelectContext(ctx, &payrolls, query, append(args, limit, f.Offset)...); err != nil {
		return nil, 0, err
	}
	return payrolls, total, nil
}

// ============================================================================
// UPDATE
// ============================================================================

// UpdateFigures writes the computed and editable money fields
func (r *PayrollRepository) UpdateFigures(ctx context.Context, p *domain.Payroll) error {
	query := `
		UPDATE payrolls SET
			hours_worked = $2, hourly_rate = $3, base_salary = $4, bonuses = $5, deductions = $6,
			total_bonuses = $7, total_deductions = $8, net_salary = $9, last_recalculated_at = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		p.ID, p.HoursWorked, p.HourlyRate, p.BaseSalary, p.Bonuses, p.Deductions,
		p.TotalBonuses, p.TotalDeductions, p.NetSalary, p.LastRecalculatedAt,
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("payroll")
	}
	return database.MapError(err)
}

// TransitionStatus moves a payroll from one status to another. Returns false
// when the payroll is no longer in the expected status.
func (r *PayrollRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PayrollStatus, by *uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE payrolls SET
			status = $3,
			approved_by = CASE WHEN $3 IN ('APPROVED', 'REJECTED') THEN $4 ELSE approved_by END,
			approved_at = CASE WHEN $3 IN ('APPROVED', 'REJECTED') THEN $5 ELSE approved_at END,
			paid_at = CASE WHEN $3 = 'PAID' THEN $5 ELSE paid_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, from, to, by, at)
	if err != nil {
		return false, database.MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
