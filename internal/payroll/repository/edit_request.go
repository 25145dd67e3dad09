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

const editRequestColumns = `id, payroll_id, requested_by, assigned_to, status, changes, original_data,
	reason, task_id, approved_by, approved_at, rejection_reason, created_at, updated_at`

// EditRequestRepository handles payroll edit requests
type EditRequestRepository struct {
	db *database.DB
}

// NewEditRequestRepository creates a new edit request repository
func NewEditRequestRepository(db *database.DB) *EditRequestRepository {
	return &EditRequestRepository{db: db}
}

// Create inserts a pending edit request
func (r *EditRequestRepository) Create(ctx context.Context, req *domain.PayrollEditRequest) error {
	req.ID = uuid.New()
	req.Status = domain.EditRequestPending

	query := `
		INSERT INTO payroll_edit_requests (
			id, payroll_id, requested_by, assigned_to, status, changes, original_data, reason, task_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Q(ctx).QueryRowxContext(ctx, query,
		req.ID, req.PayrollID, req.RequestedBy, req.AssignedTo, req.Status,
		req.Changes, req.OriginalData, req.Reason, req.TaskID,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	return database.MapError(err)
}

// GetByID returns one edit request
func (r *EditRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayrollEditRequest, error) {
	query := `SELECT ` + editRequestColumns + ` FROM payroll_edit_requests WHERE id = $1`

	var req domain.PayrollEditRequest
	err := r.db.Q(ctx).GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("payroll edit request")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListForPayroll returns the requests of one payroll, newest first
func (r *EditRequestRepository) ListForPayroll(ctx context.Context, payrollID uuid.UUID) ([]domain.PayrollEditRequest, error) {
	query := `
		SELECT ` + editRequestColumns + `
		FROM payroll_edit_requests
		WHERE payroll_id = $1
		ORDER BY created_at DESC
	`

	var reqs []domain.PayrollEditRequest
	if err := r.db.Q(ctx).SelectContext(ctx, &reqs, query, payrollID); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListAssigned returns requests assigned to a user, optionally by status
func (r *EditRequestRepository) ListAssigned(ctx context.Context, assignee uuid.UUID, status *domain.EditRequestStatus) ([]domain.PayrollEditRequest, error) {
	query := `
		SELECT ` + editRequestColumns + `
		FROM payroll_edit_requests
		WHERE assigned_to = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at
	`

	var reqs []domain.PayrollEditRequest
	if err := r.db.Q(ctx).SelectContext(ctx, &reqs, query, assignee, status); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Resolve moves a PENDING request to status. Returns false when the request
// was already resolved.
func (r *EditRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status domain.EditRequestStatus, by *uuid.UUID, at time.Time, rejectionReason *string) (bool, error) {
	query := `
		UPDATE payroll_edit_requests SET
			status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, status, by, at, rejectionReason)
	if err != nil {
		return false, database.MapError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
