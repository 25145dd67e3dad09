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

const attendanceColumns = `id, user_id, work_date, check_in_time, check_out_time, notes, created_at, updated_at`

// AttendanceRepository handles attendance records and their event ledger
type AttendanceRepository struct {
	db *database.DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ============================================================================
// CHECK-IN / CHECK-OUT
// ============================================================================

// UpsertCheckIn records a check-in for (userID, workDate) in one statement.
// A repeated check-in reopens the day: the first check-in time is kept and
// the check-out is cleared.
func (r *AttendanceRepository) UpsertCheckIn(ctx context.Context, userID uuid.UUID, workDate, at time.Time) (*domain.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance_records (id, user_id, work_date, check_in_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, work_date) DO UPDATE
			SET check_out_time = NULL, updated_at = NOW()
		RETURNING ` + attendanceColumns

	var rec domain.AttendanceRecord
	err := r.db.Q(ctx).GetContext(ctx, &rec, query, uuid.New(), userID, workDate, at)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &rec, nil
}

// LatestOpen returns the user's most recent open record, locked for the
// rest of the transaction. Returns nil when the user has no open record.
func (r *AttendanceRepository) LatestOpen(ctx context.Context, userID uuid.UUID) (*domain.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND check_out_time IS NULL
		ORDER BY work_date DESC
		LIMIT 1
		FOR UPDATE
	`

	var rec domain.AttendanceRecord
	err := r.db.Q(ctx).GetContext(ctx, &rec, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close sets the check-out of an open record. Returns false when it was
// already closed by someone else.
func (r *AttendanceRepository) Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE attendance_records SET check_out_time = $2, updated_at = NOW()
		WHERE id = $1 AND check_out_time IS NULL
	`

	result, err := r.db.Q(ctx).ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// AddEvent appends an entry to the attendance ledger
func (r *AttendanceRepository) AddEvent(ctx context.Context, ev *domain.AttendanceEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	query := `
		INSERT INTO attendance_events (id, attendance_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Q(ctx).ExecContext(ctx, query, ev.ID, ev.AttendanceID, ev.Kind, ev.OccurredAt)
	return database.MapError(err)
}

// ============================================================================
// READS
// ============================================================================

// Get returns the record of a user for one day
func (r *AttendanceRepository) Get(ctx context.Context, userID uuid.UUID, workDate time.Time) (*domain.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE user_id = $1 AND work_date = $2`

	var rec domain.AttendanceRecord
	err := r.db.Q(ctx).GetContext(ctx, &rec, query, userID, workDate)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("attendance record")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRange returns a user's records with work_date in [from, to]
func (r *AttendanceRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date
	`

	var records []domain.AttendanceRecord
	if err := r.db.Q(ctx).SelectContext(ctx, &records, query, userID, from, to); err != nil {
		return nil, err
	}
	return records, nil
}

// ListStaleOpen returns open records whose work_date is before the given day
func (r *AttendanceRepository) ListStaleOpen(ctx context.Context, before time.Time) ([]domain.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE check_out_time IS NULL AND work_date < $1
		ORDER BY work_date, user_id
	`

	var records []domain.AttendanceRecord
	if err := r.db.Q(ctx).SelectContext(ctx, &records, query, before); err != nil {
		return nil, err
	}
	return records, nil
}

// ListEvents returns the ledger of one record in order
func (r *AttendanceRepository) ListEvents(ctx context.Context, attendanceID uuid.UUID) ([]domain.AttendanceEvent, error) {
	query := `
		SELECT id, attendance_id, kind, occurred_at
		FROM attendance_events
		WHERE attendance_id = $1
		ORDER BY occurred_at, id
	`

	var events []domain.AttendanceEvent
	if err := r.db.Q(ctx).SelectContext(ctx, &events, query, attendanceID); err != nil {
		return nil, err
	}
	return events, nil
}
