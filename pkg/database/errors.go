package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/paycore/paycore-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with a meaningful message.
// Returns nil if the error is not a pq.Error or has no mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Exclusion constraint violation
	case "23P01":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Check constraint violation
	case "23514":
		return mapCheckConstraint(pqErr)

	// Foreign key violation
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// MapError returns the mapped AppError when err is a known PostgreSQL
// constraint violation and err unchanged otherwise.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "hours_range"):
		return errors.Validation(map[string]string{
			"hours": "must be between 0 and 24",
		})

	case strings.Contains(constraint, "date_range"):
		return errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "invalid status",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "rate_periods_no_overlap"):
		return "hourly rate period overlaps an existing period for this user"
	case strings.Contains(constraint, "payrolls_user_period"):
		return "payroll already exists for this user and period"
	case strings.Contains(constraint, "overrides_user_date"):
		return "an override already exists for this user and date"
	case strings.Contains(constraint, "attendance_user_date"):
		return "attendance already recorded for this user and date"
	default:
		return "a record with these values already exists"
	}
}
