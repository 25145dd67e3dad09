package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for errors.Is. Every AppError wraps exactly one of them.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("validation error")

	// ErrInvalidState is a conflict: it also matches ErrConflict
	ErrInvalidState = fmt.Errorf("%w: invalid state", ErrConflict)
)

// AppError carries the HTTP status and machine-readable code an error is
// reported with
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError outside the standard kinds
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func kind(sentinel error, code string, status int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

func NotFound(resource string) *AppError {
	return kind(ErrNotFound, "NOT_FOUND", http.StatusNotFound, resource+" not found")
}

func Unauthorized(message string) *AppError {
	return kind(ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return kind(ErrForbidden, "FORBIDDEN", http.StatusForbidden, message)
}

func BadRequest(message string) *AppError {
	return kind(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, message)
}

// Conflict reports a uniqueness or overlap violation
func Conflict(message string) *AppError {
	return kind(ErrConflict, "CONFLICT", http.StatusConflict, message)
}

// InvalidState reports a transition the record's current status forbids,
// such as editing a PAID payroll or resolving a resolved request
func InvalidState(message string) *AppError {
	return kind(ErrInvalidState, "INVALID_STATE", http.StatusConflict, message)
}

func Internal(message string) *AppError {
	return kind(ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, message)
}

// Validation reports field errors keyed by field name
func Validation(details map[string]string) *AppError {
	e := kind(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	e.Details = details
	return e
}

// ValidationField is shorthand for a single-field validation failure.
func ValidationField(field, message string) *AppError {
	return Validation(map[string]string{field: message})
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
