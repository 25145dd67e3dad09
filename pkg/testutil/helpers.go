package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertDecimal compares decimals by value, so "7.50" equals "7.5"
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	if len(msgAndArgs) == 0 {
		msgAndArgs = []interface{}{"want %s, got %s", want, got}
	}
	return assert.True(t, Dec(want).Equal(got), msgAndArgs...)
}

// AssertErrorKind asserts err wraps the given sentinel, e.g. errors.ErrConflict
func AssertErrorKind(t *testing.T, kind error, err error) bool {
	t.Helper()
	if !assert.Error(t, err) {
		return false
	}
	return assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
}

// RequireAppError unwraps err to an AppError with the given code
func RequireAppError(t *testing.T, err error, code string) *errors.AppError {
	t.Helper()
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// Context returns a context cancelled when the test ends
func Context(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
