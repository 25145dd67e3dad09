package service

import (
	"testing"

	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/testutil"
)

func assertValidation(t *testing.T, err error) {
	t.Helper()
	testutil.AssertErrorKind(t, errors.ErrValidation, err)
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	testutil.AssertErrorKind(t, errors.ErrConflict, err)
}

func assertInvalidState(t *testing.T, err error) {
	t.Helper()
	testutil.RequireAppError(t, err, "INVALID_STATE")
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	testutil.AssertErrorKind(t, errors.ErrNotFound, err)
}
