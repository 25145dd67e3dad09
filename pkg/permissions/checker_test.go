package permissions

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		perms    []string
		required string
		want     bool
	}{
		{"full access", []string{"*"}, PayrollWrite, true},
		{"exact", []string{PayrollRead}, PayrollRead, true},
		{"resource wildcard", []string{"payroll.*"}, PayrollWrite, true},
		{"wildcard does not cross resources", []string{"payroll.*"}, RatesWrite, false},
		{"prefix is not a wildcard", []string{"payroll.*"}, "payrollx.read", false},
		{"nothing required", nil, "", true},
		{"missing", []string{EditRequestsCreate}, PayrollWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.perms, tt.required))
		})
	}
}

func TestCan(t *testing.T) {
	employee := &actor.Actor{ID: uuid.New(), Role: actor.RoleEmployee}
	manager := &actor.Actor{ID: uuid.New(), Role: actor.RoleManager}
	admin := &actor.Actor{ID: uuid.New(), Role: actor.RoleAdmin}

	assert.True(t, Can(employee, EditRequestsCreate))
	assert.False(t, Can(employee, OverridesWrite))
	assert.True(t, Can(manager, OverridesWrite))
	assert.True(t, Can(manager, EditRequestsSolve))
	assert.True(t, Can(admin, "anything.at.all"))
	assert.False(t, Can(nil, PayrollRead))
}

func TestCanAccessUser(t *testing.T) {
	employee := &actor.Actor{ID: uuid.New(), Role: actor.RoleEmployee}

	assert.True(t, CanAccessUser(employee, employee.ID.String(), PayrollRead))
	assert.False(t, CanAccessUser(employee, uuid.NewString(), PayrollRead))
	assert.True(t, CanAccessUser(&actor.Actor{ID: uuid.New(), Role: actor.RoleManager}, employee.ID.String(), PayrollRead))
}

func TestRequire(t *testing.T) {
	handler := Require(RatesWrite)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		role actor.Role
		want int
	}{
		{"employee forbidden", actor.RoleEmployee, http.StatusForbidden},
		{"manager allowed", actor.RoleManager, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rate-periods", nil)
			req = req.WithContext(actor.WithActor(req.Context(), &actor.Actor{ID: uuid.New(), Role: tt.role}))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
