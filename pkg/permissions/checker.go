// Package permissions maps actor roles to permission sets and gates routes on
// them.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "overrides.*")
//   - "resource.action" - Specific action (e.g., "payroll.read")
//
// Identity is trusted upstream; this is a coarse role gate, not an
// authorization system.
package permissions

import (
	"net/http"
	"strings"

	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/httputil"
)

// Permissions used by the payroll routes
const (
	PayrollRead        = "payroll.read"
	PayrollWrite       = "payroll.write"
	OverridesWrite     = "overrides.write"
	RatesWrite         = "rates.write"
	OvertimeWrite      = "overtime.write"
	EditRequestsCreate = "edit_requests.create"
	EditRequestsRead   = "edit_requests.read"
	EditRequestsSolve  = "edit_requests.resolve"
	AttendanceWrite    = "attendance.write"
	AttendanceRead     = "attendance.read"
)

var rolePermissions = map[actor.Role][]string{
	actor.RoleEmployee: {
		EditRequestsCreate,
		EditRequestsRead,
		AttendanceWrite,
	},
	actor.RoleManager: {
		"payroll.*",
		"overrides.*",
		"rates.*",
		"overtime.*",
		"edit_requests.*",
		"attendance.*",
	},
	actor.RoleAdmin: {"*"},
}

// ForRole returns the permissions granted to a role.
func ForRole(r actor.Role) []string {
	return rolePermissions[r]
}

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "payroll.*" matches "payroll.read", "payroll.write", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// Can reports whether the actor's role grants the permission.
func Can(a *actor.Actor, required string) bool {
	if a == nil {
		return false
	}
	return HasPermission(ForRole(a.Role), required)
}

// CanAccessUser reports whether a may act on userID's own records under the
// given permission. Everyone may access their own records.
func CanAccessUser(a *actor.Actor, userID string, required string) bool {
	if a != nil && a.ID.String() == userID {
		return true
	}
	return Can(a, required)
}

// Require rejects requests whose actor lacks the permission with 403.
func Require(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Can(actor.FromContext(r.Context()), required) {
				httputil.Error(w, errors.Forbidden("missing permission "+required))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
