// Package actor identifies the user or system performing an action.
//
// Identity is established upstream (gateway / identity provider) and arrives
// as trusted headers; this package only carries it through the request context.
package actor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is the organisational role of an actor.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the user ID of the actor
	ID uuid.UUID `json:"id"`

	// CompanyID scopes the actor to one company
	CompanyID uuid.UUID `json:"company_id"`

	// Role is the actor's organisational role
	Role Role `json:"role"`
}

// IsPrivileged returns true for managers and admins.
func (a *Actor) IsPrivileged() bool {
	if a == nil {
		return false
	}
	return a.Role == RoleManager || a.Role == RoleAdmin
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Role)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs, scheduled tasks, and system-initiated operations.
func SystemActor() *Actor {
	return &Actor{ID: uuid.Nil, Role: RoleAdmin}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == uuid.Nil
}

// IDOrNil returns the actor ID, or nil for system actions, for audit columns.
func (a *Actor) IDOrNil() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}
