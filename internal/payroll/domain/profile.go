package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/actor"
	"github.com/shopspring/decimal"
)

// EmployeeProfile is the local projection of an employee's payment defaults
// and reporting line, maintained from staff events.
type EmployeeProfile struct {
	UserID        uuid.UUID           `json:"user_id" db:"user_id"`
	CompanyID     uuid.UUID           `json:"company_id" db:"company_id"`
	Role          actor.Role          `json:"role" db:"role"`
	ManagerID     *uuid.UUID          `json:"manager_id,omitempty" db:"manager_id"`
	PaymentType   *PaymentType        `json:"payment_type,omitempty" db:"payment_type"`
	HourlyRate    decimal.NullDecimal `json:"hourly_rate" db:"hourly_rate"`
	MonthlySalary decimal.NullDecimal `json:"monthly_salary" db:"monthly_salary"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// DefaultRate returns the profile's hourly rate, null when unknown.
func (p *EmployeeProfile) DefaultRate() decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return p.HourlyRate
}
