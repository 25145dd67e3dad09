package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// EditRequestStatus is PENDING until resolved once, irreversibly
type EditRequestStatus string

const (
	EditRequestPending  EditRequestStatus = "PENDING"
	EditRequestApproved EditRequestStatus = "APPROVED"
	EditRequestRejected EditRequestStatus = "REJECTED"
)

// Decision resolves a pending edit request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Task statuses written for the task linked to an edit request
const (
	TaskApproved  = "approved"
	TaskCancelled = "cancelled"
)

// PayrollChanges is the proposed diff of an edit request. Only present
// fields are applied; bonuses and deductions replace the whole list.
type PayrollChanges struct {
	HoursWorked *decimal.Decimal `json:"hours_worked,omitempty"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	BaseSalary  *decimal.Decimal `json:"base_salary,omitempty"`
	Bonuses     *Items           `json:"bonuses,omitempty"`
	Deductions  *Items           `json:"deductions,omitempty"`
}

// IsEmpty reports whether no field is present.
func (c *PayrollChanges) IsEmpty() bool {
	return c.HoursWorked == nil && c.HourlyRate == nil && c.BaseSalary == nil &&
		c.Bonuses == nil && c.Deductions == nil
}

// Validate rejects an empty diff and negative values.
func (c *PayrollChanges) Validate() error {
	if c.IsEmpty() {
		return errors.ValidationField("changes", "at least one field is required")
	}
	details := map[string]string{}
	if c.HoursWorked != nil && c.HoursWorked.IsNegative() {
		details["hours_worked"] = "must not be negative"
	}
	if c.HourlyRate != nil && c.HourlyRate.IsNegative() {
		details["hourly_rate"] = "must not be negative"
	}
	if c.BaseSalary != nil && c.BaseSalary.IsNegative() {
		details["base_salary"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	if c.Bonuses != nil {
		if err := c.Bonuses.Validate("bonuses"); err != nil {
			return err
		}
	}
	if c.Deductions != nil {
		if err := c.Deductions.Validate("deductions"); err != nil {
			return err
		}
	}
	return nil
}

// ApplyTo writes the present fields onto p and recomputes its totals.
// Base salary is taken as given; it is not re-derived from hours and rate.
func (c *PayrollChanges) ApplyTo(p *Payroll) {
	if c.HoursWorked != nil {
		p.HoursWorked = Some(*c.HoursWorked)
	}
	if c.HourlyRate != nil {
		p.HourlyRate = Some(*c.HourlyRate)
	}
	if c.BaseSalary != nil {
		p.BaseSalary = *c.BaseSalary
	}
	if c.Bonuses != nil {
		p.Bonuses = append(Items{}, (*c.Bonuses)...)
	}
	if c.Deductions != nil {
		p.Deductions = append(Items{}, (*c.Deductions)...)
	}
	p.RecomputeTotals()
}

// Value implements driver.Valuer
func (c PayrollChanges) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *PayrollChanges) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// PayrollSnapshot is the payroll state captured when an edit request is made
type PayrollSnapshot struct {
	HoursWorked     decimal.NullDecimal `json:"hours_worked"`
	HourlyRate      decimal.NullDecimal `json:"hourly_rate"`
	BaseSalary      decimal.Decimal     `json:"base_salary"`
	Bonuses         Items               `json:"bonuses"`
	Deductions      Items               `json:"deductions"`
	TotalBonuses    decimal.Decimal     `json:"total_bonuses"`
	TotalDeductions decimal.Decimal     `json:"total_deductions"`
	NetSalary       decimal.Decimal     `json:"net_salary"`
}

// SnapshotOf captures the editable fields of p.
func SnapshotOf(p *Payroll) PayrollSnapshot {
	return PayrollSnapshot{
		HoursWorked:     p.HoursWorked,
		HourlyRate:      p.HourlyRate,
		BaseSalary:      p.BaseSalary,
		Bonuses:         append(Items{}, p.Bonuses...),
		Deductions:      append(Items{}, p.Deductions...),
		TotalBonuses:    p.TotalBonuses,
		TotalDeductions: p.TotalDeductions,
		NetSalary:       p.NetSalary,
	}
}

// Value implements driver.Valuer
func (s PayrollSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *PayrollSnapshot) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// PayrollEditRequest is a proposed, approval-gated change to a payroll.
type PayrollEditRequest struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	PayrollID       uuid.UUID         `json:"payroll_id" db:"payroll_id"`
	RequestedBy     uuid.UUID         `json:"requested_by" db:"requested_by"`
	AssignedTo      uuid.UUID         `json:"assigned_to" db:"assigned_to"`
	Status          EditRequestStatus `json:"status" db:"status"`
	Changes         PayrollChanges    `json:"changes" db:"changes"`
	OriginalData    PayrollSnapshot   `json:"original_data" db:"original_data"`
	Reason          *string           `json:"reason,omitempty" db:"reason"`
	TaskID          *uuid.UUID        `json:"task_id,omitempty" db:"task_id"`
	ApprovedBy      *uuid.UUID        `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty" db:"approved_at"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// IsPending reports whether the request can still be resolved.
func (r *PayrollEditRequest) IsPending() bool {
	return r.Status == EditRequestPending
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}
