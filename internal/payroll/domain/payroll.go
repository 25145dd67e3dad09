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

// PaymentType selects how a payroll's base salary is derived
type PaymentType string

const (
	PaymentHourly PaymentType = "HOURLY"
	PaymentSalary PaymentType = "SALARY"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	return t == PaymentHourly || t == PaymentSalary
}

// PayrollStatus is the lifecycle state of a monthly payroll
type PayrollStatus string

const (
	PayrollPending  PayrollStatus = "PENDING"
	PayrollApproved PayrollStatus = "APPROVED"
	PayrollRejected PayrollStatus = "REJECTED"
	PayrollPaid     PayrollStatus = "PAID"
)

var payrollTransitions = map[PayrollStatus][]PayrollStatus{
	PayrollPending:  {PayrollApproved, PayrollRejected},
	PayrollApproved: {PayrollPaid},
}

// CanTransitionTo reports whether a payroll may move from s to next.
func (s PayrollStatus) CanTransitionTo(next PayrollStatus) bool {
	for _, allowed := range payrollTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Item is one labelled bonus or deduction
type Item struct {
	Label  string          `json:"label" validate:"required,max=200"`
	Amount decimal.Decimal `json:"amount"`
}

// Items is an ordered bonus or deduction list stored as JSONB. It is always
// replaced as a whole.
type Items []Item

// Total sums the item amounts.
func (items Items) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return RoundMoney(total)
}

// Validate rejects empty labels and negative amounts.
func (items Items) Validate(field string) error {
	for i, it := range items {
		if it.Label == "" {
			return errors.ValidationField(fmt.Sprintf("%s[%d].label", field, i), "must not be empty")
		}
		if it.Amount.IsNegative() {
			return errors.ValidationField(fmt.Sprintf("%s[%d].amount", field, i), "must not be negative")
		}
	}
	return nil
}

// Value implements driver.Valuer
func (items Items) Value() (driver.Value, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

// Scan implements sql.Scanner
func (items *Items) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*items = Items{}
		return nil
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	default:
		return fmt.Errorf("cannot scan %T into Items", src)
	}
}

// NetSalary is base + Σbonuses - Σdeductions.
func NetSalary(base decimal.Decimal, bonuses, deductions Items) decimal.Decimal {
	return RoundMoney(base.Add(bonuses.Total()).Sub(deductions.Total()))
}

// Payroll is one user's aggregate for a calendar month.
type Payroll struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	UserID             uuid.UUID           `json:"user_id" db:"user_id"`
	Month              int                 `json:"month" db:"month"`
	Year               int                 `json:"year" db:"year"`
	PaymentType        PaymentType         `json:"payment_type" db:"payment_type"`
	HoursWorked        decimal.NullDecimal `json:"hours_worked" db:"hours_worked"`
	HourlyRate         decimal.NullDecimal `json:"hourly_rate" db:"hourly_rate"`
	BaseSalary         decimal.Decimal     `json:"base_salary" db:"base_salary"`
	Bonuses            Items               `json:"bonuses" db:"bonuses"`
	Deductions         Items               `json:"deductions" db:"deductions"`
	TotalBonuses       decimal.Decimal     `json:"total_bonuses" db:"total_bonuses"`
	TotalDeductions    decimal.Decimal     `json:"total_deductions" db:"total_deductions"`
	NetSalary          decimal.Decimal     `json:"net_salary" db:"net_salary"`
	Status             PayrollStatus       `json:"status" db:"status"`
	ApprovedBy         *uuid.UUID          `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt         *time.Time          `json:"approved_at,omitempty" db:"approved_at"`
	PaidAt             *time.Time          `json:"paid_at,omitempty" db:"paid_at"`
	LastRecalculatedAt *time.Time          `json:"last_recalculated_at,omitempty" db:"last_recalculated_at"`
	CreatedBy          *uuid.UUID          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// RecomputeTotals refreshes totals and net salary from the current fields.
func (p *Payroll) RecomputeTotals() {
	if p.Bonuses == nil {
		p.Bonuses = Items{}
	}
	if p.Deductions == nil {
		p.Deductions = Items{}
	}
	p.TotalBonuses = p.Bonuses.Total()
	p.TotalDeductions = p.Deductions.Total()
	p.NetSalary = NetSalary(p.BaseSalary, p.Bonuses, p.Deductions)
}

// ApplyHourlyRecalculation overwrites hours, base salary and net salary
// from freshly summed hours. Bonuses, deductions and status are untouched.
func (p *Payroll) ApplyHourlyRecalculation(hours decimal.Decimal, at time.Time) {
	p.HoursWorked = Some(RoundHours(hours))
	rate := decimal.Zero
	if p.HourlyRate.Valid {
		rate = p.HourlyRate.Decimal
	}
	p.BaseSalary = RoundMoney(p.HoursWorked.Decimal.Mul(rate))
	p.RecomputeTotals()
	p.LastRecalculatedAt = &at
}

// CreatePayrollParams are the optional explicit inputs of a monthly payroll.
// Nil fields are derived from attendance and the employee profile.
type CreatePayrollParams struct {
	PaymentType *PaymentType     `json:"payment_type,omitempty"`
	BaseSalary  *decimal.Decimal `json:"base_salary,omitempty"`
	HoursWorked *decimal.Decimal `json:"hours_worked,omitempty"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	Bonuses     Items            `json:"bonuses,omitempty"`
	Deductions  Items            `json:"deductions,omitempty"`
}

// Validate checks the explicit inputs that are present.
func (p *CreatePayrollParams) Validate() error {
	details := map[string]string{}
	if p.PaymentType != nil && !p.PaymentType.Valid() {
		details["payment_type"] = "must be HOURLY or SALARY"
	}
	if p.BaseSalary != nil && p.BaseSalary.IsNegative() {
		details["base_salary"] = "must not be negative"
	}
	if p.HoursWorked != nil && p.HoursWorked.IsNegative() {
		details["hours_worked"] = "must not be negative"
	}
	if p.HourlyRate != nil && p.HourlyRate.IsNegative() {
		details["hourly_rate"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	if err := p.Bonuses.Validate("bonuses"); err != nil {
		return err
	}
	return p.Deductions.Validate("deductions")
}

// PayrollFilter narrows payroll listings
type PayrollFilter struct {
	UserID *uuid.UUID
	Year   *int
	Month  *int
	Status *PayrollStatus
	Limit  int
	Offset int
}
