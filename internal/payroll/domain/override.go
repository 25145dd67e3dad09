package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// DailyOverride is a manager correction for one user and day. Each null
// field keeps the computed value; any present value, zero included, wins.
type DailyOverride struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	UserID        uuid.UUID           `json:"user_id" db:"user_id"`
	WorkDate      time.Time           `json:"work_date" db:"work_date"`
	HourlyRate    decimal.NullDecimal `json:"hourly_rate" db:"hourly_rate"`
	RegularHours  decimal.NullDecimal `json:"regular_hours" db:"regular_hours"`
	OvertimeHours decimal.NullDecimal `json:"overtime_hours" db:"overtime_hours"`
	TotalHours    decimal.NullDecimal `json:"total_hours" db:"total_hours"`
	Earnings      decimal.NullDecimal `json:"earnings" db:"earnings"`
	Notes         *string             `json:"notes,omitempty" db:"notes"`
	CreatedBy     *uuid.UUID          `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy     *uuid.UUID          `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// Validate rejects negative values and hours above 24.
func (o *DailyOverride) Validate() error {
	details := map[string]string{}

	hours := map[string]decimal.NullDecimal{
		"regular_hours":  o.RegularHours,
		"overtime_hours": o.OvertimeHours,
		"total_hours":    o.TotalHours,
	}
	for field, v := range hours {
		if !v.Valid {
			continue
		}
		if v.Decimal.IsNegative() || v.Decimal.GreaterThan(hoursPerDay) {
			details[field] = "must be between 0 and 24"
		}
	}

	if o.HourlyRate.Valid && o.HourlyRate.Decimal.IsNegative() {
		details["hourly_rate"] = "must not be negative"
	}
	if o.Earnings.Valid && o.Earnings.Decimal.IsNegative() {
		details["earnings"] = "must not be negative"
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// EffectiveHours is the day's hours as seen by the weekly overtime total:
// the override's total when set, else the computed hours.
func (o *DailyOverride) EffectiveHours(computed decimal.Decimal) decimal.Decimal {
	if o != nil && o.TotalHours.Valid {
		return o.TotalHours.Decimal
	}
	return computed
}

// OverridePatch is a field-level update of a stored override. A nil pointer
// leaves the field unchanged; Clear lists fields to reset to null.
type OverridePatch struct {
	HourlyRate    *decimal.Decimal
	RegularHours  *decimal.Decimal
	OvertimeHours *decimal.Decimal
	TotalHours    *decimal.Decimal
	Earnings      *decimal.Decimal
	Notes         *string
	Clear         []string
}

// Apply writes the patch onto o.
func (p OverridePatch) Apply(o *DailyOverride) {
	for _, field := range p.Clear {
		switch field {
		case "hourly_rate":
			o.HourlyRate = decimal.NullDecimal{}
		case "regular_hours":
			o.RegularHours = decimal.NullDecimal{}
		case "overtime_hours":
			o.OvertimeHours = decimal.NullDecimal{}
		case "total_hours":
			o.TotalHours = decimal.NullDecimal{}
		case "earnings":
			o.Earnings = decimal.NullDecimal{}
		case "notes":
			o.Notes = nil
		}
	}

	if p.HourlyRate != nil {
		o.HourlyRate = Some(*p.HourlyRate)
	}
	if p.RegularHours != nil {
		o.RegularHours = Some(*p.RegularHours)
	}
	if p.OvertimeHours != nil {
		o.OvertimeHours = Some(*p.OvertimeHours)
	}
	if p.TotalHours != nil {
		o.TotalHours = Some(*p.TotalHours)
	}
	if p.Earnings != nil {
		o.Earnings = Some(*p.Earnings)
	}
	if p.Notes != nil {
		o.Notes = p.Notes
	}
}
