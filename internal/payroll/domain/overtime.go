package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// OvertimeConfig is a user's weekly overtime policy.
type OvertimeConfig struct {
	UserID               uuid.UUID       `json:"user_id" db:"user_id"`
	WeeklyThresholdHours decimal.Decimal `json:"weekly_threshold_hours" db:"weekly_threshold_hours"`
	OvertimeMultiplier   decimal.Decimal `json:"overtime_multiplier" db:"overtime_multiplier"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Validate checks threshold and multiplier bounds.
func (c *OvertimeConfig) Validate() error {
	details := map[string]string{}
	if c.WeeklyThresholdHours.IsNegative() {
		details["weekly_threshold_hours"] = "must not be negative"
	}
	if c.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		details["overtime_multiplier"] = "must be at least 1"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// OvertimeSplit is one day's hours divided at the weekly threshold
type OvertimeSplit struct {
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

// SplitWeeklyOvertime classifies a day's hours given the hours already worked
// earlier in the same week. Hours up to the threshold are regular, the rest
// overtime. Only earlier days feed priorWeekHours, so adding later days never
// changes an earlier day's split.
func SplitWeeklyOvertime(priorWeekHours, hours, threshold decimal.Decimal) OvertimeSplit {
	if !hours.IsPositive() {
		return OvertimeSplit{RegularHours: decimal.Zero, OvertimeHours: decimal.Zero}
	}

	remaining := threshold.Sub(priorWeekHours)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	regular := decimal.Min(remaining, hours)
	return OvertimeSplit{
		RegularHours:  regular,
		OvertimeHours: hours.Sub(regular),
	}
}

// Pay returns regularHours*rate and overtimeHours*rate*multiplier.
func (s OvertimeSplit) Pay(rate, multiplier decimal.Decimal) (regularPay, overtimePay decimal.Decimal) {
	regularPay = s.RegularHours.Mul(rate)
	overtimePay = s.OvertimeHours.Mul(rate).Mul(multiplier)
	return RoundMoney(regularPay), RoundMoney(overtimePay)
}
