package domain

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// HourlyRatePeriod is an hourly rate valid over an inclusive date range.
type HourlyRatePeriod struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	StartDate  time.Time       `json:"start_date" db:"start_date"`
	EndDate    time.Time       `json:"end_date" db:"end_date"`
	HourlyRate decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	CreatedBy  *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Contains reports whether day falls inside the period, both ends included.
func (p *HourlyRatePeriod) Contains(day time.Time) bool {
	day = TruncateDate(day)
	return !day.Before(TruncateDate(p.StartDate)) && !day.After(TruncateDate(p.EndDate))
}

// Overlaps reports whether [start, end] shares at least one day with the period.
func (p *HourlyRatePeriod) Overlaps(start, end time.Time) bool {
	return !TruncateDate(start).After(TruncateDate(p.EndDate)) &&
		!TruncateDate(end).Before(TruncateDate(p.StartDate))
}

// Validate checks the period's own fields.
func (p *HourlyRatePeriod) Validate() error {
	details := map[string]string{}
	if p.EndDate.Before(p.StartDate) {
		details["end_date"] = "must not be before start_date"
	}
	if !p.HourlyRate.IsPositive() {
		details["hourly_rate"] = "must be greater than 0"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// PickRatePeriod selects the period covering day. Overlapping periods should
// not exist; when they do the earliest created one wins (ties broken by id)
// and ambiguous is true.
func PickRatePeriod(periods []HourlyRatePeriod, day time.Time) (picked *HourlyRatePeriod, ambiguous bool) {
	var matches []HourlyRatePeriod
	for _, p := range periods {
		if p.Contains(day) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return bytes.Compare(matches[i].ID[:], matches[j].ID[:]) < 0
	})
	return &matches[0], len(matches) > 1
}

// ResolveRate returns the rate of the period covering day, else fallback.
// A result with Valid false means the user is not paid hourly on that day.
func ResolveRate(periods []HourlyRatePeriod, day time.Time, fallback decimal.NullDecimal) (decimal.NullDecimal, bool) {
	p, ambiguous := PickRatePeriod(periods, day)
	if p != nil {
		return Some(p.HourlyRate), ambiguous
	}
	return fallback, false
}
